package movies

// Movie is a catalog entry.
type Movie struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Year  int    `json:"year"`
}

// RankedMovie carries the aggregated rating alongside the movie. AvgScore is
// nil for movies without any votes, matching the LEFT JOIN aggregate.
type RankedMovie struct {
	Movie
	AvgScore *float64 `json:"avg_score"`
	Votes    int      `json:"votes"`
}
