package kanban

// Column is an ordered lane on the board.
type Column struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Ord  int    `json:"ord"`
}

// Task lives in exactly one column. Ord is its 1-based position within the
// column; positions in a column of N tasks are always exactly 1..N.
type Task struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	ColID int64  `json:"col_id"`
	Ord   int    `json:"ord"`
}

// Board is the full state returned to clients.
type Board struct {
	Cols  []Column `json:"cols"`
	Tasks []Task   `json:"tasks"`
}

// MoveResult reports where a task ended up after a move. Unchanged is true
// when the requested target equals the current position and nothing was
// written.
type MoveResult struct {
	ColID     int64
	Ord       int
	Unchanged bool
}
