package notes

// Note carries its tag names sorted alphabetically.
type Note struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	CreatedAt string   `json:"created_at"`
	Tags      []string `json:"tags"`
}

// Tag is a normalized label shared across notes.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
