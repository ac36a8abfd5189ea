package blog

// Post is a published blog entry.
type Post struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

// Comment belongs to a post. Approved stays 0 until a moderator approves it.
type Comment struct {
	ID        int64  `json:"id"`
	PostID    int64  `json:"post_id"`
	Author    string `json:"author"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	Approved  int    `json:"approved"`
}

// PendingComment joins the awaiting comment with its post title for the
// moderation panel.
type PendingComment struct {
	Comment
	PostTitle string `json:"post_title"`
}
