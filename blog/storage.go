package blog

import (
	"context"
	"database/sql"
	"errors"

	"weblabs/sqlitex"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
)

var schema = []string{
	`PRAGMA foreign_keys = ON;`,
	`CREATE TABLE IF NOT EXISTS posts (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);`,
	`CREATE TABLE IF NOT EXISTS comments (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		post_id    INTEGER NOT NULL,
		author     TEXT NOT NULL,
		body       TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		approved   INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id, approved);`,
}

// Storage persists posts and comments in sqlite.
type Storage struct {
	db              *sql.DB
	defaultPageSize int
}

func New(db *sql.DB, defaultPageSize int) *Storage {
	if defaultPageSize <= 0 {
		defaultPageSize = 10
	}
	return &Storage{db: db, defaultPageSize: defaultPageSize}
}

// Init creates the schema and seeds two demo posts with a mix of approved
// and pending comments into an empty database.
func (s *Storage) Init(ctx context.Context) error {
	if err := sqlitex.Migrate(ctx, s.db, schema); err != nil {
		return err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return err
	}
	if n != 0 {
		return nil
	}

	return sqlitex.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		seed := []struct {
			title, body string
			comments    []struct {
				author, body string
				approved     int
			}
		}{
			{
				title: "Pierwszy post",
				body:  "Witaj w blogu demo. To jest pierwszy wpis.",
				comments: []struct {
					author, body string
					approved     int
				}{
					{"Ala", "Brawo! Świetny wpis.", 1},
					{"Jan", "Czekam na więcej treści.", 0},
				},
			},
			{
				title: "Drugi post",
				body:  "To jest drugi przykładowy post na blogu.",
				comments: []struct {
					author, body string
					approved     int
				}{
					{"Kasia", "Super blog!", 0},
				},
			},
		}
		for _, p := range seed {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO posts(title, body) VALUES (?, ?)`, p.title, p.body)
			if err != nil {
				return err
			}
			postID, err := res.LastInsertId()
			if err != nil {
				return err
			}
			for _, cm := range p.comments {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO comments(post_id, author, body, approved) VALUES (?, ?, ?, ?)`,
					postID, cm.author, cm.body, cm.approved)
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *Storage) ListPosts(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, body, created_at FROM posts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Body, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *Storage) GetPost(ctx context.Context, id int64) (Post, error) {
	var p Post
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, body, created_at FROM posts WHERE id = ?`, id).
		Scan(&p.ID, &p.Title, &p.Body, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrPostNotFound
	}
	if err != nil {
		return Post{}, err
	}
	return p, nil
}

func (s *Storage) CreatePost(ctx context.Context, title, body string) (Post, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO posts(title, body) VALUES (?, ?)`, title, body)
	if err != nil {
		return Post{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Post{}, err
	}
	return Post{ID: id, Title: title, Body: body}, nil
}

func (s *Storage) PostExists(ctx context.Context, id int64) (bool, error) {
	var got int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM posts WHERE id = ?`, id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PageSize returns the configured default comments page size.
func (s *Storage) PageSize() int {
	return s.defaultPageSize
}

// ApprovedComments pages through the approved comments of a post, newest
// first.
func (s *Storage) ApprovedComments(ctx context.Context, postID int64, page, pageSize int) ([]Comment, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	offset := (page - 1) * pageSize

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, post_id, author, body, created_at, approved
		 FROM comments
		 WHERE post_id = ? AND approved = 1
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`, postID, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		var cm Comment
		if err := rows.Scan(&cm.ID, &cm.PostID, &cm.Author, &cm.Body, &cm.CreatedAt, &cm.Approved); err != nil {
			return nil, err
		}
		comments = append(comments, cm)
	}
	return comments, rows.Err()
}

// CreateComment inserts a pending comment. Approval happens later through
// moderation.
func (s *Storage) CreateComment(ctx context.Context, postID int64, author, body string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO comments(post_id, author, body, approved) VALUES (?, ?, ?, 0)`,
		postID, author, body)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// PendingComments lists comments awaiting moderation, oldest first, with the
// post title attached.
func (s *Storage) PendingComments(ctx context.Context) ([]PendingComment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.post_id, c.author, c.body, c.created_at, c.approved, p.title
		 FROM comments c
		 JOIN posts p ON p.id = c.post_id
		 WHERE c.approved = 0
		 ORDER BY c.created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pending := []PendingComment{}
	for rows.Next() {
		var pc PendingComment
		err := rows.Scan(&pc.ID, &pc.PostID, &pc.Author, &pc.Body, &pc.CreatedAt, &pc.Approved, &pc.PostTitle)
		if err != nil {
			return nil, err
		}
		pending = append(pending, pc)
	}
	return pending, rows.Err()
}

func (s *Storage) ApproveComment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE comments SET approved = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCommentNotFound
	}
	return nil
}
