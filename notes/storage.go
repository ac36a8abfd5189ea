package notes

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"weblabs/sqlitex"
)

var ErrNoteNotFound = errors.New("note not found")

var schema = []string{
	`PRAGMA foreign_keys = ON;`,
	`CREATE TABLE IF NOT EXISTS notes (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);`,
	`CREATE TABLE IF NOT EXISTS tags (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);`,
	`CREATE TABLE IF NOT EXISTS note_tags (
		note_id INTEGER NOT NULL,
		tag_id  INTEGER NOT NULL,
		PRIMARY KEY (note_id, tag_id),
		FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE,
		FOREIGN KEY (tag_id)  REFERENCES tags(id)  ON DELETE CASCADE
	);`,
}

// Storage persists notes, tags and their links in sqlite.
type Storage struct {
	db *sql.DB
}

func New(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// Init creates the schema and seeds three notes with a starter tag each into
// an empty database.
func (s *Storage) Init(ctx context.Context) error {
	if err := sqlitex.Migrate(ctx, s.db, schema); err != nil {
		return err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&n); err != nil {
		return err
	}
	if n != 0 {
		return nil
	}

	return sqlitex.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO notes(title, body) VALUES
			('Pierwsza notatka', 'To jest przykładowa notatka o planach na tydzień.'),
			('Pomysły na prezenty', 'Zebrać pomysły na prezenty urodzinowe dla rodziny.'),
			('Praca – spotkanie', 'Przygotować agendę na jutrzejsze spotkanie projektowe.')`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tags(name) VALUES ('work'), ('home'), ('ideas')`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO note_tags(note_id, tag_id) VALUES
			(1, 3), (2, 2), (3, 1)`)
		return err
	})
}

// ListNotes filters by full-text match on title/body (q) and exact tag name,
// newest first, attaching every note's sorted tag list.
func (s *Storage) ListNotes(ctx context.Context, q, tag string) ([]Note, error) {
	query := `
		SELECT DISTINCT n.id, n.title, n.body, n.created_at
		FROM notes n
		LEFT JOIN note_tags nt ON nt.note_id = n.id
		LEFT JOIN tags t ON t.id = nt.tag_id
		WHERE 1=1`
	args := []any{}

	if q = strings.TrimSpace(q); q != "" {
		query += ` AND (n.title LIKE ? OR n.body LIKE ?)`
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	if tag = strings.TrimSpace(tag); tag != "" {
		query += ` AND t.name = ?`
		args = append(args, tag)
	}
	query += ` ORDER BY n.created_at DESC, n.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Note{}
	for rows.Next() {
		var note Note
		if err := rows.Scan(&note.ID, &note.Title, &note.Body, &note.CreatedAt); err != nil {
			return nil, err
		}
		note.Tags = []string{}
		result = append(result, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// attachTags fills Tags for every note in one query.
func (s *Storage) attachTags(ctx context.Context, result []Note) error {
	if len(result) == 0 {
		return nil
	}
	placeholders := make([]string, len(result))
	args := make([]any, len(result))
	index := make(map[int64]int, len(result))
	for i := range result {
		placeholders[i] = "?"
		args[i] = result[i].ID
		index[result[i].ID] = i
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT nt.note_id, t.name
		FROM note_tags nt
		JOIN tags t ON t.id = nt.tag_id
		WHERE nt.note_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY t.name`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var noteID int64
		var name string
		if err := rows.Scan(&noteID, &name); err != nil {
			return err
		}
		if i, ok := index[noteID]; ok {
			result[i].Tags = append(result[i].Tags, name)
		}
	}
	return rows.Err()
}

// CreateNote trims the fields, inserts and reads the row back so the caller
// gets the database-assigned timestamp.
func (s *Storage) CreateNote(ctx context.Context, title, body string) (Note, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notes(title, body) VALUES (?, ?)`,
		strings.TrimSpace(title), strings.TrimSpace(body))
	if err != nil {
		return Note{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Note{}, err
	}

	var note Note
	err = s.db.QueryRowContext(ctx,
		`SELECT id, title, body, created_at FROM notes WHERE id = ?`, id).
		Scan(&note.ID, &note.Title, &note.Body, &note.CreatedAt)
	if err != nil {
		return Note{}, err
	}
	note.Tags = []string{}
	return note, nil
}

func (s *Storage) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// AttachTags links the given normalized tag names to a note, creating missing
// tags on the way. Both tag creation and linking are idempotent; attaching an
// already-linked tag changes nothing. The whole batch commits atomically and
// the note's resulting sorted tag set is returned.
func (s *Storage) AttachTags(ctx context.Context, noteID int64, names []string) ([]string, error) {
	var final []string
	err := sqlitex.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var got int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM notes WHERE id = ?`, noteID).Scan(&got)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoteNotFound
		}
		if err != nil {
			return err
		}

		insertTag, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO tags(name) VALUES (?)`)
		if err != nil {
			return err
		}
		defer insertTag.Close()
		link, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO note_tags(note_id, tag_id)
			SELECT ?, id FROM tags WHERE name = ?`)
		if err != nil {
			return err
		}
		defer link.Close()

		for _, name := range names {
			if _, err := insertTag.ExecContext(ctx, name); err != nil {
				return err
			}
			if _, err := link.ExecContext(ctx, noteID, name); err != nil {
				return err
			}
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT t.name
			FROM note_tags nt
			JOIN tags t ON t.id = nt.tag_id
			WHERE nt.note_id = ?
			ORDER BY t.name`, noteID)
		if err != nil {
			return err
		}
		defer rows.Close()

		final = []string{}
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			final = append(final, name)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return final, nil
}
