package kanban

import (
	"context"
	"database/sql"
	"errors"

	"weblabs/sqlitex"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrColumnNotFound = errors.New("column not found")
)

var schema = []string{
	`PRAGMA foreign_keys = ON;`,
	`CREATE TABLE IF NOT EXISTS columns (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		ord  INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		title  TEXT NOT NULL,
		col_id INTEGER NOT NULL,
		ord    INTEGER NOT NULL,
		FOREIGN KEY(col_id) REFERENCES columns(id) ON DELETE CASCADE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_col ON tasks(col_id, ord);`,
}

// Storage persists the board in sqlite.
type Storage struct {
	db *sql.DB
}

func New(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// Init creates the schema and seeds the three standard columns plus a few
// tasks into an empty database.
func (s *Storage) Init(ctx context.Context) error {
	if err := sqlitex.Migrate(ctx, s.db, schema); err != nil {
		return err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM columns`).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		_, err := s.db.ExecContext(ctx, `INSERT INTO columns(name, ord) VALUES
			('Todo', 1), ('Doing', 2), ('Done', 3)`)
		if err != nil {
			return err
		}
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		_, err := s.db.ExecContext(ctx, `INSERT INTO tasks(title, col_id, ord) VALUES
			('Zakupy na wyjazd w góry.', 1, 1),
			('Napompować koła w rowerze.', 1, 2),
			('Oddać sąsiadowi wkrętarkę, po 16:30.', 3, 1)`)
		if err != nil {
			return err
		}
	}
	return nil
}

// Board returns every column and task, columns by their own order and tasks
// by (column, position).
func (s *Storage) Board(ctx context.Context) (Board, error) {
	board := Board{Cols: []Column{}, Tasks: []Task{}}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, ord FROM columns ORDER BY ord`)
	if err != nil {
		return Board{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.ID, &col.Name, &col.Ord); err != nil {
			return Board{}, err
		}
		board.Cols = append(board.Cols, col)
	}
	if err := rows.Err(); err != nil {
		return Board{}, err
	}

	taskRows, err := s.db.QueryContext(ctx,
		`SELECT id, title, col_id, ord FROM tasks ORDER BY col_id, ord`)
	if err != nil {
		return Board{}, err
	}
	defer taskRows.Close()
	for taskRows.Next() {
		var task Task
		if err := taskRows.Scan(&task.ID, &task.Title, &task.ColID, &task.Ord); err != nil {
			return Board{}, err
		}
		board.Tasks = append(board.Tasks, task)
	}
	return board, taskRows.Err()
}

// CreateTask appends a task at the tail of the column (position max+1).
func (s *Storage) CreateTask(ctx context.Context, title string, colID int64) (Task, error) {
	var task Task
	err := sqlitex.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var got int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM columns WHERE id = ?`, colID).Scan(&got)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrColumnNotFound
		}
		if err != nil {
			return err
		}

		var maxOrd int
		err = tx.QueryRowContext(ctx,
			`SELECT IFNULL(MAX(ord), 0) FROM tasks WHERE col_id = ?`, colID).Scan(&maxOrd)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO tasks(title, col_id, ord) VALUES (?, ?, ?)`, title, colID, maxOrd+1)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		task = Task{ID: id, Title: title, ColID: colID, Ord: maxOrd + 1}
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	return task, nil
}

// MoveTask places a task at the requested position in the target column,
// shifting neighbours so that positions in every column stay dense. The
// requested position is clamped to [1, size+1] of the target column, where
// size excludes the moving task itself when it already lives there; a move
// onto the current position is reported unchanged without writing.
//
// All shifts and the final reassignment commit as one transaction. A partial
// move (gap closed in the source column but no slot opened in the target)
// would corrupt the ordering for good, so any failure rolls everything back.
func (s *Storage) MoveTask(ctx context.Context, id, targetCol int64, requestedOrd int) (MoveResult, error) {
	var result MoveResult
	err := sqlitex.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var oldCol int64
		var oldOrd int
		err := tx.QueryRowContext(ctx,
			`SELECT col_id, ord FROM tasks WHERE id = ?`, id).Scan(&oldCol, &oldOrd)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTaskNotFound
		}
		if err != nil {
			return err
		}

		var got int64
		err = tx.QueryRowContext(ctx, `SELECT id FROM columns WHERE id = ?`, targetCol).Scan(&got)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrColumnNotFound
		}
		if err != nil {
			return err
		}

		var size int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM tasks WHERE col_id = ? AND id != ?`, targetCol, id).Scan(&size)
		if err != nil {
			return err
		}

		ord := requestedOrd
		if ord < 1 {
			ord = 1
		}
		if ord > size+1 {
			ord = size + 1
		}

		if targetCol == oldCol && ord == oldOrd {
			result = MoveResult{ColID: oldCol, Ord: oldOrd, Unchanged: true}
			return nil
		}

		if targetCol == oldCol {
			if ord > oldOrd {
				// Forward: everything between the old and new slot steps back.
				_, err = tx.ExecContext(ctx,
					`UPDATE tasks SET ord = ord - 1
					 WHERE col_id = ? AND ord > ? AND ord <= ?`, oldCol, oldOrd, ord)
			} else {
				// Backward: everything between the new and old slot steps up.
				_, err = tx.ExecContext(ctx,
					`UPDATE tasks SET ord = ord + 1
					 WHERE col_id = ? AND ord >= ? AND ord < ?`, oldCol, ord, oldOrd)
			}
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `UPDATE tasks SET ord = ? WHERE id = ?`, ord, id)
			if err != nil {
				return err
			}
		} else {
			// Close the gap left behind, open a slot at the destination,
			// then reassign.
			_, err = tx.ExecContext(ctx,
				`UPDATE tasks SET ord = ord - 1 WHERE col_id = ? AND ord > ?`, oldCol, oldOrd)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`UPDATE tasks SET ord = ord + 1 WHERE col_id = ? AND ord >= ?`, targetCol, ord)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`UPDATE tasks SET col_id = ?, ord = ? WHERE id = ?`, targetCol, ord, id)
			if err != nil {
				return err
			}
		}

		result = MoveResult{ColID: targetCol, Ord: ord}
		return nil
	})
	if err != nil {
		return MoveResult{}, err
	}
	return result, nil
}
