package movies

import (
	"context"
	"database/sql"
	"errors"

	"weblabs/sqlitex"
)

var ErrMovieNotFound = errors.New("movie not found")

var schema = []string{
	`PRAGMA foreign_keys = ON;`,
	`CREATE TABLE IF NOT EXISTS movies (
		id    INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		year  INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS ratings (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		movie_id INTEGER NOT NULL,
		score    INTEGER NOT NULL CHECK(score BETWEEN 1 AND 5),
		FOREIGN KEY(movie_id) REFERENCES movies(id) ON DELETE CASCADE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_ratings_movie ON ratings(movie_id);`,
}

// Storage persists movies and their ratings in sqlite.
type Storage struct {
	db *sql.DB
}

func New(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// Init creates the schema and seeds three movies with a few votes into an
// empty database.
func (s *Storage) Init(ctx context.Context) error {
	if err := sqlitex.Migrate(ctx, s.db, schema); err != nil {
		return err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n); err != nil {
		return err
	}
	if n != 0 {
		return nil
	}

	return sqlitex.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO movies(title, year) VALUES
			('Inception', 2010),
			('Matrix', 1999),
			('Arrival', 2016)`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO ratings(movie_id, score) VALUES
			(1, 5), (1, 4),
			(2, 5),
			(3, 4), (3, 5)`)
		return err
	})
}

const rankingBase = `
	SELECT m.id, m.title, m.year,
	       ROUND(AVG(r.score), 2) AS avg_score,
	       COUNT(r.id) AS votes
	FROM movies m
	LEFT JOIN ratings r ON r.movie_id = m.id`

// Ranking returns movies ordered by average score then vote count. year
// filters when > 0; limit caps the result when > 0.
func (s *Storage) Ranking(ctx context.Context, year, limit int) ([]RankedMovie, error) {
	query := rankingBase
	args := []any{}
	if year > 0 {
		query += ` WHERE m.year = ?`
		args = append(args, year)
	}
	query += ` GROUP BY m.id ORDER BY avg_score DESC, votes DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ranked := []RankedMovie{}
	for rows.Next() {
		var rm RankedMovie
		var avg sql.NullFloat64
		if err := rows.Scan(&rm.ID, &rm.Title, &rm.Year, &avg, &rm.Votes); err != nil {
			return nil, err
		}
		if avg.Valid {
			rm.AvgScore = &avg.Float64
		}
		ranked = append(ranked, rm)
	}
	return ranked, rows.Err()
}

func (s *Storage) CreateMovie(ctx context.Context, title string, year int) (Movie, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO movies(title, year) VALUES (?, ?)`, title, year)
	if err != nil {
		return Movie{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Movie{}, err
	}
	return Movie{ID: id, Title: title, Year: year}, nil
}

// CreateRating records a vote. The movie must exist; scores outside 1..5 are
// rejected by the handler before reaching storage.
func (s *Storage) CreateRating(ctx context.Context, movieID int64, score int) (int64, error) {
	var got int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM movies WHERE id = ?`, movieID).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrMovieNotFound
	}
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO ratings(movie_id, score) VALUES (?, ?)`, movieID, score)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
