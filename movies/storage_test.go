package movies

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"weblabs/sqlitex"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	db, err := sqlitex.Open(filepath.Join(t.TempDir(), "movies.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s := New(db)
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func TestRankingOrder(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	// Seed: Matrix 5.0 (1 vote), Inception 4.5 (2), Arrival 4.5 (2).
	ranked, err := s.Ranking(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("expected 3 movies, got %d", len(ranked))
	}
	if ranked[0].Title != "Matrix" {
		t.Fatalf("expected Matrix first, got %q", ranked[0].Title)
	}
	if ranked[0].AvgScore == nil || *ranked[0].AvgScore != 5 {
		t.Fatalf("unexpected avg for Matrix: %+v", ranked[0])
	}

	// Vote count breaks the tie between equal averages.
	if _, err := s.CreateRating(ctx, 3, 5); err != nil {
		t.Fatalf("rate: %v", err)
	}
	// Arrival now 4.67 with 3 votes, ahead of Inception's 4.5.
	ranked, err = s.Ranking(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if ranked[1].Title != "Arrival" || ranked[2].Title != "Inception" {
		t.Fatalf("unexpected order: %q, %q", ranked[1].Title, ranked[2].Title)
	}
}

func TestRankingFilters(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	ranked, err := s.Ranking(ctx, 1999, 0)
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if len(ranked) != 1 || ranked[0].Title != "Matrix" {
		t.Fatalf("year filter failed: %+v", ranked)
	}

	ranked, err = s.Ranking(ctx, 0, 2)
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("limit not applied: %d rows", len(ranked))
	}
}

func TestUnratedMovieHasNullAverage(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	m, err := s.CreateMovie(ctx, "Solaris", 1972)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ranked, err := s.Ranking(ctx, 1972, 0)
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if len(ranked) != 1 || ranked[0].ID != m.ID {
		t.Fatalf("new movie missing from ranking: %+v", ranked)
	}
	if ranked[0].AvgScore != nil || ranked[0].Votes != 0 {
		t.Fatalf("expected null average and zero votes, got %+v", ranked[0])
	}
}

func TestCreateRatingUnknownMovie(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.CreateRating(context.Background(), 404, 3)
	if !errors.Is(err, ErrMovieNotFound) {
		t.Fatalf("expected ErrMovieNotFound, got %v", err)
	}
}
