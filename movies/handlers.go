package movies

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"weblabs/web"
)

// Store abstracts movie and rating persistence for handlers.
type Store interface {
	Ranking(ctx context.Context, year, limit int) ([]RankedMovie, error)
	CreateMovie(ctx context.Context, title string, year int) (Movie, error)
	CreateRating(ctx context.Context, movieID int64, score int) (int64, error)
}

const defaultTopLimit = 5

// Register wires up the movie ranking routes on the provided Echo instance.
func Register(e *echo.Echo, store Store, logger *log.Logger) {
	e.GET("/api/movies", getMovies(store, logger))
	e.GET("/api/movies/top", getTopMovies(store, logger))
	e.POST("/api/movies", postMovies(store, logger))
	e.POST("/api/ratings", postRatings(store, logger))
}

func dbError(c echo.Context, logger *log.Logger, err error) error {
	logger.WithError(err).Error("storage failure")
	return c.JSON(http.StatusInternalServerError, web.Err(web.MsgDBError))
}

// queryInt parses an optional positive query parameter; missing or malformed
// values fall back to def.
func queryInt(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getMovies(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		year := queryInt(c, "year", 0)
		limit := queryInt(c, "limit", 0)

		ranked, err := store.Ranking(c.Request().Context(), year, limit)
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusOK, ranked)
	}
}

func getTopMovies(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		year := queryInt(c, "year", 0)
		limit := queryInt(c, "limit", defaultTopLimit)

		ranked, err := store.Ranking(c.Request().Context(), year, limit)
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusOK, ranked)
	}
}

func postMovies(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			Title string `json:"title"`
			Year  int    `json:"year"`
		}
		if err := web.DecodeJSON(c, &req); err != nil || req.Title == "" || req.Year == 0 {
			return c.JSON(http.StatusBadRequest, web.Err("Missing title or year"))
		}
		movie, err := store.CreateMovie(c.Request().Context(), req.Title, req.Year)
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusCreated, movie)
	}
}

func postRatings(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			MovieID int64 `json:"movie_id"`
			Score   *int  `json:"score"`
		}
		if err := web.DecodeJSON(c, &req); err != nil || req.MovieID == 0 || req.Score == nil {
			return c.JSON(http.StatusBadRequest, web.Err("Missing movie_id or score"))
		}
		if *req.Score < 1 || *req.Score > 5 {
			return c.JSON(http.StatusBadRequest, web.Err("Score must be between 1 and 5"))
		}

		id, err := store.CreateRating(c.Request().Context(), req.MovieID, *req.Score)
		if errors.Is(err, ErrMovieNotFound) {
			return c.JSON(http.StatusNotFound, web.Err("Movie not found"))
		}
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusCreated, map[string]any{"id": id})
	}
}
