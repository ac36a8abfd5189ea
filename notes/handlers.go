package notes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"weblabs/web"
)

// Store abstracts note and tag persistence for handlers.
type Store interface {
	ListNotes(ctx context.Context, q, tag string) ([]Note, error)
	CreateNote(ctx context.Context, title, body string) (Note, error)
	ListTags(ctx context.Context) ([]Tag, error)
	AttachTags(ctx context.Context, noteID int64, names []string) ([]string, error)
}

// Register wires up the notes routes on the provided Echo instance.
func Register(e *echo.Echo, store Store, logger *log.Logger) {
	e.GET("/api/notes", getNotes(store, logger))
	e.POST("/api/notes", postNotes(store, logger))
	e.GET("/api/tags", getTags(store, logger))
	e.POST("/api/notes/:id/tags", postNoteTags(store, logger))
}

func dbError(c echo.Context, logger *log.Logger, err error) error {
	logger.WithError(err).Error("storage failure")
	return c.JSON(http.StatusInternalServerError, web.Err(web.MsgDBError))
}

func getNotes(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		result, err := store.ListNotes(c.Request().Context(),
			c.QueryParam("q"), c.QueryParam("tag"))
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusOK, result)
	}
}

func postNotes(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		}
		err := web.DecodeJSON(c, &req)
		if err != nil || strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Body) == "" {
			return c.JSON(http.StatusBadRequest, web.Err("Missing title or body"))
		}

		note, err := store.CreateNote(c.Request().Context(), req.Title, req.Body)
		if err != nil {
			return dbError(c, logger, err)
		}
		c.Response().Header().Set(echo.HeaderLocation, fmt.Sprintf("/api/notes/%d", note.ID))
		return c.JSON(http.StatusCreated, note)
	}
}

func getTags(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		tags, err := store.ListTags(c.Request().Context())
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusOK, tags)
	}
}

func postNoteTags(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		noteID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || noteID <= 0 {
			return c.JSON(http.StatusBadRequest, web.Err("Invalid note id"))
		}

		var req struct {
			Tags []string `json:"tags"`
		}
		if err := web.DecodeJSON(c, &req); err != nil || len(req.Tags) == 0 {
			return c.JSON(http.StatusBadRequest, web.Err("Tags array required"))
		}
		cleaned := NormalizeTags(req.Tags)
		if len(cleaned) == 0 {
			return c.JSON(http.StatusBadRequest, web.Err("No valid tags"))
		}

		final, err := store.AttachTags(c.Request().Context(), noteID, cleaned)
		if errors.Is(err, ErrNoteNotFound) {
			return c.JSON(http.StatusNotFound, web.Err("Note not found"))
		}
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"note_id": noteID, "tags": final})
	}
}
