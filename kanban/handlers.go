package kanban

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"weblabs/web"
)

// Store abstracts board persistence for handlers.
type Store interface {
	Board(ctx context.Context) (Board, error)
	CreateTask(ctx context.Context, title string, colID int64) (Task, error)
	MoveTask(ctx context.Context, id, targetCol int64, requestedOrd int) (MoveResult, error)
}

// Register wires up the board routes on the provided Echo instance.
func Register(e *echo.Echo, store Store, logger *log.Logger) {
	e.GET("/api/board", getBoard(store, logger))
	e.POST("/api/tasks", postTasks(store, logger))
	e.POST("/api/tasks/:id/move", postTaskMove(store, logger))
}

func dbError(c echo.Context, logger *log.Logger, err error) error {
	logger.WithError(err).Error("storage failure")
	return c.JSON(http.StatusInternalServerError, web.Err(web.MsgDBError))
}

func getBoard(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		board, err := store.Board(c.Request().Context())
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusOK, board)
	}
}

func postTasks(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			Title string `json:"title"`
			ColID int64  `json:"col_id"`
		}
		if err := web.DecodeJSON(c, &req); err != nil || req.Title == "" || req.ColID == 0 {
			return c.JSON(http.StatusBadRequest, web.Err("Missing title or col_id"))
		}
		if req.ColID < 0 {
			return c.JSON(http.StatusUnprocessableEntity, web.Err("Invalid col_id"))
		}

		task, err := store.CreateTask(c.Request().Context(), req.Title, req.ColID)
		if errors.Is(err, ErrColumnNotFound) {
			return c.JSON(http.StatusNotFound, web.Err("Column not found"))
		}
		if err != nil {
			return dbError(c, logger, err)
		}

		c.Response().Header().Set(echo.HeaderLocation, fmt.Sprintf("/api/tasks/%d", task.ID))
		return c.JSON(http.StatusCreated, task)
	}
}

func postTaskMove(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		metrics, ctx := newMoveRequestMetrics(c.Request().Context(), logger)

		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			metrics.SetErrorStage("parse_id")
			metrics.Log(http.StatusBadRequest, err)
			return c.JSON(http.StatusBadRequest, web.Err("Invalid id"))
		}

		var req struct {
			ColID *int64 `json:"col_id"`
			Ord   *int   `json:"ord"`
		}
		decodeStart := time.Now()
		err = web.DecodeJSON(c, &req)
		metrics.ObserveDecode(time.Since(decodeStart))
		if err != nil || req.ColID == nil || req.Ord == nil {
			metrics.SetErrorStage("decode")
			metrics.Log(http.StatusBadRequest, err)
			return c.JSON(http.StatusBadRequest, web.Err("Invalid col_id or ord"))
		}

		applyStart := time.Now()
		result, err := store.MoveTask(ctx, id, *req.ColID, *req.Ord)
		metrics.ObserveApply(time.Since(applyStart))

		switch {
		case errors.Is(err, ErrTaskNotFound):
			metrics.SetErrorStage("task_lookup")
			metrics.Log(http.StatusNotFound, err)
			return c.JSON(http.StatusNotFound, web.Err("Task not found"))
		case errors.Is(err, ErrColumnNotFound):
			metrics.SetErrorStage("column_lookup")
			metrics.Log(http.StatusNotFound, err)
			return c.JSON(http.StatusNotFound, web.Err("Target column not found"))
		case err != nil:
			metrics.SetErrorStage("apply")
			metrics.Log(http.StatusInternalServerError, err)
			return dbError(c, logger, err)
		}

		metrics.SetUnchanged(result.Unchanged)
		metrics.Log(http.StatusOK, nil)

		if result.Unchanged {
			return c.JSON(http.StatusOK, map[string]any{"success": true, "unchanged": true})
		}
		return c.JSON(http.StatusOK, map[string]any{"success": true})
	}
}
