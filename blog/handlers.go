package blog

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"weblabs/ratelimit"
	"weblabs/web"
)

// Store abstracts post and comment persistence for handlers.
type Store interface {
	ListPosts(ctx context.Context) ([]Post, error)
	GetPost(ctx context.Context, id int64) (Post, error)
	CreatePost(ctx context.Context, title, body string) (Post, error)
	PostExists(ctx context.Context, id int64) (bool, error)
	ApprovedComments(ctx context.Context, postID int64, page, pageSize int) ([]Comment, error)
	CreateComment(ctx context.Context, postID int64, author, body string) (int64, error)
	PendingComments(ctx context.Context) ([]PendingComment, error)
	ApproveComment(ctx context.Context, id int64) error
	PageSize() int
}

type commentsPage struct {
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
	Comments []Comment `json:"comments"`
}

// Register wires up the blog routes on the provided Echo instance. The
// limiter throttles comment submission per client IP.
func Register(e *echo.Echo, store Store, limiter *ratelimit.Limiter, logger *log.Logger) {
	e.GET("/api/posts", getPosts(store, logger))
	e.GET("/api/posts/:id", getPost(store, logger))
	e.POST("/api/posts", postPosts(store, logger))
	e.GET("/api/posts/:id/comments", getComments(store, logger))
	e.POST("/api/posts/:id/comments", postComment(store, limiter, logger))
	e.GET("/api/comments/pending", getPendingComments(store, logger))
	e.POST("/api/comments/:id/approve", postApproveComment(store, logger))
}

// RegisterViews serves the post-detail and moderation pages when a frontend
// directory is configured; the index itself comes from the static mount.
func RegisterViews(e *echo.Echo, root string) {
	if root == "" {
		return
	}
	e.File("/posts/:id", filepath.Join(root, "post.html"))
	e.File("/moderation", filepath.Join(root, "moderation.html"))
}

func dbError(c echo.Context, logger *log.Logger, err error) error {
	logger.WithError(err).Error("storage failure")
	return c.JSON(http.StatusInternalServerError, web.Err(web.MsgDBError))
}

func getPosts(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		posts, err := store.ListPosts(c.Request().Context())
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusOK, posts)
	}
}

func getPost(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, web.Err("Invalid post id"))
		}
		post, err := store.GetPost(c.Request().Context(), id)
		if errors.Is(err, ErrPostNotFound) {
			return c.JSON(http.StatusNotFound, web.Err("Post not found"))
		}
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusOK, post)
	}
}

func postPosts(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		}
		if err := web.DecodeJSON(c, &req); err != nil || req.Title == "" || req.Body == "" {
			return c.JSON(http.StatusBadRequest, web.Err("Missing title or body"))
		}
		post, err := store.CreatePost(c.Request().Context(), req.Title, req.Body)
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusCreated, post)
	}
}

func getComments(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		postID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, web.Err("Invalid post id"))
		}
		page := queryInt(c, "page", 1)
		pageSize := queryInt(c, "pageSize", store.PageSize())

		comments, err := store.ApprovedComments(c.Request().Context(), postID, page, pageSize)
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusOK, commentsPage{Page: page, PageSize: pageSize, Comments: comments})
	}
}

func postComment(store Store, limiter *ratelimit.Limiter, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		postID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, web.Err("Invalid post id"))
		}
		var req struct {
			Author string `json:"author"`
			Body   string `json:"body"`
		}
		if err := web.DecodeJSON(c, &req); err != nil || req.Author == "" || req.Body == "" {
			return c.JSON(http.StatusBadRequest, web.Err("Missing author or body"))
		}

		// Throttle only once the payload is known to be valid, so malformed
		// requests never consume the client's budget.
		if !limiter.Allow(c.RealIP()) {
			return c.JSON(http.StatusTooManyRequests,
				web.Err("Too many comments, try again later"))
		}

		ctx := c.Request().Context()
		exists, err := store.PostExists(ctx, postID)
		if err != nil {
			return dbError(c, logger, err)
		}
		if !exists {
			return c.JSON(http.StatusNotFound, web.Err("Post not found"))
		}

		id, err := store.CreateComment(ctx, postID, req.Author, req.Body)
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusCreated, map[string]any{"id": id, "approved": 0})
	}
}

func getPendingComments(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		pending, err := store.PendingComments(c.Request().Context())
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusOK, pending)
	}
}

func postApproveComment(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, web.Err("Invalid comment id"))
		}
		err = store.ApproveComment(c.Request().Context(), id)
		if errors.Is(err, ErrCommentNotFound) {
			return c.JSON(http.StatusNotFound, web.Err("Comment not found"))
		}
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"success": true})
	}
}

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
