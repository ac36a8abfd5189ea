package blog

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"weblabs/ratelimit"
)

type mockStore struct {
	posts      []Post
	post       Post
	postErr    error
	exists     bool
	comments   []Comment
	commentsIn struct{ page, pageSize int }
	createdID  int64
	approveErr error
	pageSize   int
}

func (m *mockStore) ListPosts(context.Context) ([]Post, error) { return m.posts, nil }

func (m *mockStore) GetPost(context.Context, int64) (Post, error) {
	if m.postErr != nil {
		return Post{}, m.postErr
	}
	return m.post, nil
}

func (m *mockStore) CreatePost(_ context.Context, title, body string) (Post, error) {
	return Post{ID: 1, Title: title, Body: body}, nil
}

func (m *mockStore) PostExists(context.Context, int64) (bool, error) { return m.exists, nil }

func (m *mockStore) ApprovedComments(_ context.Context, _ int64, page, pageSize int) ([]Comment, error) {
	m.commentsIn.page = page
	m.commentsIn.pageSize = pageSize
	return m.comments, nil
}

func (m *mockStore) CreateComment(context.Context, int64, string, string) (int64, error) {
	m.createdID++
	return m.createdID, nil
}

func (m *mockStore) PendingComments(context.Context) ([]PendingComment, error) {
	return []PendingComment{}, nil
}

func (m *mockStore) ApproveComment(context.Context, int64) error { return m.approveErr }

func (m *mockStore) PageSize() int {
	if m.pageSize == 0 {
		return 10
	}
	return m.pageSize
}

func newTestEnv(store Store, limiter *ratelimit.Limiter) *echo.Echo {
	e := echo.New()
	logger := log.New()
	logger.SetOutput(io.Discard)
	if limiter == nil {
		limiter = ratelimit.New(1000, time.Minute)
	}
	Register(e, store, limiter, logger)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPostPostsValidation(t *testing.T) {
	e := newTestEnv(&mockStore{}, nil)

	for _, body := range []string{`{}`, `{"title":"x"}`, `{"body":"y"}`} {
		rec := doJSON(t, e, http.MethodPost, "/api/posts", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Missing title or body") {
			t.Fatalf("unexpected body: %s", rec.Body)
		}
	}

	rec := doJSON(t, e, http.MethodPost, "/api/posts", `{"title":"x","body":"y"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
}

func TestGetPostStatusMapping(t *testing.T) {
	store := &mockStore{postErr: ErrPostNotFound}
	e := newTestEnv(store, nil)

	rec := doJSON(t, e, http.MethodGet, "/api/posts/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodGet, "/api/posts/7", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown post: expected 404, got %d", rec.Code)
	}
}

func TestGetCommentsPaging(t *testing.T) {
	store := &mockStore{comments: []Comment{}}
	e := newTestEnv(store, nil)

	rec := doJSON(t, e, http.MethodGet, "/api/posts/1/comments?page=3&pageSize=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.commentsIn.page != 3 || store.commentsIn.pageSize != 5 {
		t.Fatalf("paging not forwarded: %+v", store.commentsIn)
	}

	var resp commentsPage
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Page != 3 || resp.PageSize != 5 || resp.Comments == nil {
		t.Fatalf("unexpected envelope: %s", rec.Body)
	}

	// Malformed values fall back to page 1 and the configured page size.
	doJSON(t, e, http.MethodGet, "/api/posts/1/comments?page=zero&pageSize=-2", "")
	if store.commentsIn.page != 1 || store.commentsIn.pageSize != 10 {
		t.Fatalf("defaults not applied: %+v", store.commentsIn)
	}
}

func TestPostCommentFlow(t *testing.T) {
	store := &mockStore{exists: true}
	e := newTestEnv(store, nil)

	rec := doJSON(t, e, http.MethodPost, "/api/posts/1/comments", `{"author":"Ala"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing body: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, e, http.MethodPost, "/api/posts/1/comments", `{"author":"Ala","body":"hej"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		ID       int64 `json:"id"`
		Approved int   `json:"approved"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Approved != 0 {
		t.Fatalf("new comment should start unapproved: %+v", resp)
	}

	store.exists = false
	rec = doJSON(t, e, http.MethodPost, "/api/posts/99/comments", `{"author":"Ala","body":"hej"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown post: expected 404, got %d", rec.Code)
	}
}

func TestPostCommentRateLimit(t *testing.T) {
	store := &mockStore{exists: true}
	limiter := ratelimit.New(3, 5*time.Minute)
	e := newTestEnv(store, limiter)

	// Invalid payloads never count against the budget.
	for i := 0; i < 5; i++ {
		rec := doJSON(t, e, http.MethodPost, "/api/posts/1/comments", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("invalid payload %d: got %d", i, rec.Code)
		}
	}

	for i := 0; i < 3; i++ {
		rec := doJSON(t, e, http.MethodPost, "/api/posts/1/comments", `{"author":"A","body":"b"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("comment %d: expected 201, got %d", i+1, rec.Code)
		}
	}
	rec := doJSON(t, e, http.MethodPost, "/api/posts/1/comments", `{"author":"A","body":"b"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("fourth comment: expected 429, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Too many comments") {
		t.Fatalf("unexpected body: %s", rec.Body)
	}
}

func TestApproveComment(t *testing.T) {
	store := &mockStore{}
	e := newTestEnv(store, nil)

	rec := doJSON(t, e, http.MethodPost, "/api/comments/5/approve", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("unexpected body: %s", rec.Body)
	}

	store.approveErr = ErrCommentNotFound
	rec = doJSON(t, e, http.MethodPost, "/api/comments/5/approve", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown comment: expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, e, http.MethodPost, "/api/comments/x/approve", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", rec.Code)
	}
}
