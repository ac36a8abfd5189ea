package library

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"weblabs/web"
)

// Store abstracts persistence for handlers.
type Store interface {
	ListMembers(ctx context.Context) ([]Member, error)
	CreateMember(ctx context.Context, name, email string) (Member, error)
	ListBooks(ctx context.Context, author string, page, pageSize int) ([]Book, error)
	CreateBook(ctx context.Context, title, author string, copies int) (Book, error)
	ListLoans(ctx context.Context) ([]Loan, error)
	Borrow(ctx context.Context, memberID, bookID int64, days int) (NewLoan, error)
	Return(ctx context.Context, loanID int64) (string, error)
	OverdueLoans(ctx context.Context) ([]OverdueLoan, error)
}

// Register wires up the library routes on the provided Echo instance.
func Register(e *echo.Echo, store Store, logger *log.Logger) {
	e.GET("/api/members", getMembers(store, logger))
	e.POST("/api/members", postMembers(store, logger))
	e.GET("/api/books", getBooks(store, logger))
	e.POST("/api/books", postBooks(store, logger))
	e.GET("/api/loans", getLoans(store, logger))
	e.POST("/api/loans/borrow", postBorrow(store, logger))
	e.POST("/api/loans/return", postReturn(store, logger))
	e.GET("/api/loans/overdue", getOverdue(store, logger))
}

func dbError(c echo.Context, logger *log.Logger, err error) error {
	logger.WithError(err).Error("storage failure")
	return c.JSON(http.StatusInternalServerError, web.Err(web.MsgDBError))
}

func getMembers(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		members, err := store.ListMembers(c.Request().Context())
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusOK, members)
	}
}

func postMembers(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		if err := web.DecodeJSON(c, &req); err != nil || req.Name == "" || req.Email == "" {
			return c.JSON(http.StatusBadRequest, web.Err("name and email are required"))
		}
		member, err := store.CreateMember(c.Request().Context(), req.Name, req.Email)
		if err != nil {
			if errors.Is(err, ErrEmailExists) {
				return c.JSON(http.StatusConflict, web.Err("Email already exists"))
			}
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusCreated, member)
	}
}

// queryInt parses a positive integer query param, falling back to def for
// missing or malformed values.
func queryInt(c echo.Context, name string, def int) int {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func getBooks(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		author := c.QueryParam("author")
		page := queryInt(c, "page", 1)
		pageSize := queryInt(c, "pageSize", 0)

		books, err := store.ListBooks(c.Request().Context(), author, page, pageSize)
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusOK, books)
	}
}

func postBooks(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			Title  string `json:"title"`
			Author string `json:"author"`
			Copies int    `json:"copies"`
		}
		if err := web.DecodeJSON(c, &req); err != nil || req.Title == "" || req.Author == "" {
			return c.JSON(http.StatusBadRequest, web.Err("title and author are required"))
		}
		if req.Copies <= 0 {
			req.Copies = 1
		}
		book, err := store.CreateBook(c.Request().Context(), req.Title, req.Author, req.Copies)
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusCreated, book)
	}
}

func getLoans(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		loans, err := store.ListLoans(c.Request().Context())
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusOK, loans)
	}
}

func postBorrow(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			MemberID int64 `json:"member_id"`
			BookID   int64 `json:"book_id"`
			Days     int   `json:"days"`
		}
		if err := web.DecodeJSON(c, &req); err != nil || req.MemberID <= 0 || req.BookID <= 0 {
			return c.JSON(http.StatusBadRequest, web.Err("member_id and book_id are required"))
		}

		loan, err := store.Borrow(c.Request().Context(), req.MemberID, req.BookID, req.Days)
		switch {
		case errors.Is(err, ErrMemberNotFound):
			return c.JSON(http.StatusNotFound, web.Err("Member not found"))
		case errors.Is(err, ErrBookNotFound):
			return c.JSON(http.StatusNotFound, web.Err("Book not found"))
		case errors.Is(err, ErrNoCopies):
			return c.JSON(http.StatusConflict, web.Err("No copies available"))
		case err != nil:
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusCreated, loan)
	}
}

func postReturn(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			LoanID int64 `json:"loan_id"`
		}
		if err := web.DecodeJSON(c, &req); err != nil || req.LoanID <= 0 {
			return c.JSON(http.StatusBadRequest, web.Err("loan_id is required"))
		}

		returnDate, err := store.Return(c.Request().Context(), req.LoanID)
		switch {
		case errors.Is(err, ErrLoanNotFound):
			return c.JSON(http.StatusNotFound, web.Err("Loan not found"))
		case errors.Is(err, ErrAlreadyReturned):
			return c.JSON(http.StatusConflict, web.Err("Already returned"))
		case err != nil:
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusOK, map[string]any{
			"id":          req.LoanID,
			"return_date": returnDate,
		})
	}
}

func getOverdue(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		overdue, err := store.OverdueLoans(c.Request().Context())
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusOK, overdue)
	}
}
