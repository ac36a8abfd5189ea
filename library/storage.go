package library

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"weblabs/sqlitex"
)

// Errors the handlers translate into 404/409 responses.
var (
	ErrMemberNotFound  = errors.New("member not found")
	ErrBookNotFound    = errors.New("book not found")
	ErrLoanNotFound    = errors.New("loan not found")
	ErrNoCopies        = errors.New("no copies available")
	ErrAlreadyReturned = errors.New("loan already returned")
	ErrEmailExists     = errors.New("email already exists")
)

var schema = []string{
	`PRAGMA foreign_keys = ON;`,
	`CREATE TABLE IF NOT EXISTS members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE
	);`,
	`CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		copies INTEGER NOT NULL CHECK (copies >= 0)
	);`,
	`CREATE TABLE IF NOT EXISTS loans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		member_id INTEGER NOT NULL,
		book_id INTEGER NOT NULL,
		loan_date TEXT NOT NULL,
		due_date TEXT NOT NULL,
		return_date TEXT NULL,
		FOREIGN KEY(member_id) REFERENCES members(id) ON DELETE CASCADE,
		FOREIGN KEY(book_id) REFERENCES books(id) ON DELETE CASCADE
	);`,
}

// Storage persists members, books and loans in sqlite.
type Storage struct {
	db              *sql.DB
	defaultPageSize int
}

// New wraps the given database handle. defaultPageSize applies to the book
// listing when the client does not send pageSize.
func New(db *sql.DB, defaultPageSize int) *Storage {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	return &Storage{db: db, defaultPageSize: defaultPageSize}
}

// Init creates the schema and seeds demo rows into empty tables.
func (s *Storage) Init(ctx context.Context) error {
	if err := sqlitex.Migrate(ctx, s.db, schema); err != nil {
		return err
	}
	return s.seed(ctx)
}

func (s *Storage) seed(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM members`).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		_, err := s.db.ExecContext(ctx, `INSERT INTO members(name, email) VALUES
			('Ala Kowalska', 'ala@example.com'),
			('Jan Nowak', 'jan@example.com')`)
		if err != nil {
			return err
		}
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		_, err := s.db.ExecContext(ctx, `INSERT INTO books(title, author, copies) VALUES
			('Clean Code', 'R. Martin', 3),
			('Domain-Driven Design', 'E. Evans', 2),
			('You Don''t Know JS', 'K. Simpson', 4)`)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) ListMembers(ctx context.Context) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email FROM members ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Email); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *Storage) CreateMember(ctx context.Context, name, email string) (Member, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO members(name, email) VALUES (?, ?)`, name, email)
	if err != nil {
		if sqlitex.IsUniqueViolation(err) {
			return Member{}, ErrEmailExists
		}
		return Member{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Member{}, err
	}
	return Member{ID: id, Name: name, Email: email}, nil
}

// ListBooks returns a page of the catalog with availability, optionally
// filtered by an author substring.
func (s *Storage) ListBooks(ctx context.Context, author string, page, pageSize int) ([]Book, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.defaultPageSize
	}
	offset := (page - 1) * pageSize

	query := `
		SELECT
			b.id,
			b.title,
			b.author,
			b.copies,
			b.copies - COALESCE(a.active, 0) AS available
		FROM books b
		LEFT JOIN (
			SELECT book_id, COUNT(*) AS active
			FROM loans
			WHERE return_date IS NULL
			GROUP BY book_id
		) a ON a.book_id = b.id`
	args := []any{}
	if author != "" {
		query += ` WHERE b.author LIKE ?`
		args = append(args, "%"+author+"%")
	}
	query += ` ORDER BY b.id LIMIT ? OFFSET ?`
	args = append(args, pageSize, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Copies, &b.Available); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *Storage) CreateBook(ctx context.Context, title, author string, copies int) (Book, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO books(title, author, copies) VALUES (?, ?, ?)`,
		title, author, copies)
	if err != nil {
		return Book{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Book{}, err
	}
	return Book{ID: id, Title: title, Author: author, Copies: copies, Available: copies}, nil
}

func (s *Storage) ListLoans(ctx context.Context) ([]Loan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			l.id,
			l.member_id,
			m.name AS member_name,
			m.email AS member_email,
			l.book_id,
			b.title AS book_title,
			b.author AS book_author,
			l.loan_date,
			l.due_date,
			l.return_date
		FROM loans l
		JOIN members m ON m.id = l.member_id
		JOIN books b   ON b.id = l.book_id
		ORDER BY l.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := []Loan{}
	for rows.Next() {
		var l Loan
		if err := rows.Scan(&l.ID, &l.MemberID, &l.MemberName, &l.MemberEmail,
			&l.BookID, &l.BookTitle, &l.BookAuthor, &l.LoanDate, &l.DueDate, &l.ReturnDate); err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// Borrow creates a loan after verifying the member, the book and remaining
// availability. The whole check-and-insert runs in one transaction so a
// conflicting request cannot slip a loan in between the count and the insert.
func (s *Storage) Borrow(ctx context.Context, memberID, bookID int64, days int) (NewLoan, error) {
	if days <= 0 {
		days = 14
	}
	now := time.Now().UTC()
	loanDate := now.Format("2006-01-02")
	dueDate := now.AddDate(0, 0, days).Format("2006-01-02")

	var loan NewLoan
	err := sqlitex.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var id int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM members WHERE id = ?`, memberID).Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrMemberNotFound
			}
			return err
		}

		var copies int
		if err := tx.QueryRowContext(ctx, `SELECT copies FROM books WHERE id = ?`, bookID).Scan(&copies); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrBookNotFound
			}
			return err
		}

		var active int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM loans WHERE book_id = ? AND return_date IS NULL`, bookID).Scan(&active); err != nil {
			return err
		}
		if active >= copies {
			return ErrNoCopies
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO loans(member_id, book_id, loan_date, due_date) VALUES (?, ?, ?, ?)`,
			memberID, bookID, loanDate, dueDate)
		if err != nil {
			return err
		}
		loanID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		loan = NewLoan{
			ID:       loanID,
			MemberID: memberID,
			BookID:   bookID,
			LoanDate: loanDate,
			DueDate:  dueDate,
		}
		return nil
	})
	if err != nil {
		return NewLoan{}, err
	}
	return loan, nil
}

// Return stamps today's date on an active loan. Returning an already
// returned loan is a conflict and leaves return_date untouched.
func (s *Storage) Return(ctx context.Context, loanID int64) (string, error) {
	returnDate := time.Now().UTC().Format("2006-01-02")

	err := sqlitex.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var existing sql.NullString
		if err := tx.QueryRowContext(ctx,
			`SELECT return_date FROM loans WHERE id = ?`, loanID).Scan(&existing); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrLoanNotFound
			}
			return err
		}
		if existing.Valid {
			return ErrAlreadyReturned
		}
		_, err := tx.ExecContext(ctx, `UPDATE loans SET return_date = ? WHERE id = ?`, returnDate, loanID)
		return err
	})
	if err != nil {
		return "", err
	}
	return returnDate, nil
}

func (s *Storage) OverdueLoans(ctx context.Context) ([]OverdueLoan, error) {
	today := time.Now().UTC().Format("2006-01-02")

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			l.id,
			m.name AS member_name,
			m.email AS member_email,
			b.title AS book_title,
			b.author AS book_author,
			l.loan_date,
			l.due_date
		FROM loans l
		JOIN members m ON m.id = l.member_id
		JOIN books b   ON b.id = l.book_id
		WHERE l.return_date IS NULL
		  AND l.due_date < ?
		ORDER BY l.due_date ASC`, today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overdue := []OverdueLoan{}
	for rows.Next() {
		var o OverdueLoan
		if err := rows.Scan(&o.ID, &o.MemberName, &o.MemberEmail,
			&o.BookTitle, &o.BookAuthor, &o.LoanDate, &o.DueDate); err != nil {
			return nil, err
		}
		overdue = append(overdue, o)
	}
	return overdue, rows.Err()
}
