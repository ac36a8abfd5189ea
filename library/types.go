package library

// Member is a registered library member.
type Member struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Book carries the catalog row plus the number of copies not currently
// on loan.
type Book struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Copies    int    `json:"copies"`
	Available int    `json:"available"`
}

// Loan is the joined loan row returned by the loan listing.
type Loan struct {
	ID          int64   `json:"id"`
	MemberID    int64   `json:"member_id"`
	MemberName  string  `json:"member_name"`
	MemberEmail string  `json:"member_email"`
	BookID      int64   `json:"book_id"`
	BookTitle   string  `json:"book_title"`
	BookAuthor  string  `json:"book_author"`
	LoanDate    string  `json:"loan_date"`
	DueDate     string  `json:"due_date"`
	ReturnDate  *string `json:"return_date"`
}

// NewLoan is the response shape for a freshly created loan.
type NewLoan struct {
	ID         int64   `json:"id"`
	MemberID   int64   `json:"member_id"`
	BookID     int64   `json:"book_id"`
	LoanDate   string  `json:"loan_date"`
	DueDate    string  `json:"due_date"`
	ReturnDate *string `json:"return_date"`
}

// OverdueLoan is an active loan past its due date.
type OverdueLoan struct {
	ID          int64  `json:"id"`
	MemberName  string `json:"member_name"`
	MemberEmail string `json:"member_email"`
	BookTitle   string `json:"book_title"`
	BookAuthor  string `json:"book_author"`
	LoanDate    string `json:"loan_date"`
	DueDate     string `json:"due_date"`
}
