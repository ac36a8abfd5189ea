package shop

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"weblabs/sqlitex"
)

// ErrProductMissing signals that a cart references a product that no longer
// exists; checkout aborts with zero side effects.
var ErrProductMissing = errors.New("product missing")

var schema = []string{
	`PRAGMA foreign_keys = ON;`,
	`CREATE TABLE IF NOT EXISTS products (
		id    INTEGER PRIMARY KEY AUTOINCREMENT,
		name  TEXT NOT NULL,
		price REAL NOT NULL CHECK (price >= 0)
	);`,
	`CREATE TABLE IF NOT EXISTS orders (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%S', 'now'))
	);`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id   INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		qty        INTEGER NOT NULL CHECK (qty > 0),
		price      REAL NOT NULL,
		FOREIGN KEY(order_id) REFERENCES orders(id) ON DELETE CASCADE,
		FOREIGN KEY(product_id) REFERENCES products(id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);`,
}

// Storage persists products and orders in sqlite.
type Storage struct {
	db *sql.DB
}

func New(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// Init creates the schema and seeds demo products into an empty table.
func (s *Storage) Init(ctx context.Context) error {
	if err := sqlitex.Migrate(ctx, s.db, schema); err != nil {
		return err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		_, err := s.db.ExecContext(ctx, `INSERT INTO products(name, price) VALUES
			('Klawiatura', 129.99),
			('Mysz', 79.90),
			('Monitor', 899.0)`)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, price FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Storage) CreateProduct(ctx context.Context, name string, price float64) (Product, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO products(name, price) VALUES (?, ?)`, name, price)
	if err != nil {
		return Product{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Product{}, err
	}
	return Product{ID: id, Name: name, Price: price}, nil
}

func (s *Storage) ProductExists(ctx context.Context, id int64) (bool, error) {
	var got int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM products WHERE id = ?`, id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// productsByID resolves current product rows for the given cart lines using
// the provided querier (plain handle or transaction).
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func productsByID(ctx context.Context, q querier, lines []CartLine) (map[int64]Product, error) {
	if len(lines) == 0 {
		return map[int64]Product{}, nil
	}
	placeholders := make([]string, len(lines))
	args := make([]any, len(lines))
	for i, line := range lines {
		placeholders[i] = "?"
		args[i] = line.ProductID
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, name, price FROM products WHERE id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[int64]Product, len(lines))
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			return nil, err
		}
		byID[p.ID] = p
	}
	return byID, rows.Err()
}

// CartDetails joins cart lines with current product data and totals them.
func (s *Storage) CartDetails(ctx context.Context, lines []CartLine) ([]CartItem, float64, error) {
	byID, err := productsByID(ctx, s.db, lines)
	if err != nil {
		return nil, 0, err
	}

	items := []CartItem{}
	total := 0.0
	for _, line := range lines {
		p, ok := byID[line.ProductID]
		if !ok {
			// Product removed since it was added to the cart; skip the line.
			continue
		}
		lineTotal := p.Price * float64(line.Qty)
		total += lineTotal
		items = append(items, CartItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Qty:       line.Qty,
			LineTotal: lineTotal,
		})
	}
	return items, total, nil
}

// Checkout persists an order with one line item per cart line, stamping the
// unit price current at commit time. Either the order and every line item
// are written, or nothing is: any failure rolls the whole attempt back,
// including the parent order row.
func (s *Storage) Checkout(ctx context.Context, lines []CartLine) (int64, float64, error) {
	var orderID int64
	var total float64

	err := sqlitex.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		byID, err := productsByID(ctx, tx, lines)
		if err != nil {
			return err
		}
		if len(byID) != len(lines) {
			return ErrProductMissing
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO orders DEFAULT VALUES`)
		if err != nil {
			return err
		}
		orderID, err = res.LastInsertId()
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO order_items(order_id, product_id, qty, price) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		total = 0
		for _, line := range lines {
			p := byID[line.ProductID]
			if _, err := stmt.ExecContext(ctx, orderID, line.ProductID, line.Qty, p.Price); err != nil {
				return err
			}
			total += p.Price * float64(line.Qty)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return orderID, total, nil
}
