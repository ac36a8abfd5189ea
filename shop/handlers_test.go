package shop

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type mockStore struct {
	products     []Product
	createErr    error
	existing     map[int64]bool
	existsErr    error
	checkoutID   int64
	checkoutSum  float64
	checkoutErr  error
	checkoutGot  []CartLine
	detailsItems []CartItem
	detailsTotal float64
}

func (m *mockStore) ListProducts(context.Context) ([]Product, error) {
	return m.products, nil
}

func (m *mockStore) CreateProduct(_ context.Context, name string, price float64) (Product, error) {
	if m.createErr != nil {
		return Product{}, m.createErr
	}
	return Product{ID: 1, Name: name, Price: price}, nil
}

func (m *mockStore) ProductExists(_ context.Context, id int64) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.existing[id], nil
}

func (m *mockStore) CartDetails(_ context.Context, lines []CartLine) ([]CartItem, float64, error) {
	return m.detailsItems, m.detailsTotal, nil
}

func (m *mockStore) Checkout(_ context.Context, lines []CartLine) (int64, float64, error) {
	m.checkoutGot = lines
	if m.checkoutErr != nil {
		return 0, 0, m.checkoutErr
	}
	return m.checkoutID, m.checkoutSum, nil
}

func newTestEnv(store Store, cart CartStore) *echo.Echo {
	e := echo.New()
	logger := log.New()
	logger.SetOutput(io.Discard)
	Register(e, store, cart, logger)
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

func TestPostProductsValidation(t *testing.T) {
	e := newTestEnv(&mockStore{}, NewMemoryCart())

	for _, body := range []string{
		`{}`,
		`{"name":""}`,
		`{"name":"X","price":-1}`,
		`{"price":10}`,
	} {
		rec := doJSON(t, e, http.MethodPost, "/api/products", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
	}

	rec := doJSON(t, e, http.MethodPost, "/api/products", `{"name":"Free","price":0}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("zero price should be accepted, got %d: %s", rec.Code, rec.Body)
	}
}

func TestCartAddFlow(t *testing.T) {
	store := &mockStore{existing: map[int64]bool{1: true}}
	e := newTestEnv(store, NewMemoryCart())

	rec := doJSON(t, e, http.MethodPost, "/api/cart/add", `{"product_id":1,"qty":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("qty 0: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, e, http.MethodPost, "/api/cart/add", `{"product_id":7,"qty":1}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown product: expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, e, http.MethodPost, "/api/cart/add", `{"product_id":1,"qty":2}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	rec = doJSON(t, e, http.MethodPost, "/api/cart/add", `{"product_id":1,"qty":3}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp struct {
		ProductID int64 `json:"product_id"`
		Qty       int   `json:"qty"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Qty != 5 {
		t.Fatalf("expected accumulated qty 5, got %d", resp.Qty)
	}
}

func TestPatchCartItem(t *testing.T) {
	store := &mockStore{existing: map[int64]bool{1: true, 2: true}}
	cart := NewMemoryCart()
	if _, err := cart.Add(context.Background(), 1, 1); err != nil {
		t.Fatal(err)
	}
	e := newTestEnv(store, cart)

	rec := doJSON(t, e, http.MethodPatch, "/api/cart/item", `{"product_id":2,"qty":4}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("product not in cart: expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, e, http.MethodPatch, "/api/cart/item", `{"product_id":1,"qty":4}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
}

func TestDeleteCartItem(t *testing.T) {
	cart := NewMemoryCart()
	if _, err := cart.Add(context.Background(), 3, 1); err != nil {
		t.Fatal(err)
	}
	e := newTestEnv(&mockStore{}, cart)

	rec := doJSON(t, e, http.MethodDelete, "/api/cart/item/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodDelete, "/api/cart/item/3", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodDelete, "/api/cart/item/3", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("already removed: expected 404, got %d", rec.Code)
	}
}

func TestGetCartEmpty(t *testing.T) {
	e := newTestEnv(&mockStore{}, NewMemoryCart())

	rec := doJSON(t, e, http.MethodGet, "/api/cart", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp cartResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Items == nil || len(resp.Items) != 0 || resp.Total != 0 {
		t.Fatalf("expected empty cart shape, got %s", rec.Body)
	}
}

func TestCheckout(t *testing.T) {
	t.Run("empty cart", func(t *testing.T) {
		e := newTestEnv(&mockStore{}, NewMemoryCart())
		rec := doJSON(t, e, http.MethodPost, "/api/checkout", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Cart is empty") {
			t.Fatalf("unexpected body: %s", rec.Body)
		}
	})

	t.Run("missing product", func(t *testing.T) {
		store := &mockStore{checkoutErr: ErrProductMissing}
		cart := NewMemoryCart()
		_, _ = cart.Add(context.Background(), 1, 1)
		e := newTestEnv(store, cart)

		rec := doJSON(t, e, http.MethodPost, "/api/checkout", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Some products not found") {
			t.Fatalf("unexpected body: %s", rec.Body)
		}
		// The cart must survive a failed checkout.
		lines, _ := cart.Lines(context.Background())
		if len(lines) != 1 {
			t.Fatalf("failed checkout emptied the cart")
		}
	})

	t.Run("success clears cart", func(t *testing.T) {
		store := &mockStore{checkoutID: 12, checkoutSum: 25}
		cart := NewMemoryCart()
		_, _ = cart.Add(context.Background(), 1, 2)
		e := newTestEnv(store, cart)

		rec := doJSON(t, e, http.MethodPost, "/api/checkout", "")
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
		}
		var resp struct {
			OrderID int64   `json:"order_id"`
			Total   float64 `json:"total"`
		}
		if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.OrderID != 12 || resp.Total != 25 {
			t.Fatalf("unexpected response: %+v", resp)
		}
		if len(store.checkoutGot) != 1 || store.checkoutGot[0].Qty != 2 {
			t.Fatalf("checkout received wrong lines: %+v", store.checkoutGot)
		}
		lines, _ := cart.Lines(context.Background())
		if len(lines) != 0 {
			t.Fatalf("cart not cleared after checkout")
		}
	})

	t.Run("storage failure", func(t *testing.T) {
		store := &mockStore{checkoutErr: errors.New("disk on fire")}
		cart := NewMemoryCart()
		_, _ = cart.Add(context.Background(), 1, 1)
		e := newTestEnv(store, cart)

		rec := doJSON(t, e, http.MethodPost, "/api/checkout", "")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}
