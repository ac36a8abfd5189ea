package shop

// Product is a catalog row.
type Product struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// CartLine is the raw cart content: a product reference and a quantity.
type CartLine struct {
	ProductID int64
	Qty       int
}

// CartItem is a cart line joined with current product data for display.
type CartItem struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Qty       int     `json:"qty"`
	LineTotal float64 `json:"line_total"`
}
