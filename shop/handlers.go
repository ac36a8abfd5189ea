package shop

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"weblabs/web"
)

// Store abstracts catalog and order persistence for handlers.
type Store interface {
	ListProducts(ctx context.Context) ([]Product, error)
	CreateProduct(ctx context.Context, name string, price float64) (Product, error)
	ProductExists(ctx context.Context, id int64) (bool, error)
	CartDetails(ctx context.Context, lines []CartLine) ([]CartItem, float64, error)
	Checkout(ctx context.Context, lines []CartLine) (int64, float64, error)
}

type cartResponse struct {
	Items []CartItem `json:"items"`
	Total float64    `json:"total"`
}

// Register wires up the shop routes on the provided Echo instance.
func Register(e *echo.Echo, store Store, cart CartStore, logger *log.Logger) {
	e.GET("/api/products", getProducts(store, logger))
	e.POST("/api/products", postProducts(store, logger))
	e.GET("/api/cart", getCart(store, cart, logger))
	e.POST("/api/cart/add", postCartAdd(store, cart, logger))
	e.PATCH("/api/cart/item", patchCartItem(store, cart, logger))
	e.DELETE("/api/cart/item/:product_id", deleteCartItem(cart, logger))
	e.POST("/api/checkout", postCheckout(store, cart, logger))
}

func dbError(c echo.Context, logger *log.Logger, err error) error {
	logger.WithError(err).Error("storage failure")
	return c.JSON(http.StatusInternalServerError, web.Err(web.MsgDBError))
}

func getProducts(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		products, err := store.ListProducts(c.Request().Context())
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusOK, products)
	}
}

func postProducts(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			Name  string   `json:"name"`
			Price *float64 `json:"price"`
		}
		if err := web.DecodeJSON(c, &req); err != nil || req.Name == "" || req.Price == nil || *req.Price < 0 {
			return c.JSON(http.StatusBadRequest,
				web.Err("Invalid payload: name and price >= 0 are required"))
		}
		product, err := store.CreateProduct(c.Request().Context(), req.Name, *req.Price)
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusCreated, product)
	}
}

func getCart(store Store, cart CartStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		lines, err := cart.Lines(ctx)
		if err != nil {
			return dbError(c, logger, err)
		}
		if len(lines) == 0 {
			return c.JSON(http.StatusOK, cartResponse{Items: []CartItem{}})
		}
		items, total, err := store.CartDetails(ctx, lines)
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusOK, cartResponse{Items: items, Total: total})
	}
}

func postCartAdd(store Store, cart CartStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			ProductID int64 `json:"product_id"`
			Qty       int   `json:"qty"`
		}
		if err := web.DecodeJSON(c, &req); err != nil || req.ProductID <= 0 || req.Qty <= 0 {
			return c.JSON(http.StatusBadRequest,
				web.Err("Invalid payload: product_id and qty > 0 are required"))
		}

		ctx := c.Request().Context()
		exists, err := store.ProductExists(ctx, req.ProductID)
		if err != nil {
			return dbError(c, logger, err)
		}
		if !exists {
			return c.JSON(http.StatusNotFound, web.Err("Product not found"))
		}

		newQty, err := cart.Add(ctx, req.ProductID, req.Qty)
		if err != nil {
			return dbError(c, logger, err)
		}
		return c.JSON(http.StatusCreated, map[string]any{
			"product_id": req.ProductID,
			"qty":        newQty,
		})
	}
}

func patchCartItem(store Store, cart CartStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			ProductID int64 `json:"product_id"`
			Qty       int   `json:"qty"`
		}
		if err := web.DecodeJSON(c, &req); err != nil || req.ProductID <= 0 || req.Qty <= 0 {
			return c.JSON(http.StatusBadRequest,
				web.Err("Invalid payload: product_id and qty > 0 are required"))
		}

		ctx := c.Request().Context()
		exists, err := store.ProductExists(ctx, req.ProductID)
		if err != nil {
			return dbError(c, logger, err)
		}
		if !exists {
			return c.JSON(http.StatusNotFound, web.Err("Product not found"))
		}

		inCart, err := cart.Set(ctx, req.ProductID, req.Qty)
		if err != nil {
			return dbError(c, logger, err)
		}
		if !inCart {
			return c.JSON(http.StatusNotFound, web.Err("Product not in cart"))
		}
		return c.JSON(http.StatusOK, map[string]any{
			"product_id": req.ProductID,
			"qty":        req.Qty,
		})
	}
}

func deleteCartItem(cart CartStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
		if err != nil || productID <= 0 {
			return c.JSON(http.StatusBadRequest, web.Err("Invalid product_id"))
		}

		removed, err := cart.Remove(c.Request().Context(), productID)
		if err != nil {
			return dbError(c, logger, err)
		}
		if !removed {
			return c.JSON(http.StatusNotFound, web.Err("Product not in cart"))
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func postCheckout(store Store, cart CartStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		lines, err := cart.Lines(ctx)
		if err != nil {
			return dbError(c, logger, err)
		}
		if len(lines) == 0 {
			return c.JSON(http.StatusBadRequest, web.Err("Cart is empty"))
		}

		orderID, total, err := store.Checkout(ctx, lines)
		if errors.Is(err, ErrProductMissing) {
			return c.JSON(http.StatusBadRequest, web.Err("Some products not found"))
		}
		if err != nil {
			return dbError(c, logger, err)
		}

		// The order is committed; an empty cart is the success signal.
		if err := cart.Clear(ctx); err != nil {
			logger.WithError(err).Warn("cart clear after checkout failed")
		}
		return c.JSON(http.StatusCreated, map[string]any{
			"order_id": orderID,
			"total":    total,
		})
	}
}
