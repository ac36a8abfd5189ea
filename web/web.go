// Package web assembles the echo instance shared by the lab apps: CORS,
// prometheus middleware, request logging and the health endpoint.
package web

import (
	"io"
	"net/http"
	"os"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
)

// Bodies larger than this are truncated during decode; the lab payloads are
// tiny, this only guards against runaway requests.
const maxBodySize = 1 << 20

// New builds an echo instance with the middleware stack every app uses.
// app names the prometheus subsystem.
func New(app string, logger *log.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem: app,
	}))
	e.Use(RequestLogger(logger))

	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/api/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	return e
}

// Static serves the frontend files from root when one is configured.
func Static(e *echo.Echo, root string) {
	if root == "" {
		return
	}
	e.Static("/", root)
}

// ListenAddr resolves the listen address from PORT, defaulting to 3000.
func ListenAddr() string {
	if v, ok := os.LookupEnv("PORT"); ok && v != "" {
		return ":" + v
	}
	return ":3000"
}

// DecodeJSON strictly decodes the request body into v. Unknown fields are
// rejected so contract drift surfaces as a 400 instead of silent data loss.
func DecodeJSON(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
