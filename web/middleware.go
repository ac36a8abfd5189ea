package web

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// RequestLogger sets the security headers, assigns a request ID when the
// client did not send one, and logs one line per request with timing.
func RequestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()

			res.Header().Set("X-Content-Type-Options", "nosniff")
			res.Header().Set("Cache-Control", "no-store")

			reqID := req.Header.Get(echo.HeaderXRequestID)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			res.Header().Set(echo.HeaderXRequestID, reqID)

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.WithFields(log.Fields{
				"method":      req.Method,
				"path":        req.URL.Path,
				"status":      res.Status,
				"duration_ms": float64(time.Since(start)) / float64(time.Millisecond),
				"request_id":  reqID,
			}).Info("request")
			return err
		}
	}
}
