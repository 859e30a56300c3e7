// Package middleware provides Echo middleware for logging, metrics, and
// security headers.
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger returns an Echo middleware that logs each forwarded request
// with slog. The remote address is the TCP peer, not a trusted forwarding
// header: this proxy appends to X-Forwarded-For itself and must not log a
// spoofable value as the client.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			logger.Info("request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
				"remote_addr", req.RemoteAddr,
				"bytes_out", res.Size,
			)

			return err
		}
	}
}
