package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityHeaders returns an Echo middleware that adds defensive headers to
// every response. Hop-by-hop header handling is deliberately NOT done here:
// the forwarding core must see the inbound Connection value intact to
// compute the dynamic hop-by-hop set before dropping it.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Set before the handler runs: the proxy handler commits the
			// status line while streaming, after which header writes are
			// silently dropped.
			c.Response().Header().Set("X-Content-Type-Options", "nosniff")
			c.Response().Header().Set("X-Frame-Options", "DENY")

			return next(c)
		}
	}
}
