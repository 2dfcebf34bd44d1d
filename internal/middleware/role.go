package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/book-network/internal/service"
)

// RequireRole lets the request through when the authenticated identity
// holds at least one of roles. It must run after BearerAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := CurrentIdentity(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			for _, r := range roles {
				if id.HasRole(r) {
					return next(c)
				}
			}
			return fmt.Errorf("%w: missing required role", service.ErrNotPermitted)
		}
	}
}
