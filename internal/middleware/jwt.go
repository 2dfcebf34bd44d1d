package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/book-network/internal/service"
)

// IdentityResolver turns a raw bearer token into the caller identity.
// service.AuthService implements it.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (service.Identity, error)
}

// BearerAuth validates the Authorization header and stores the resolved
// identity in the context. Failures are returned as errors so that the
// echo error handler renders them like any other service error.
func BearerAuth(resolver IdentityResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			id, err := resolver.ResolveIdentity(ctx, raw)
			if err != nil {
				return err
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}
