package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/book-network/internal/service"
)

// identityKey is the echo context key holding the caller's
// service.Identity.
const identityKey = "identity"

// SetIdentity attaches id to the request.
func SetIdentity(c echo.Context, id service.Identity) {
	c.Set(identityKey, id)
}

// CurrentIdentity returns the identity stored by BearerAuth.
func CurrentIdentity(c echo.Context) (service.Identity, bool) {
	id, ok := c.Get(identityKey).(service.Identity)
	return id, ok
}

// userID is the caller id used in rate limit and cache keys, or "anon"
// before authentication.
func userID(c echo.Context) string {
	if id, ok := CurrentIdentity(c); ok {
		return strconv.FormatUint(id.UserID, 10)
	}
	return "anon"
}
