package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/explorer/common/clients"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UsernameKey is the echo context key holding the caller's user id
	UsernameKey ContextKey = "username"

	// UserHeader carries the caller's user id
	UserHeader = clients.UserHeader
)

// ExtractUsername reads the X-User-ID header into the echo context and the
// request context. Tags created during the request record it as created_by.
//
// Requests without the header pass through anonymously.
func ExtractUsername() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			username := c.Request().Header.Get(UserHeader)

			if username != "" {
				c.Set(string(UsernameKey), username)

				req := c.Request()
				c.SetRequest(req.WithContext(clients.WithUserID(req.Context(), username)))
			}

			return next(c)
		}
	}
}

// ExtractUsernameStrict is ExtractUsername that rejects anonymous requests
func ExtractUsernameStrict() echo.MiddlewareFunc {
	extract := ExtractUsername()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		inner := extract(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get(UserHeader) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error": "X-User-ID header is required",
				})
			}
			return inner(c)
		}
	}
}

// GetUsername retrieves the username from the echo context
// Returns empty string if not set
func GetUsername(c echo.Context) string {
	username, _ := c.Get(string(UsernameKey)).(string)
	return username
}
