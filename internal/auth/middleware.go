package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const AdminHeader = "X-Admin-Secret"

// AdminMiddleware admits requests carrying secret in X-Admin-Secret or as a Bearer token.
func AdminMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server admin configuration error"})
			}

			if matches(c.Request().Header.Get(AdminHeader), secret) {
				return next(c)
			}
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") && matches(authHeader[7:], secret) {
				return next(c)
			}

			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized admin access"})
		}
	}
}

func matches(got, want string) bool {
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
