package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// UserIDKey is the context key for the caller's identity. The value
// doubles as the per-user rate limit key.
const UserIDKey ContextKey = "user_id"

// ExtractUserID reads the X-User-ID header injected by the
// authentication layer in front of this service and stores it in the
// request context. Extraction is lenient: routes that need identity
// enforce it themselves, and public reads (catalog metadata,
// capability blob URLs) work without it.
func ExtractUserID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if userID := c.Request().Header.Get("X-User-ID"); userID != "" {
				c.Set(string(UserIDKey), userID)
			}
			return next(c)
		}
	}
}

// GetUserID retrieves the caller's id from the request context,
// empty for anonymous requests.
func GetUserID(c echo.Context) string {
	userID := c.Get(string(UserIDKey))
	if userID == nil {
		return ""
	}
	return userID.(string)
}

// RequireInternal gates operator-only routes behind the shared
// internal-service secret carried in X-Internal-Service.
func RequireInternal() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("X-Internal-Service")
			secret := os.Getenv("INTERNAL_SERVICE_SECRET")
			if secret == "" {
				secret = "default-internal-secret-change-in-prod" // Fallback for dev
			}

			if header == "" || subtle.ConstantTimeCompare([]byte(header), []byte(secret)) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error":   "unauthorized",
					"message": "Authentication required.",
				})
			}

			return next(c)
		}
	}
}
