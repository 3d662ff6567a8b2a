package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey    = "userId"
	anonymousKey = "isAnonymous"
)

// Identity extracts the caller's user ID from the Authorization header.
// Anonymous submissions are allowed, so a missing or empty header is not an
// error: the request proceeds with no user ID and quota checks are skipped
// downstream. Token verification belongs to the upstream auth provider; by
// the time requests reach this service the bearer value is the user ID.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if strings.HasPrefix(authHeader, "Bearer ") {
			if userID := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")); userID != "" {
				c.Set(userIDKey, userID)
				c.Set(anonymousKey, false)
				c.Next()
				return
			}
		}

		c.Set(anonymousKey, true)
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the Identity middleware.
// Returns "" for anonymous callers.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
