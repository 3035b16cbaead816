// Package auth carries the thin request-identity middleware. Login and
// session creation live in the external identity service; these handlers
// only read what it put in the session cookie.
package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// RequireAuth ensures the request carries an authenticated session and
// exposes the user identity to downstream handlers.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get("user_id")

		if userID == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "authentication required",
			})
			return
		}

		c.Set("user_id", userID)
		c.Set("user_email", session.Get("user_email"))
		c.Set("user_role", session.Get("user_role"))

		c.Next()
	}
}

// RequireAdmin must run after RequireAuth; it gates the manual batch
// trigger and other debugging surfaces.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("user_role")
		if role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "admin access required",
			})
			return
		}
		c.Next()
	}
}

// RequireCronSecret authenticates the scheduled trigger with a shared
// secret header. An empty configured secret rejects everything.
func RequireCronSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Cron-Secret")
		if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid cron secret",
			})
			return
		}
		c.Next()
	}
}
