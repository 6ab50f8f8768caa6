package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "belegwerk/internal/core/context"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
)

// UserContext extracts the acting user from request headers and adds it
// to the request context. The identity is trusted as-is: authentication
// is handled upstream (reverse proxy / gateway).
//
// The user ID ends up in audit entries and anomaly resolutions.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			c.Next()
			return
		}

		ctx := appctx.WithUser(c.Request.Context(), &appctx.UserContext{
			UserID: userID,
			Email:  c.GetHeader(HeaderUserEmail),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Set("user_id", userID)
		c.Next()
	}
}
