package middleware

import (
	"net/http"

	"haca/internal/utils"

	"github.com/gin-gonic/gin"
)

// RequireAuth rejects requests without a valid bearer token. It lets every
// request through when authentication is disabled.
func (m *MiddlewareManager) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.auth.Enabled() {
			c.Next()
			return
		}
		user, err := m.auth.ValidateTokenJWT(c, c.GetHeader("Authorization"))
		if err != nil {
			utils.Logger("WEB").Debugf("Authentication error: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
			return
		}

		c.Set("user", user)

		c.Next()
	}
}
