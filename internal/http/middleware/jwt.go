package middleware

import (
	"net/http"
	"strings"

	"tictactoe_live/internal/service"

	"github.com/gin-gonic/gin"
)

// Context keys set by the JWT middlewares.
const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
)

func bearer(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("token")
}

// JWT requires a valid session token.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token required", "reason": "unauthorized"})
			return
		}
		claims, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "reason": "unauthorized"})
			return
		}
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUsername, claims.Username)
		c.Next()
	}
}

// OptionalJWT lets guests through. A token that is present but invalid is
// still rejected.
func OptionalJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.Next()
			return
		}
		claims, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "reason": "unauthorized"})
			return
		}
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUsername, claims.Username)
		c.Next()
	}
}

// Identity returns the signed-in username, nil for guests.
func Identity(c *gin.Context) *string {
	v, ok := c.Get(CtxUsername)
	if !ok {
		return nil
	}
	name, ok := v.(string)
	if !ok || name == "" {
		return nil
	}
	return &name
}
