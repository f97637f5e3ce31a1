package handlers

import (
	"net/http"

	"tictactoe_live/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Me(c *gin.Context) {
	who := middleware.Identity(c)
	if who == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found", "reason": "unauthorized"})
		return
	}

	user, err := h.Users.GetByUsername(c.Request.Context(), *who)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found", "reason": "not_found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"tg_id":      user.TgID,
		"username":   user.Username,
		"first_name": user.FirstName,
		"created_at": user.CreatedAt,
	})
}
