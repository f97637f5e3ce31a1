package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetLeaderboard returns users ordered by wins.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit, ok := queryInt(c, "limit", h.ListLimit)
	if !ok {
		return
	}
	top, err := h.Games.Leaderboard(c.Request.Context(), int(limit))
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": top})
}
