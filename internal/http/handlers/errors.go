package handlers

import (
	"net/http"

	"tictactoe_live/internal/game"
	"tictactoe_live/internal/logger"

	"github.com/gin-gonic/gin"
)

var statusByReason = map[string]int{
	"not_found":         http.StatusNotFound,
	"already_started":   http.StatusConflict,
	"game_finished":     http.StatusConflict,
	"not_started":       http.StatusConflict,
	"wrong_turn":        http.StatusConflict,
	"conflict":          http.StatusConflict,
	"self_play":         http.StatusForbidden,
	"unauthorized":      http.StatusForbidden,
	"invalid_position":  http.StatusBadRequest,
	"malformed_request": http.StatusBadRequest,
}

// abortWith writes the rejection body for err. Internal failures are logged
// and reported without detail.
func abortWith(c *gin.Context, err error) {
	reason := game.Reason(err)
	status, ok := statusByReason[reason]
	if !ok {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "reason": "internal"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "reason": reason})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "reason": "malformed_request"})
}
