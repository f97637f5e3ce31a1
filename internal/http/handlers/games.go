package handlers

import (
	"net/http"
	"strconv"

	"tictactoe_live/internal/domain"
	"tictactoe_live/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

type createGameRequest struct {
	PlayAgainstBot bool `json:"playAgainstBot"`
}

type joinGameRequest struct {
	GameKey string `json:"gameKey"`
}

type moveRequest struct {
	Position *int   `json:"position"`
	GameKey  string `json:"gameKey"`
}

// CreateGame starts a game for the caller. Guests always face the bot.
func (h *Handler) CreateGame(c *gin.Context) {
	var req createGameRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	snap, err := h.Games.Create(c.Request.Context(), middleware.Identity(c), req.PlayAgainstBot)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (h *Handler) JoinGame(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}
	var req joinGameRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	snap, err := h.Games.Join(c.Request.Context(), id, middleware.Identity(c), req.GameKey)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) GetGame(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}
	snap, err := h.Games.View(c.Request.Context(), id)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// MakeMove is the HTTP variant of the makeMove action. It goes through the
// same admission path as the websocket.
func (h *Handler) MakeMove(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Position == nil {
		badRequest(c, "position is required")
		return
	}

	snap, err := h.Games.Submit(c.Request.Context(), domain.MoveRequest{
		GameID:   id,
		Position: *req.Position,
		Mover:    middleware.Identity(c),
		Secret:   req.GameKey,
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) GameMoves(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}
	moves, err := h.Games.Moves(c.Request.Context(), id)
	if err != nil {
		abortWith(c, err)
		return
	}
	if moves == nil {
		moves = []domain.Move{}
	}
	c.JSON(http.StatusOK, gin.H{"moves": moves})
}

// ListGames pages through games newest first; ?before= is the last seen id.
func (h *Handler) ListGames(c *gin.Context) {
	before, limit, ok := page(c, h.ListLimit)
	if !ok {
		return
	}
	games, err := h.Games.List(c.Request.Context(), before, limit)
	if err != nil {
		abortWith(c, err)
		return
	}
	writeGames(c, games)
}

func (h *Handler) UserGames(c *gin.Context) {
	before, limit, ok := page(c, h.ListLimit)
	if !ok {
		return
	}
	games, err := h.Games.ListUser(c.Request.Context(), c.Param("username"), before, limit)
	if err != nil {
		abortWith(c, err)
		return
	}
	writeGames(c, games)
}

func writeGames(c *gin.Context, games []*domain.Snapshot) {
	if games == nil {
		games = []*domain.Snapshot{}
	}
	var next *int64
	if n := len(games); n > 0 {
		next = &games[n-1].GameID
	}
	c.JSON(http.StatusOK, gin.H{"games": games, "next": next})
}

func gameID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid game id")
		return 0, false
	}
	return id, true
}

func page(c *gin.Context, defLimit int) (int64, int, bool) {
	before, ok := queryInt(c, "before", 0)
	if !ok {
		return 0, 0, false
	}
	limit, ok := queryInt(c, "limit", defLimit)
	if !ok {
		return 0, 0, false
	}
	return before, int(limit), true
}

func queryInt(c *gin.Context, key string, def int) (int64, bool) {
	v := c.Query(key)
	if v == "" {
		return int64(def), true
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		badRequest(c, "invalid "+key)
		return 0, false
	}
	return n, true
}
