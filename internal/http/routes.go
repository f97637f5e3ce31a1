package http

import (
	"time"

	"tictactoe_live/internal/http/handlers"
	"tictactoe_live/internal/http/middleware"
	"tictactoe_live/internal/ws"

	"github.com/gin-gonic/gin"
)

// Limits groups the rate limits applied to the API.
type Limits struct {
	APIRate        int
	APIRateWindow  time.Duration
	MoveRate       int
	MoveRateWindow time.Duration
}

// Deps is everything the routes need.
type Deps struct {
	Handler    *handlers.Handler
	Health     *handlers.HealthHandler
	Hub        *ws.Hub
	Dispatcher *ws.Dispatcher
	Origin     string
	Limits     Limits
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)

	apiRate, apiWindow := d.Limits.APIRate, d.Limits.APIRateWindow
	if apiRate <= 0 {
		apiRate = 60
	}
	if apiWindow <= 0 {
		apiWindow = time.Minute
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(apiRate, apiWindow))
	registerAPIRoutes(v1, d.Handler, d.Limits)

	r.GET("/ws", ws.HandleWS(d.Hub, d.Dispatcher, d.Origin))
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, limits Limits) {
	api.POST("/auth", h.Auth)
	api.GET("/me", middleware.JWT(), h.Me)

	moveRate, moveWindow := limits.MoveRate, limits.MoveRateWindow
	if moveRate <= 0 {
		moveRate = 60
	}
	if moveWindow <= 0 {
		moveWindow = time.Minute
	}
	moveRL := middleware.MoveRateLimit(moveRate, moveWindow)

	games := api.Group("/games")
	{
		games.GET("", h.ListGames)
		games.POST("", middleware.OptionalJWT(), h.CreateGame)
		games.GET("/:id", h.GetGame)
		games.POST("/:id/join", middleware.OptionalJWT(), h.JoinGame)
		games.GET("/:id/moves", h.GameMoves)
		games.POST("/:id/moves", middleware.OptionalJWT(), moveRL, h.MakeMove)
	}

	api.GET("/users", h.GetLeaderboard)
	api.GET("/users/:username/games", h.UserGames)
}
