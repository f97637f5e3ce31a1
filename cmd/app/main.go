package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tictactoe_live/internal/bot"
	"tictactoe_live/internal/config"
	"tictactoe_live/internal/db"
	httpServer "tictactoe_live/internal/http"
	"tictactoe_live/internal/http/handlers"
	"tictactoe_live/internal/http/middleware"
	"tictactoe_live/internal/logger"
	"tictactoe_live/internal/notify"
	"tictactoe_live/internal/repository"
	"tictactoe_live/internal/service"
	"tictactoe_live/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	checks := map[string]handlers.Pinger{}

	var (
		games repository.GameStore
		users repository.UserStore
	)
	if cfg.DatabaseURL != "" {
		dbPool := db.Connect(cfg.DatabaseURL)
		defer dbPool.Close()
		games = repository.NewGameRepository(dbPool, cfg.BotUsername)
		users = repository.NewUserRepository(dbPool)
		checks["database"] = dbPool
	} else {
		logger.Warn("DATABASE_URL not set, games are kept in memory")
		games = repository.NewMemoryGameStore(cfg.BotUsername)
		users = repository.NewMemoryUserStore()
	}
	// games reference players by username, the bot included
	if err := users.EnsureUser(context.Background(), cfg.BotUsername); err != nil {
		logger.Fatal("failed to seed bot user", "error", err)
	}

	rdb := db.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	middleware.InitRedisRateLimiter(rdb)

	notifiers := notify.Multi{notify.NewLogNotifier(logger.Component("notify"))}
	if rdb != nil {
		defer rdb.Close()
		notifiers = append(notifiers, notify.NewRedisNotifier(rdb, cfg.FinishedChannel))
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	if cfg.TelegramNotify && cfg.BotToken != "" {
		tg, err := bot.New(cfg.BotToken, users)
		if err != nil {
			logger.Warn("telegram notifications disabled", "error", err)
		} else {
			notifiers = append(notifiers, tg)
		}
	}

	var policy service.Policy
	lp, err := service.LoadLuaPolicy(cfg.PolicyScript)
	if err != nil {
		logger.Error("opponent policy unavailable, bot games will stall", "script", cfg.PolicyScript, "error", err)
		policy = service.Unavailable(err)
	} else {
		policy = lp
	}
	opponent := service.NewOpponent(cfg.BotUsername, policy, cfg.PolicyTimeout, logger.Component("opponent"))

	hub := ws.NewHub(cfg.HubBuckets)
	gameService := service.NewGameService(games, hub, notifiers, opponent, logger.Component("games"))
	dispatcher := ws.NewDispatcher(hub, gameService, service.JWTAuthenticator{}, logger.Component("protocol"))

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, httpServer.Deps{
		Handler: handlers.NewHandler(gameService, users, handlers.HandlerConfig{
			BotToken:  cfg.BotToken,
			DevMode:   cfg.DevMode,
			ListLimit: cfg.GameListLimit,
		}),
		Health:     handlers.NewHealthHandler(checks, version),
		Hub:        hub,
		Dispatcher: dispatcher,
		Origin:     cfg.AllowedOrigin,
		Limits: httpServer.Limits{
			APIRate:        cfg.APIRateLimit,
			APIRateWindow:  cfg.APIRateWindow,
			MoveRate:       cfg.MoveRateLimit,
			MoveRateWindow: cfg.MoveRateWindow,
		},
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
