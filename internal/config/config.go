package config

import (
	"os"
	"strconv"
	"time"

	"tictactoe_live/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string // пусто - игры хранятся в памяти
	BotToken    string
	JWTSecret   string
	DevMode     bool

	// Opponent
	BotUsername   string
	PolicyScript  string
	PolicyTimeout time.Duration

	// Redis: rate limiting and finished-game events
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	FinishedChannel string
	TelegramNotify  bool // сообщать игрокам об окончании партии через бота

	// Limits
	GameListLimit  int
	APIRateLimit   int
	APIRateWindow  time.Duration
	MoveRateLimit  int
	MoveRateWindow time.Duration

	AllowedOrigin string
	HubBuckets    int

	LogLevel string
	LogJSON  bool
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	return &Config{
		AppPort:     envString("APP_PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		BotToken:    os.Getenv("BOT_TOKEN"),
		JWTSecret:   jwtSecret,
		DevMode:     os.Getenv("DEV_MODE") == "true",

		BotUsername:   envString("BOT_USERNAME", "rl-agent"),
		PolicyScript:  envString("POLICY_SCRIPT", "policies/tictactoe.lua"),
		PolicyTimeout: time.Duration(envInt("POLICY_TIMEOUT_MS", 500)) * time.Millisecond,

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         envInt("REDIS_DB", 0),
		FinishedChannel: envString("FINISHED_CHANNEL", "games:finished"),
		TelegramNotify:  os.Getenv("TELEGRAM_NOTIFY") == "true",

		GameListLimit:  envInt("GAMELIST_LIMIT", 20),
		APIRateLimit:   envInt("API_RATE_LIMIT", 120),
		APIRateWindow:  time.Duration(envInt("API_RATE_WINDOW_SECONDS", 60)) * time.Second,
		MoveRateLimit:  envInt("MOVE_RATE_LIMIT", 60),
		MoveRateWindow: time.Duration(envInt("MOVE_RATE_WINDOW_SECONDS", 60)) * time.Second,

		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
		HubBuckets:    envInt("HUB_BUCKETS", 32),

		LogLevel: envString("LOG_LEVEL", "info"),
		LogJSON:  os.Getenv("LOG_JSON") == "true",
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt returns def when key is unset or not a non-negative integer.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
