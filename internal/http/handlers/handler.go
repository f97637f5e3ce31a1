package handlers

import (
	"tictactoe_live/internal/repository"
	"tictactoe_live/internal/service"
)

// HandlerConfig holds configuration for handler
type HandlerConfig struct {
	BotToken  string
	DevMode   bool
	ListLimit int
}

type Handler struct {
	Games     *service.GameService
	Users     repository.UserStore
	BotToken  string
	DevMode   bool
	ListLimit int
}

func NewHandler(games *service.GameService, users repository.UserStore, cfg HandlerConfig) *Handler {
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 20
	}
	return &Handler{
		Games:     games,
		Users:     users,
		BotToken:  cfg.BotToken,
		DevMode:   cfg.DevMode,
		ListLimit: cfg.ListLimit,
	}
}
