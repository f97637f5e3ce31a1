package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tictactoe_live/internal/domain"
	"tictactoe_live/internal/logger"
	"tictactoe_live/internal/repository"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// UserLookup resolves a username to the Telegram account behind it.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Notifier tells players over Telegram that their game is over. Players
// without a Telegram account are skipped.
type Notifier struct {
	api   Sender
	users UserLookup
	log   *slog.Logger
}

// New authorizes the bot with token.
func New(token string, users UserLookup) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log := logger.Component("telegram_notifier")
	log.Info("telegram bot authorized", "username", api.Self.UserName)
	return NewWithSender(api, users, log), nil
}

func NewWithSender(api Sender, users UserLookup, log *slog.Logger) *Notifier {
	return &Notifier{api: api, users: users, log: log}
}

func (n *Notifier) NotifyGameFinished(ctx context.Context, snap *domain.Snapshot, recipients []string) error {
	var errs []error
	for _, name := range recipients {
		u, err := n.users.GetByUsername(ctx, name)
		if errors.Is(err, repository.ErrUserNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("lookup %s: %w", name, err))
			continue
		}
		if u.TgID == 0 {
			continue
		}

		msg := tgbotapi.NewMessage(u.TgID, summary(snap, name))
		msg.ParseMode = "HTML"
		if _, err := n.api.Send(msg); err != nil {
			if strings.Contains(err.Error(), "blocked") || strings.Contains(err.Error(), "deactivated") {
				n.log.Info("player unreachable", "username", name, "error", err)
				continue
			}
			errs = append(errs, fmt.Errorf("send to %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func summary(snap *domain.Snapshot, who string) string {
	var result string
	switch {
	case snap.IsDraw:
		result = "It's a draw."
	case snap.Winner != nil && *snap.Winner == who:
		result = "You won!"
	default:
		result = "You lost."
	}
	return fmt.Sprintf("🏁 <b>Game #%d finished</b>\n%s\n\n%s", snap.GameID, result, board(snap.GameField))
}

func board(field []int) string {
	var sb strings.Builder
	sb.WriteString("<code>")
	for i, v := range field {
		switch v {
		case 1:
			sb.WriteByte('X')
		case -1:
			sb.WriteByte('O')
		default:
			sb.WriteByte('.')
		}
		if i%3 == 2 && i < len(field)-1 {
			sb.WriteByte('\n')
		}
	}
	sb.WriteString("</code>")
	return sb.String()
}
