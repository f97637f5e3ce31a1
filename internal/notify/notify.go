// Package notify delivers "game finished" events to the participants of a
// game. Delivery itself (mail, push) happens downstream of these
// collaborators.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"tictactoe_live/internal/domain"
)

// Notifier is told once per game termination. recipients are the
// registered identities that played the game.
type Notifier interface {
	NotifyGameFinished(ctx context.Context, snap *domain.Snapshot, recipients []string) error
}

// LogNotifier writes the event to the log.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyGameFinished(ctx context.Context, snap *domain.Snapshot, recipients []string) error {
	n.log.Info("game finished",
		"game_id", snap.GameID,
		"outcome", snap.Outcome,
		"recipients", recipients,
	)
	return nil
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) NotifyGameFinished(ctx context.Context, snap *domain.Snapshot, recipients []string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.NotifyGameFinished(ctx, snap, recipients); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
