package repository

import (
	"context"
	"errors"
	"strings"

	"tictactoe_live/internal/domain"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned by user stores when no user matches.
var ErrUserNotFound = errors.New("user not found")

// GameStore is the authoritative record of games and their move logs.
// Implementations serialize submissions per game: two concurrent
// SubmitMove calls on the same game never both succeed for the same
// sequence index or the same position.
type GameStore interface {
	CreateGame(ctx context.Context, initiator *string, bindOpponent bool) (*domain.Game, error)
	JoinGame(ctx context.Context, id int64, joiner *string, secret string) (*domain.Game, error)
	SubmitMove(ctx context.Context, id int64, pos int, mover *string, secret string) (*MoveResult, error)
	// Settle re-evaluates the game and records the outcome if it is terminal.
	Settle(ctx context.Context, id int64) (*MoveResult, error)
	Snapshot(ctx context.Context, id int64) (*domain.Snapshot, error)
	Moves(ctx context.Context, id int64) ([]domain.Move, error)
	ListGames(ctx context.Context, beforeID int64, limit int) ([]*domain.Snapshot, error)
	ListUserGames(ctx context.Context, username string, beforeID int64, limit int) ([]*domain.Snapshot, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.Standing, error)
	Ping(ctx context.Context) error
}

// MoveResult is what the store hands back after an admitted change.
// NewlyFinished is true only for the call that moved the game into the
// finished state.
type MoveResult struct {
	Move          *domain.Move
	Snapshot      *domain.Snapshot
	NewlyFinished bool
}

// UserStore backs the identity collaborator.
type UserStore interface {
	GetByTgID(ctx context.Context, tgID int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	EnsureUser(ctx context.Context, username string) error
}

// newJoinSecret returns 32 lowercase hex chars.
func newJoinSecret() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// tally accumulates leaderboard rows for one identity.
func tally(rows map[string]*domain.Standing, g *domain.Game) {
	if !g.Finished {
		return
	}
	for _, slot := range []domain.Slot{domain.SlotFirst, domain.SlotSecond} {
		who := g.Occupant(slot)
		if who == nil {
			continue
		}
		st, ok := rows[*who]
		if !ok {
			st = &domain.Standing{Username: *who}
			rows[*who] = st
		}
		switch {
		case g.IsDraw:
			st.DrawCount++
		case g.WinnerSlot == slot:
			st.WinCount++
		default:
			st.DefeatCount++
		}
	}
}
