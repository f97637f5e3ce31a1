package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tictactoe_live/internal/domain"
	"tictactoe_live/internal/game"
)

// Policy is the external decision function: a board of 9 numbers (+1 first
// mover, -1 second mover, 0 empty) in, a recommended cell out.
type Policy interface {
	RecommendMove(ctx context.Context, board [game.Cells]float64) (row, col int, err error)
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc func(ctx context.Context, board [game.Cells]float64) (int, int, error)

func (f PolicyFunc) RecommendMove(ctx context.Context, board [game.Cells]float64) (int, int, error) {
	return f(ctx, board)
}

// ErrPolicyUnavailable is returned by a policy that could not be loaded.
var ErrPolicyUnavailable = errors.New("opponent policy unavailable")

// Unavailable is a Policy that always fails; the opponent then never moves.
func Unavailable(cause error) Policy {
	return PolicyFunc(func(context.Context, [game.Cells]float64) (int, int, error) {
		return 0, 0, fmt.Errorf("%w: %v", ErrPolicyUnavailable, cause)
	})
}

// Opponent plays the fixed bot identity.
type Opponent struct {
	Identity string
	policy   Policy
	timeout  time.Duration
	log      *slog.Logger
}

func NewOpponent(identity string, policy Policy, timeout time.Duration, log *slog.Logger) *Opponent {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &Opponent{Identity: identity, policy: policy, timeout: timeout, log: log}
}

// Due reports whether snap is waiting on the opponent.
func (o *Opponent) Due(snap *domain.Snapshot) bool {
	if snap.IsFinished || !snap.Started {
		return false
	}
	return domain.SameIdentity(snap.DueIdentity(), &o.Identity)
}

type recommendation struct {
	row, col int
	err      error
}

// Reply asks the policy for a cell. ok is false when the policy errs,
// panics, times out or recommends a cell that is not free.
func (o *Opponent) Reply(ctx context.Context, snap *domain.Snapshot) (int, bool) {
	board := game.FromInts(snap.GameField)

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	done := make(chan recommendation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- recommendation{err: fmt.Errorf("policy panic: %v", r)}
			}
		}()
		row, col, err := o.policy.RecommendMove(ctx, board.Numeric())
		done <- recommendation{row: row, col: col, err: err}
	}()

	var rec recommendation
	select {
	case rec = <-done:
	case <-ctx.Done():
		rec.err = ctx.Err()
	}

	if rec.err != nil {
		o.log.Warn("opponent policy failed", "game_id", snap.GameID, "error", rec.err)
		OpponentMoves.WithLabelValues("policy_error").Inc()
		return 0, false
	}
	if rec.row < 0 || rec.row >= game.Size || rec.col < 0 || rec.col >= game.Size {
		o.log.Warn("opponent policy out of range", "game_id", snap.GameID, "row", rec.row, "col", rec.col)
		OpponentMoves.WithLabelValues("illegal").Inc()
		return 0, false
	}
	pos := game.Index(rec.row, rec.col)
	if board.Occupied(pos) {
		o.log.Warn("opponent policy chose an occupied cell", "game_id", snap.GameID, "position", pos)
		OpponentMoves.WithLabelValues("illegal").Inc()
		return 0, false
	}
	return pos, true
}
