package game

import (
	"crypto/subtle"
	"time"

	"tictactoe_live/internal/domain"
)

// Authorize checks that the caller may act on g: either the identity is
// bound to one of the slots or the presented secret is the game's current
// join-secret.
func Authorize(g *domain.Game, mover *string, secret string) error {
	if mover != nil {
		if domain.SameIdentity(mover, g.FirstMover) || domain.SameIdentity(mover, g.SecondMover) {
			return nil
		}
	}
	if secret != "" && g.JoinSecret != nil &&
		subtle.ConstantTimeCompare([]byte(secret), []byte(*g.JoinSecret)) == 1 {
		return nil
	}
	return ErrUnauthorized
}

// ValidateMove checks a submission against the game and its current move
// log and returns the sequence index the move will occupy. Authorization is
// checked first, then completion, position and finally turn order.
func ValidateMove(g *domain.Game, moves []domain.Move, pos int, mover *string, secret string) (int, error) {
	if err := Authorize(g, mover, secret); err != nil {
		return 0, err
	}
	if g.Finished {
		return 0, ErrGameFinished
	}
	if !g.Started {
		return 0, ErrNotStarted
	}
	if !InRange(pos) {
		return 0, ErrInvalidPosition
	}
	if Encode(moves).Occupied(pos) {
		return 0, ErrInvalidPosition
	}
	index := len(moves)
	if index >= Cells {
		return 0, ErrGameFinished
	}
	if !domain.SameIdentity(g.Occupant(domain.SlotForIndex(index)), mover) {
		return 0, ErrWrongTurn
	}
	return index, nil
}

// ValidateJoin checks that joiner may take the open slot of g.
func ValidateJoin(g *domain.Game, joiner *string, secret string) error {
	if g.Started {
		return ErrAlreadyStarted
	}
	if domain.SameIdentity(joiner, g.FirstMover) {
		return ErrSelfPlay
	}
	if secret != "" && (g.JoinSecret == nil ||
		subtle.ConstantTimeCompare([]byte(secret), []byte(*g.JoinSecret)) != 1) {
		return ErrUnauthorized
	}
	return nil
}

// ApplyJoin binds the joiner. A registered joiner supersedes the secret; a
// guest keeps using it since no identity is recorded for them.
func ApplyJoin(g *domain.Game, joiner *string) {
	g.Started = true
	if joiner != nil {
		v := *joiner
		g.SecondMover = &v
		g.JoinSecret = nil
	}
}

// NewGame builds an unsaved game. Binding the opponent starts it at once;
// a join-secret is issued whenever a slot stays anonymous.
func NewGame(initiator *string, opponent string, bindOpponent bool, secret func() string) *domain.Game {
	g := &domain.Game{CreatedAt: time.Now().UTC()}
	if initiator != nil {
		v := *initiator
		g.FirstMover = &v
	}
	if bindOpponent {
		bot := opponent
		g.SecondMover = &bot
		g.Started = true
	}
	if initiator == nil || !bindOpponent {
		s := secret()
		g.JoinSecret = &s
	}
	return g
}

// Settle recomputes the terminal fields of g from b. It returns true only
// when this call moved the game into the finished state; a game that is
// already finished is left untouched.
func Settle(g *domain.Game, b Board) bool {
	if g.Finished {
		return false
	}
	switch Evaluate(b) {
	case XWins:
		g.WinnerSlot = domain.SlotFirst
	case OWins:
		g.WinnerSlot = domain.SlotSecond
	case Draw:
		g.IsDraw = true
	default:
		return false
	}
	g.Finished = true
	now := time.Now().UTC()
	g.FinishedAt = &now
	return true
}

// Project builds the canonical snapshot of g and its move log.
func Project(g *domain.Game, moves []domain.Move) *domain.Snapshot {
	b := Encode(moves)
	s := &domain.Snapshot{
		GameID:     g.ID,
		Attacker:   copyString(g.FirstMover),
		Defender:   copyString(g.SecondMover),
		Winner:     copyString(g.Winner()),
		GameField:  b.Ints(),
		IsFinished: g.Finished,
		IsDraw:     g.IsDraw,
		Started:    g.Started,
		MoveCount:  len(moves),
		Outcome:    domain.OutcomeOngoing,
	}
	if g.Finished {
		switch {
		case g.IsDraw:
			s.Outcome = domain.OutcomeDraw
		case g.WinnerSlot == domain.SlotFirst:
			s.Outcome = domain.OutcomeXWins
		case g.WinnerSlot == domain.SlotSecond:
			s.Outcome = domain.OutcomeOWins
		}
	}
	return s
}

// WithKey attaches the join-secret to s while one of the slots is anonymous.
func WithKey(s *domain.Snapshot, g *domain.Game) *domain.Snapshot {
	if g.JoinSecret != nil && (g.FirstMover == nil || g.SecondMover == nil) {
		s.GameKey = copyString(g.JoinSecret)
	}
	return s
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
