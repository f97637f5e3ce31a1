package service

import (
	"context"
	"log/slog"
	"time"

	"tictactoe_live/internal/domain"
	"tictactoe_live/internal/game"
	"tictactoe_live/internal/notify"
	"tictactoe_live/internal/repository"
)

// notifyTimeout bounds a finished-game notification on the move path.
const notifyTimeout = 5 * time.Second

// Broadcaster pushes a payload to every live viewer of a game.
type Broadcaster interface {
	Broadcast(gameID int64, payload any)
}

// GameService is the single admission path for moves, human or automated:
// persist, broadcast, notify on finish, then at most one opponent reply
// pushed through the same steps.
type GameService struct {
	store    repository.GameStore
	hub      Broadcaster
	notifier notify.Notifier
	opponent *Opponent
	log      *slog.Logger
}

func NewGameService(store repository.GameStore, hub Broadcaster, notifier notify.Notifier, opponent *Opponent, log *slog.Logger) *GameService {
	return &GameService{
		store:    store,
		hub:      hub,
		notifier: notifier,
		opponent: opponent,
		log:      log,
	}
}

// Submit admits one move and, when the opponent is due afterwards, its
// reply. It returns the latest snapshot. Only the submitted move can fail
// the call.
func (s *GameService) Submit(ctx context.Context, req domain.MoveRequest) (*domain.Snapshot, error) {
	snap, err := s.admit(ctx, req)
	if err != nil {
		return nil, err
	}

	if s.opponent != nil && s.opponent.Due(snap) {
		if next := s.reply(ctx, snap); next != nil {
			snap = next
		}
	}
	return snap, nil
}

// reply lets the opponent answer snap. It returns nil when no move was made.
func (s *GameService) reply(ctx context.Context, snap *domain.Snapshot) *domain.Snapshot {
	pos, ok := s.opponent.Reply(ctx, snap)
	if !ok {
		return nil
	}
	bot := s.opponent.Identity
	next, err := s.admit(ctx, domain.MoveRequest{GameID: snap.GameID, Position: pos, Mover: &bot})
	if err != nil {
		s.log.Warn("opponent move rejected", "game_id", snap.GameID, "position", pos, "reason", game.Reason(err), "error", err)
		OpponentMoves.WithLabelValues("rejected").Inc()
		return nil
	}
	OpponentMoves.WithLabelValues("ok").Inc()
	return next
}

// admit persists one move, broadcasts it and notifies on finish.
func (s *GameService) admit(ctx context.Context, req domain.MoveRequest) (*domain.Snapshot, error) {
	res, err := s.store.SubmitMove(ctx, req.GameID, req.Position, req.Mover, req.Secret)
	if err != nil {
		MovesTotal.WithLabelValues(game.Reason(err)).Inc()
		return nil, err
	}
	MovesTotal.WithLabelValues("ok").Inc()

	s.publish(res.Snapshot)
	if res.NewlyFinished {
		s.finished(ctx, res.Snapshot)
	}
	return res.Snapshot, nil
}

func (s *GameService) publish(snap *domain.Snapshot) {
	if s.hub == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("broadcast panicked", "game_id", snap.GameID, "panic", r)
		}
	}()
	s.hub.Broadcast(snap.GameID, snap)
}

// finished runs the one-time side effects of a terminal transition.
func (s *GameService) finished(ctx context.Context, snap *domain.Snapshot) {
	GamesFinished.WithLabelValues(snap.Outcome).Inc()
	if s.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("finished-game notification panicked", "game_id", snap.GameID, "panic", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.NotifyGameFinished(ctx, snap, s.recipients(snap)); err != nil {
		s.log.Error("finished-game notification failed", "game_id", snap.GameID, "error", err)
	}
}

// recipients are the registered players other than the bot.
func (s *GameService) recipients(snap *domain.Snapshot) []string {
	var res []string
	for _, p := range snap.Players() {
		if s.opponent != nil && p == s.opponent.Identity {
			continue
		}
		res = append(res, p)
	}
	return res
}

// Create starts a game. Guests always face the opponent.
func (s *GameService) Create(ctx context.Context, initiator *string, againstBot bool) (*domain.Snapshot, error) {
	if initiator == nil {
		againstBot = true
	}
	g, err := s.store.CreateGame(ctx, initiator, againstBot)
	if err != nil {
		return nil, err
	}
	return game.WithKey(game.Project(g, nil), g), nil
}

func (s *GameService) Join(ctx context.Context, id int64, joiner *string, secret string) (*domain.Snapshot, error) {
	g, err := s.store.JoinGame(ctx, id, joiner, secret)
	if err != nil {
		return nil, err
	}
	moves, err := s.store.Moves(ctx, id)
	if err != nil {
		return nil, err
	}
	snap := game.Project(g, moves)
	s.publish(snap)
	return game.WithKey(snap, g), nil
}

// View returns the public snapshot; the join-secret is never included.
func (s *GameService) View(ctx context.Context, id int64) (*domain.Snapshot, error) {
	snap, err := s.store.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	snap.GameKey = nil
	return snap, nil
}

func (s *GameService) Moves(ctx context.Context, id int64) ([]domain.Move, error) {
	return s.store.Moves(ctx, id)
}

func (s *GameService) List(ctx context.Context, beforeID int64, limit int) ([]*domain.Snapshot, error) {
	return s.store.ListGames(ctx, beforeID, limit)
}

func (s *GameService) ListUser(ctx context.Context, username string, beforeID int64, limit int) ([]*domain.Snapshot, error) {
	return s.store.ListUserGames(ctx, username, beforeID, limit)
}

func (s *GameService) Leaderboard(ctx context.Context, limit int) ([]domain.Standing, error) {
	return s.store.Leaderboard(ctx, limit)
}

// Settle re-checks the terminal state of a game. Side effects fire only when
// this call is the one that finishes it.
func (s *GameService) Settle(ctx context.Context, id int64) (*domain.Snapshot, error) {
	res, err := s.store.Settle(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.NewlyFinished {
		s.publish(res.Snapshot)
		s.finished(ctx, res.Snapshot)
	}
	return res.Snapshot, nil
}
