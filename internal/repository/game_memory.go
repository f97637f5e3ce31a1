package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"tictactoe_live/internal/domain"
	"tictactoe_live/internal/game"
)

type memGame struct {
	mu    sync.Mutex
	game  *domain.Game
	moves []domain.Move
}

// MemoryGameStore keeps games in process memory. Each game carries its own
// lock; the map lock is only held to look games up or insert them.
type MemoryGameStore struct {
	mu       sync.RWMutex
	games    map[int64]*memGame
	nextID   int64
	opponent string
}

func NewMemoryGameStore(opponent string) *MemoryGameStore {
	return &MemoryGameStore{
		games:    make(map[int64]*memGame),
		opponent: opponent,
	}
}

func (s *MemoryGameStore) get(id int64) (*memGame, error) {
	s.mu.RLock()
	mg, ok := s.games[id]
	s.mu.RUnlock()
	if !ok {
		return nil, game.ErrNotFound
	}
	return mg, nil
}

func (s *MemoryGameStore) CreateGame(ctx context.Context, initiator *string, bindOpponent bool) (*domain.Game, error) {
	g := game.NewGame(initiator, s.opponent, bindOpponent, newJoinSecret)

	s.mu.Lock()
	s.nextID++
	g.ID = s.nextID
	s.games[g.ID] = &memGame{game: g}
	s.mu.Unlock()

	return g.Clone(), nil
}

func (s *MemoryGameStore) JoinGame(ctx context.Context, id int64, joiner *string, secret string) (*domain.Game, error) {
	mg, err := s.get(id)
	if err != nil {
		return nil, err
	}
	mg.mu.Lock()
	defer mg.mu.Unlock()

	if err := game.ValidateJoin(mg.game, joiner, secret); err != nil {
		return nil, err
	}
	game.ApplyJoin(mg.game, joiner)
	return mg.game.Clone(), nil
}

func (s *MemoryGameStore) SubmitMove(ctx context.Context, id int64, pos int, mover *string, secret string) (*MoveResult, error) {
	mg, err := s.get(id)
	if err != nil {
		return nil, err
	}
	mg.mu.Lock()
	defer mg.mu.Unlock()

	index, err := game.ValidateMove(mg.game, mg.moves, pos, mover, secret)
	if err != nil {
		return nil, err
	}

	m := domain.Move{
		GameID:    id,
		Index:     index,
		Position:  pos,
		Player:    copyIdentity(mover),
		CreatedAt: time.Now().UTC(),
	}
	mg.moves = append(mg.moves, m)
	finished := game.Settle(mg.game, game.Encode(mg.moves))

	return &MoveResult{
		Move:          &m,
		Snapshot:      game.Project(mg.game, mg.moves),
		NewlyFinished: finished,
	}, nil
}

func (s *MemoryGameStore) Settle(ctx context.Context, id int64) (*MoveResult, error) {
	mg, err := s.get(id)
	if err != nil {
		return nil, err
	}
	mg.mu.Lock()
	defer mg.mu.Unlock()

	finished := game.Settle(mg.game, game.Encode(mg.moves))
	return &MoveResult{
		Snapshot:      game.Project(mg.game, mg.moves),
		NewlyFinished: finished,
	}, nil
}

func (s *MemoryGameStore) Snapshot(ctx context.Context, id int64) (*domain.Snapshot, error) {
	mg, err := s.get(id)
	if err != nil {
		return nil, err
	}
	mg.mu.Lock()
	defer mg.mu.Unlock()
	return game.WithKey(game.Project(mg.game, mg.moves), mg.game), nil
}

func (s *MemoryGameStore) Moves(ctx context.Context, id int64) ([]domain.Move, error) {
	mg, err := s.get(id)
	if err != nil {
		return nil, err
	}
	mg.mu.Lock()
	defer mg.mu.Unlock()
	out := make([]domain.Move, len(mg.moves))
	copy(out, mg.moves)
	return out, nil
}

func (s *MemoryGameStore) ListGames(ctx context.Context, beforeID int64, limit int) ([]*domain.Snapshot, error) {
	return s.list(beforeID, limit, func(*domain.Game) bool { return true }), nil
}

func (s *MemoryGameStore) ListUserGames(ctx context.Context, username string, beforeID int64, limit int) ([]*domain.Snapshot, error) {
	return s.list(beforeID, limit, func(g *domain.Game) bool {
		return domain.SameIdentity(g.FirstMover, &username) || domain.SameIdentity(g.SecondMover, &username)
	}), nil
}

// list walks games newest first.
func (s *MemoryGameStore) list(beforeID int64, limit int, keep func(*domain.Game) bool) []*domain.Snapshot {
	limit = clampLimit(limit)

	s.mu.RLock()
	ids := make([]int64, 0, len(s.games))
	for id := range s.games {
		if beforeID <= 0 || id < beforeID {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	res := make([]*domain.Snapshot, 0, limit)
	for _, id := range ids {
		if len(res) == limit {
			break
		}
		mg, err := s.get(id)
		if err != nil {
			continue
		}
		mg.mu.Lock()
		if keep(mg.game) {
			res = append(res, game.Project(mg.game, mg.moves))
		}
		mg.mu.Unlock()
	}
	return res
}

func (s *MemoryGameStore) Leaderboard(ctx context.Context, limit int) ([]domain.Standing, error) {
	s.mu.RLock()
	all := make([]*memGame, 0, len(s.games))
	for _, mg := range s.games {
		all = append(all, mg)
	}
	s.mu.RUnlock()

	rows := make(map[string]*domain.Standing)
	for _, mg := range all {
		mg.mu.Lock()
		tally(rows, mg.game)
		mg.mu.Unlock()
	}

	res := make([]domain.Standing, 0, len(rows))
	for _, st := range rows {
		res = append(res, *st)
	}
	sortStandings(res)
	if limit = clampLimit(limit); len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (s *MemoryGameStore) Ping(ctx context.Context) error { return nil }

// sortStandings orders rows the way the Postgres query does.
func sortStandings(rows []domain.Standing) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.WinCount != b.WinCount {
			return a.WinCount > b.WinCount
		}
		if a.DrawCount != b.DrawCount {
			return a.DrawCount > b.DrawCount
		}
		if a.DefeatCount != b.DefeatCount {
			return a.DefeatCount < b.DefeatCount
		}
		return a.Username < b.Username
	})
}

func copyIdentity(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
