package repository

import (
	"context"
	"errors"
	"fmt"

	"tictactoe_live/internal/domain"
	"tictactoe_live/internal/game"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const gameColumns = `id, first_mover, second_mover, join_secret, started, finished,
	winner_slot, is_draw, created_at, finished_at`

// GameRepository is the Postgres GameStore. Submissions on one game are
// serialized by a row lock on the game; UNIQUE(game_id, move_index) and
// UNIQUE(game_id, move_position) hold even if that lock were bypassed.
type GameRepository struct {
	db       *pgxpool.Pool
	opponent string
}

func NewGameRepository(db *pgxpool.Pool, opponent string) *GameRepository {
	return &GameRepository{db: db, opponent: opponent}
}

func scanGame(row pgx.Row) (*domain.Game, error) {
	var (
		g    domain.Game
		slot int16
	)
	if err := row.Scan(
		&g.ID,
		&g.FirstMover,
		&g.SecondMover,
		&g.JoinSecret,
		&g.Started,
		&g.Finished,
		&slot,
		&g.IsDraw,
		&g.CreatedAt,
		&g.FinishedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, game.ErrNotFound
		}
		return nil, err
	}
	g.WinnerSlot = domain.Slot(slot)
	return &g, nil
}

func loadGame(ctx context.Context, q querier, id int64, lock bool) (*domain.Game, error) {
	sql := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	g, err := scanGame(q.QueryRow(ctx, sql, id))
	if err != nil && !errors.Is(err, game.ErrNotFound) {
		return nil, fmt.Errorf("load game %d: %w", id, err)
	}
	return g, err
}

func loadMoves(ctx context.Context, q querier, id int64) ([]domain.Move, error) {
	rows, err := q.Query(ctx,
		`SELECT game_id, move_index, move_position, player, created_at
		 FROM moves
		 WHERE game_id = $1
		 ORDER BY move_index`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("load moves of %d: %w", id, err)
	}
	defer rows.Close()

	var res []domain.Move
	for rows.Next() {
		var m domain.Move
		if err := rows.Scan(&m.GameID, &m.Index, &m.Position, &m.Player, &m.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// markFinished persists the terminal fields. It is a no-op for a game that is
// already finished in the database.
func markFinished(ctx context.Context, q querier, g *domain.Game) error {
	_, err := q.Exec(ctx,
		`UPDATE games
		 SET finished = TRUE, winner_slot = $2, is_draw = $3, finished_at = $4
		 WHERE id = $1 AND NOT finished`,
		g.ID, int16(g.WinnerSlot), g.IsDraw, g.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("finish game %d: %w", g.ID, err)
	}
	return nil
}

func (r *GameRepository) CreateGame(ctx context.Context, initiator *string, bindOpponent bool) (*domain.Game, error) {
	g := game.NewGame(initiator, r.opponent, bindOpponent, newJoinSecret)

	err := r.db.QueryRow(ctx,
		`INSERT INTO games (first_mover, second_mover, join_secret, started)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		g.FirstMover,
		g.SecondMover,
		g.JoinSecret,
		g.Started,
	).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return g, nil
}

func (r *GameRepository) JoinGame(ctx context.Context, id int64, joiner *string, secret string) (*domain.Game, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	g, err := loadGame(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if err := game.ValidateJoin(g, joiner, secret); err != nil {
		return nil, err
	}
	game.ApplyJoin(g, joiner)

	if _, err := tx.Exec(ctx,
		`UPDATE games SET started = $2, second_mover = $3, join_secret = $4 WHERE id = $1`,
		g.ID, g.Started, g.SecondMover, g.JoinSecret,
	); err != nil {
		return nil, fmt.Errorf("join game %d: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *GameRepository) SubmitMove(ctx context.Context, id int64, pos int, mover *string, secret string) (*MoveResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	g, err := loadGame(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	moves, err := loadMoves(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	index, err := game.ValidateMove(g, moves, pos, mover, secret)
	if err != nil {
		return nil, err
	}

	m := domain.Move{GameID: id, Index: index, Position: pos, Player: copyIdentity(mover)}
	err = tx.QueryRow(ctx,
		`INSERT INTO moves (game_id, move_index, move_position, player)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		m.GameID, m.Index, m.Position, m.Player,
	).Scan(&m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, game.ErrConflict
		}
		return nil, fmt.Errorf("insert move: %w", err)
	}
	moves = append(moves, m)

	finished := game.Settle(g, game.Encode(moves))
	if finished {
		if err := markFinished(ctx, tx, g); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &MoveResult{
		Move:          &m,
		Snapshot:      game.Project(g, moves),
		NewlyFinished: finished,
	}, nil
}

func (r *GameRepository) Settle(ctx context.Context, id int64) (*MoveResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	g, err := loadGame(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	moves, err := loadMoves(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	finished := game.Settle(g, game.Encode(moves))
	if finished {
		if err := markFinished(ctx, tx, g); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &MoveResult{Snapshot: game.Project(g, moves), NewlyFinished: finished}, nil
}

func (r *GameRepository) Snapshot(ctx context.Context, id int64) (*domain.Snapshot, error) {
	g, err := loadGame(ctx, r.db, id, false)
	if err != nil {
		return nil, err
	}
	moves, err := loadMoves(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return game.WithKey(game.Project(g, moves), g), nil
}

func (r *GameRepository) Moves(ctx context.Context, id int64) ([]domain.Move, error) {
	if _, err := loadGame(ctx, r.db, id, false); err != nil {
		return nil, err
	}
	return loadMoves(ctx, r.db, id)
}

func (r *GameRepository) ListGames(ctx context.Context, beforeID int64, limit int) ([]*domain.Snapshot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+gameColumns+`
		 FROM games
		 WHERE ($1::bigint <= 0 OR id < $1::bigint)
		 ORDER BY id DESC
		 LIMIT $2`,
		beforeID, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return r.project(ctx, rows)
}

func (r *GameRepository) ListUserGames(ctx context.Context, username string, beforeID int64, limit int) ([]*domain.Snapshot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+gameColumns+`
		 FROM games
		 WHERE (first_mover = $1 OR second_mover = $1)
		   AND ($2::bigint <= 0 OR id < $2::bigint)
		 ORDER BY id DESC
		 LIMIT $3`,
		username, beforeID, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list games of %s: %w", username, err)
	}
	return r.project(ctx, rows)
}

// project drains rows of games and attaches their move logs with one query.
func (r *GameRepository) project(ctx context.Context, rows pgx.Rows) ([]*domain.Snapshot, error) {
	var (
		games []*domain.Game
		ids   []int64
	)
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		games = append(games, g)
		ids = append(ids, g.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return []*domain.Snapshot{}, nil
	}

	mrows, err := r.db.Query(ctx,
		`SELECT game_id, move_index, move_position, player, created_at
		 FROM moves
		 WHERE game_id = ANY($1)
		 ORDER BY game_id, move_index`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("load moves: %w", err)
	}
	defer mrows.Close()

	byGame := make(map[int64][]domain.Move, len(games))
	for mrows.Next() {
		var m domain.Move
		if err := mrows.Scan(&m.GameID, &m.Index, &m.Position, &m.Player, &m.CreatedAt); err != nil {
			return nil, err
		}
		byGame[m.GameID] = append(byGame[m.GameID], m)
	}
	if err := mrows.Err(); err != nil {
		return nil, err
	}

	res := make([]*domain.Snapshot, 0, len(games))
	for _, g := range games {
		res = append(res, game.Project(g, byGame[g.ID]))
	}
	return res, nil
}

// Leaderboard counts finished games per registered user.
func (r *GameRepository) Leaderboard(ctx context.Context, limit int) ([]domain.Standing, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.username,
		       COUNT(g.id) FILTER (WHERE g.finished AND NOT g.is_draw AND
		           ((g.winner_slot = 1 AND g.first_mover = u.username) OR
		            (g.winner_slot = 2 AND g.second_mover = u.username))) AS wins,
		       COUNT(g.id) FILTER (WHERE g.finished AND NOT g.is_draw AND
		           ((g.winner_slot = 2 AND g.first_mover = u.username) OR
		            (g.winner_slot = 1 AND g.second_mover = u.username))) AS defeats,
		       COUNT(g.id) FILTER (WHERE g.finished AND g.is_draw) AS draws
		FROM users u
		LEFT JOIN games g ON g.first_mover = u.username OR g.second_mover = u.username
		GROUP BY u.username
		ORDER BY wins DESC, draws DESC, defeats ASC, u.username
		LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	res := []domain.Standing{}
	for rows.Next() {
		var st domain.Standing
		if err := rows.Scan(&st.Username, &st.WinCount, &st.DefeatCount, &st.DrawCount); err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, rows.Err()
}

func (r *GameRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
