package repository

import (
	"context"
	"errors"
	"fmt"

	"tictactoe_live/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) scan(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID,
		&u.TgID,
		&u.Username,
		&u.FirstName,
		&u.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByTgID(ctx context.Context, tgID int64) (*domain.User, error) {
	return r.scan(r.db.QueryRow(ctx,
		`SELECT id, COALESCE(tg_id, 0), username, COALESCE(first_name, ''), created_at
		 FROM users
		 WHERE tg_id = $1`,
		tgID,
	))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.scan(r.db.QueryRow(ctx,
		`SELECT id, COALESCE(tg_id, 0), username, COALESCE(first_name, ''), created_at
		 FROM users
		 WHERE username = $1`,
		username,
	))
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	var tgID *int64
	if u.TgID != 0 {
		tgID = &u.TgID
	}
	return r.db.QueryRow(ctx,
		`INSERT INTO users (tg_id, username, first_name)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		tgID,
		u.Username,
		u.FirstName,
	).Scan(&u.ID, &u.CreatedAt)
}

// EnsureUser creates a bare user row unless the username is taken. Used to
// seed the opponent identity so games can reference it.
func (r *UserRepository) EnsureUser(ctx context.Context, username string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (username, first_name)
		 VALUES ($1, $1)
		 ON CONFLICT (username) DO NOTHING`,
		username,
	)
	if err != nil {
		return fmt.Errorf("ensure user %s: %w", username, err)
	}
	return nil
}
