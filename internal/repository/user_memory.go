package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tictactoe_live/internal/domain"
)

// MemoryUserStore backs the identity collaborator when no database is set.
type MemoryUserStore struct {
	mu     sync.RWMutex
	byName map[string]*domain.User
	byTg   map[int64]*domain.User
	nextID int64
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byName: make(map[string]*domain.User),
		byTg:   make(map[int64]*domain.User),
	}
}

func (s *MemoryUserStore) GetByTgID(ctx context.Context, tgID int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byTg[tgID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byName[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryUserStore) Create(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[u.Username]; ok {
		return fmt.Errorf("username %q already taken", u.Username)
	}
	if u.TgID != 0 {
		if _, ok := s.byTg[u.TgID]; ok {
			return fmt.Errorf("telegram id %d already registered", u.TgID)
		}
	}
	s.nextID++
	u.ID = s.nextID
	u.CreatedAt = time.Now().UTC()
	cp := *u
	s.byName[u.Username] = &cp
	if u.TgID != 0 {
		s.byTg[u.TgID] = &cp
	}
	return nil
}

func (s *MemoryUserStore) EnsureUser(ctx context.Context, username string) error {
	if _, err := s.GetByUsername(ctx, username); err == nil {
		return nil
	}
	err := s.Create(ctx, &domain.User{Username: username, FirstName: username})
	if err != nil {
		// lost a race with another EnsureUser
		if _, getErr := s.GetByUsername(ctx, username); getErr == nil {
			return nil
		}
	}
	return err
}
