package domain

import "time"

// Slot - роль игрока в партии
type Slot int8

const (
	SlotNone   Slot = 0
	SlotFirst  Slot = 1 // attacker, ходит на чётных индексах
	SlotSecond Slot = 2 // defender, ходит на нечётных
)

// Game - партия. Идентичность nil означает гостя или свободный слот.
type Game struct {
	ID          int64      `db:"id" json:"id"`
	FirstMover  *string    `db:"first_mover" json:"attacker"`
	SecondMover *string    `db:"second_mover" json:"defender"`
	JoinSecret  *string    `db:"join_secret" json:"-"`
	Started     bool       `db:"started" json:"started"`
	Finished    bool       `db:"finished" json:"isFinished"`
	WinnerSlot  Slot       `db:"winner_slot" json:"-"`
	IsDraw      bool       `db:"is_draw" json:"isDraw"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	FinishedAt  *time.Time `db:"finished_at" json:"finishedAt,omitempty"`
}

// Occupant returns the identity bound to slot s.
func (g *Game) Occupant(s Slot) *string {
	switch s {
	case SlotFirst:
		return g.FirstMover
	case SlotSecond:
		return g.SecondMover
	}
	return nil
}

// Winner returns the winning identity. It is nil for draws, ongoing games
// and games won by an anonymous guest.
func (g *Game) Winner() *string {
	return g.Occupant(g.WinnerSlot)
}

// Clone returns a deep copy so callers never share pointers with a store.
func (g *Game) Clone() *Game {
	cp := *g
	cp.FirstMover = cloneString(g.FirstMover)
	cp.SecondMover = cloneString(g.SecondMover)
	cp.JoinSecret = cloneString(g.JoinSecret)
	if g.FinishedAt != nil {
		t := *g.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}

// Move - ход. Не изменяется и не удаляется после записи.
type Move struct {
	GameID    int64     `db:"game_id" json:"gameId"`
	Index     int       `db:"move_index" json:"moveIndex"`
	Position  int       `db:"move_position" json:"movePosition"`
	Player    *string   `db:"player" json:"player"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// SlotForIndex returns the slot that must produce the move at index i.
func SlotForIndex(i int) Slot {
	if i%2 == 0 {
		return SlotFirst
	}
	return SlotSecond
}

// SameIdentity reports whether two optional identities are equal; two
// anonymous parties compare equal.
func SameIdentity(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
