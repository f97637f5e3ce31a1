package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"tictactoe_live/internal/domain"
	"tictactoe_live/internal/logger"
)

// Conn is the delivery side of one live connection.
type Conn interface {
	ID() string
	Deliver(msg []byte) error
}

type subscription struct {
	conn Conn
	tag  string
}

type bucket struct {
	mu   sync.Mutex
	subs map[int64]map[subscription]struct{}
	// latest is the newest snapshot position broadcast per game.
	latest map[int64]position
}

type position struct {
	moveCount int
	finished  bool
}

// Hub is the registry of live viewers per game. Games are spread over a
// fixed number of buckets, each with its own lock, so subscribe and
// broadcast on unrelated games rarely contend.
type Hub struct {
	buckets []*bucket
	log     *slog.Logger
}

func NewHub(n int) *Hub {
	if n <= 0 {
		n = 32
	}
	h := &Hub{
		buckets: make([]*bucket, n),
		log:     logger.Component("hub"),
	}
	for i := range h.buckets {
		h.buckets[i] = &bucket{
			subs:   make(map[int64]map[subscription]struct{}),
			latest: make(map[int64]position),
		}
	}
	return h
}

func (h *Hub) bucketFor(gameID int64) *bucket {
	i := gameID % int64(len(h.buckets))
	if i < 0 {
		i = -i
	}
	return h.buckets[i]
}

var errNilConn = errors.New("nil connection")

// Subscribe registers conn for updates of gameID. tag is echoed back as the
// msgId of every broadcast delivered through this subscription.
func (h *Hub) Subscribe(gameID int64, conn Conn, tag json.RawMessage) error {
	if conn == nil {
		return errNilConn
	}
	b := h.bucketFor(gameID)
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.subs[gameID]
	if !ok {
		set = make(map[subscription]struct{})
		b.subs[gameID] = set
	}
	sub := subscription{conn: conn, tag: string(tag)}
	if _, dup := set[sub]; !dup {
		set[sub] = struct{}{}
		Subscriptions.Inc()
	}
	return nil
}

// Unsubscribe removes the subscriptions of conn for gameID, or for every
// game when gameID is nil. It returns how many were removed.
func (h *Hub) Unsubscribe(conn Conn, gameID *int64) int {
	if gameID != nil {
		b := h.bucketFor(*gameID)
		b.mu.Lock()
		n := b.drop(conn, *gameID)
		b.mu.Unlock()
		Subscriptions.Sub(float64(n))
		return n
	}

	total := 0
	for _, b := range h.buckets {
		b.mu.Lock()
		for id := range b.subs {
			total += b.drop(conn, id)
		}
		b.mu.Unlock()
	}
	Subscriptions.Sub(float64(total))
	return total
}

// drop must be called with b.mu held.
func (b *bucket) drop(conn Conn, gameID int64) int {
	set, ok := b.subs[gameID]
	if !ok {
		return 0
	}
	n := 0
	for sub := range set {
		if sub.conn == conn {
			delete(set, sub)
			n++
		}
	}
	if len(set) == 0 {
		delete(b.subs, gameID)
		if b.latest[gameID].finished {
			delete(b.latest, gameID)
		}
	}
	return n
}

// Subscribers returns how many subscriptions gameID has.
func (h *Hub) Subscribers(gameID int64) int {
	b := h.bucketFor(gameID)
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[gameID])
}

// Broadcast sends payload to every subscriber of gameID. Snapshots with a
// lower moveCount than one already broadcast for the game are dropped, and
// delivery happens under the bucket lock so viewers see snapshots in move
// order. A failing subscriber is logged and skipped.
func (h *Hub) Broadcast(gameID int64, payload any) {
	b := h.bucketFor(gameID)
	b.mu.Lock()
	defer b.mu.Unlock()

	if snap, ok := payload.(*domain.Snapshot); ok && snap != nil {
		if last, seen := b.latest[gameID]; seen && snap.MoveCount < last.moveCount {
			h.log.Debug("stale snapshot dropped", "game_id", gameID, "move_count", snap.MoveCount, "latest", last.moveCount)
			StaleSnapshots.Inc()
			return
		}
		b.latest[gameID] = position{moveCount: snap.MoveCount, finished: snap.IsFinished}
		if snap.IsFinished && len(b.subs[gameID]) == 0 {
			delete(b.latest, gameID)
		}
	}

	set := b.subs[gameID]
	if len(set) == 0 {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("broadcast marshal failed", "game_id", gameID, "error", err)
		return
	}

	for sub := range set {
		msg, err := encodeBroadcast(data, sub.tag)
		if err != nil {
			h.log.Error("broadcast encode failed", "game_id", gameID, "error", err)
			continue
		}
		h.deliver(gameID, sub.conn, msg)
	}
}

func (h *Hub) deliver(gameID int64, conn Conn, msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("subscriber panicked", "game_id", gameID, "conn", conn.ID(), "panic", r)
			Deliveries.WithLabelValues("failed").Inc()
		}
	}()
	if err := conn.Deliver(msg); err != nil {
		h.log.Warn("broadcast delivery failed", "game_id", gameID, "conn", conn.ID(), "error", err)
		Deliveries.WithLabelValues("failed").Inc()
		return
	}
	Deliveries.WithLabelValues("ok").Inc()
}
