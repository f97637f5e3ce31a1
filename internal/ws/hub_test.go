package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"tictactoe_live/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id   string
	mu   sync.Mutex
	msgs [][]byte
	err  error
	boom bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Deliver(msg []byte) error {
	if f.boom {
		panic("socket exploded")
	}
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, append([]byte(nil), msg...))
	return nil
}

func (f *fakeConn) received() []Outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Outbound, 0, len(f.msgs))
	for _, m := range f.msgs {
		var o Outbound
		if err := json.Unmarshal(m, &o); err == nil {
			out = append(out, o)
		}
	}
	return out
}

func TestHub_BroadcastIsolation(t *testing.T) {
	h := NewHub(4)
	a, b, other := newFakeConn("a"), newFakeConn("b"), newFakeConn("other")

	require.NoError(t, h.Subscribe(1, a, json.RawMessage(`"tag-a"`)))
	require.NoError(t, h.Subscribe(1, b, json.RawMessage(`7`)))
	// 5 shares a bucket with 1 when there are 4 buckets
	require.NoError(t, h.Subscribe(5, other, nil))

	h.Broadcast(1, map[string]int{"moveCount": 3})

	for _, c := range []*fakeConn{a, b} {
		got := c.received()
		require.Len(t, got, 1, c.id)
		assert.Equal(t, ActionBroadcast, *got[0].Action)
		assert.True(t, got[0].Success)
		assert.JSONEq(t, `{"moveCount":3}`, string(mustJSON(t, got[0].Data)))
	}
	assert.JSONEq(t, `"tag-a"`, string(a.received()[0].MsgID))
	assert.JSONEq(t, `7`, string(b.received()[0].MsgID))
	assert.Empty(t, other.received())
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub(8)
	a, b := newFakeConn("a"), newFakeConn("b")
	require.NoError(t, h.Subscribe(1, a, nil))
	require.NoError(t, h.Subscribe(2, a, nil))
	require.NoError(t, h.Subscribe(1, b, nil))

	id := int64(1)
	assert.Equal(t, 1, h.Unsubscribe(a, &id))
	h.Broadcast(1, "x")
	assert.Empty(t, a.received())
	assert.Len(t, b.received(), 1)

	assert.Equal(t, 1, h.Unsubscribe(a, nil))
	assert.Equal(t, 0, h.Subscribers(2))
	assert.Equal(t, 0, h.Unsubscribe(a, nil), "unsubscribing a connection with nothing left is a no-op")
	assert.Equal(t, 0, h.Unsubscribe(newFakeConn("never"), nil))
}

func TestHub_MultipleTagsPerConnection(t *testing.T) {
	h := NewHub(2)
	a := newFakeConn("a")
	require.NoError(t, h.Subscribe(3, a, json.RawMessage(`1`)))
	require.NoError(t, h.Subscribe(3, a, json.RawMessage(`2`)))
	require.NoError(t, h.Subscribe(3, a, json.RawMessage(`2`)))
	assert.Equal(t, 2, h.Subscribers(3))

	h.Broadcast(3, "x")
	assert.Len(t, a.received(), 2)
}

func TestHub_FailingSubscriberDoesNotStopOthers(t *testing.T) {
	h := NewHub(1)
	closed := &fakeConn{id: "closed", err: errors.New("use of closed connection")}
	exploding := &fakeConn{id: "exploding", boom: true}
	healthy := newFakeConn("healthy")
	for _, c := range []*fakeConn{closed, exploding, healthy} {
		require.NoError(t, h.Subscribe(9, c, nil))
	}

	assert.NotPanics(t, func() { h.Broadcast(9, "state") })
	assert.Len(t, healthy.received(), 1)
}

func TestHub_Concurrent(t *testing.T) {
	h := NewHub(16)
	const games = 20
	conns := make([]*fakeConn, 50)
	for i := range conns {
		conns[i] = newFakeConn(fmt.Sprint(i))
	}

	var wg sync.WaitGroup
	for i, c := range conns {
		wg.Add(1)
		go func(i int, c *fakeConn) {
			defer wg.Done()
			gid := int64(i % games)
			for n := 0; n < 50; n++ {
				_ = h.Subscribe(gid, c, nil)
				h.Broadcast(gid, n)
				if n%10 == 0 {
					h.Unsubscribe(c, &gid)
				}
			}
		}(i, c)
	}
	wg.Wait()

	for _, c := range conns {
		h.Unsubscribe(c, nil)
	}
	for g := int64(0); g < games; g++ {
		assert.Equal(t, 0, h.Subscribers(g))
	}
}

func TestHub_NegativeGameID(t *testing.T) {
	h := NewHub(4)
	a := newFakeConn("a")
	require.NoError(t, h.Subscribe(-3, a, nil))
	h.Broadcast(-3, "x")
	assert.Len(t, a.received(), 1)
}

func TestHub_StaleSnapshotDropped(t *testing.T) {
	h := NewHub(4)
	a := newFakeConn("a")
	require.NoError(t, h.Subscribe(2, a, nil))

	h.Broadcast(2, &domain.Snapshot{GameID: 2, MoveCount: 1})
	h.Broadcast(2, &domain.Snapshot{GameID: 2, MoveCount: 4})
	h.Broadcast(2, &domain.Snapshot{GameID: 2, MoveCount: 3})
	// same count is a re-publish of the current state
	h.Broadcast(2, &domain.Snapshot{GameID: 2, MoveCount: 4, IsFinished: true})
	// other games keep their own position
	h.Broadcast(6, &domain.Snapshot{GameID: 6, MoveCount: 0})

	var counts []int
	for _, o := range a.received() {
		var snap domain.Snapshot
		require.NoError(t, json.Unmarshal(mustJSON(t, o.Data), &snap))
		counts = append(counts, snap.MoveCount)
	}
	assert.Equal(t, []int{1, 4, 4}, counts)
}

func TestHub_ConcurrentSnapshotsArriveInOrder(t *testing.T) {
	h := NewHub(1)
	a := newFakeConn("a")
	require.NoError(t, h.Subscribe(1, a, nil))

	var wg sync.WaitGroup
	for n := 0; n <= 9; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			h.Broadcast(1, &domain.Snapshot{GameID: 1, MoveCount: n})
		}(n)
	}
	wg.Wait()

	last := -1
	for _, o := range a.received() {
		var snap domain.Snapshot
		require.NoError(t, json.Unmarshal(mustJSON(t, o.Data), &snap))
		assert.Greater(t, snap.MoveCount, last)
		last = snap.MoveCount
	}
	assert.Equal(t, 9, last)
}

func TestHub_FinishedGameForgottenAfterLastViewer(t *testing.T) {
	h := NewHub(1)
	a := newFakeConn("a")
	require.NoError(t, h.Subscribe(1, a, nil))
	h.Broadcast(1, &domain.Snapshot{GameID: 1, MoveCount: 5, IsFinished: true})

	id := int64(1)
	h.Unsubscribe(a, &id)
	b := h.bucketFor(1)
	b.mu.Lock()
	_, tracked := b.latest[1]
	b.mu.Unlock()
	assert.False(t, tracked)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
