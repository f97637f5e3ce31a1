package game

import (
	"testing"

	"tictactoe_live/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func fixedSecret() string { return "s3cr3t" }

func TestNewGame(t *testing.T) {
	g := NewGame(ptr("alice"), "bot", true, fixedSecret)
	assert.True(t, g.Started)
	assert.Equal(t, "bot", *g.SecondMover)
	assert.Nil(t, g.JoinSecret)

	g = NewGame(nil, "bot", true, fixedSecret)
	assert.True(t, g.Started)
	require.NotNil(t, g.JoinSecret)

	g = NewGame(ptr("alice"), "bot", false, fixedSecret)
	assert.False(t, g.Started)
	assert.Nil(t, g.SecondMover)
	require.NotNil(t, g.JoinSecret)
}

func TestAuthorize(t *testing.T) {
	g := &domain.Game{FirstMover: ptr("alice"), SecondMover: ptr("bob"), JoinSecret: ptr("key")}
	assert.NoError(t, Authorize(g, ptr("alice"), ""))
	assert.NoError(t, Authorize(g, ptr("bob"), ""))
	assert.NoError(t, Authorize(g, nil, "key"))
	assert.ErrorIs(t, Authorize(g, ptr("carol"), ""), ErrUnauthorized)
	assert.ErrorIs(t, Authorize(g, nil, "wrong"), ErrUnauthorized)
	// an anonymous caller never matches an unset slot by identity alone
	open := &domain.Game{FirstMover: ptr("alice")}
	assert.ErrorIs(t, Authorize(open, nil, ""), ErrUnauthorized)
}

func TestValidateMove(t *testing.T) {
	g := &domain.Game{ID: 1, FirstMover: ptr("alice"), SecondMover: ptr("bob"), Started: true}

	idx, err := ValidateMove(g, nil, 4, ptr("alice"), "")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	_, err = ValidateMove(g, nil, 4, ptr("bob"), "")
	assert.ErrorIs(t, err, ErrWrongTurn)

	_, err = ValidateMove(g, moveLog(4), 4, ptr("bob"), "")
	assert.ErrorIs(t, err, ErrInvalidPosition)

	_, err = ValidateMove(g, moveLog(4), 9, ptr("bob"), "")
	assert.ErrorIs(t, err, ErrInvalidPosition)

	_, err = ValidateMove(g, moveLog(4), -1, ptr("bob"), "")
	assert.ErrorIs(t, err, ErrInvalidPosition)

	idx, err = ValidateMove(g, moveLog(4), 0, ptr("bob"), "")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = ValidateMove(g, nil, 0, ptr("mallory"), "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	finished := *g
	finished.Finished = true
	_, err = ValidateMove(&finished, nil, 0, ptr("alice"), "")
	assert.ErrorIs(t, err, ErrGameFinished)

	pending := &domain.Game{FirstMover: ptr("alice"), JoinSecret: ptr("k")}
	_, err = ValidateMove(pending, nil, 0, ptr("alice"), "")
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestValidateMove_GuestWithSecret(t *testing.T) {
	g := &domain.Game{SecondMover: ptr("bot"), JoinSecret: ptr("k"), Started: true}
	idx, err := ValidateMove(g, nil, 0, nil, "k")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	_, err = ValidateMove(g, nil, 0, nil, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidateJoin(t *testing.T) {
	g := &domain.Game{FirstMover: ptr("alice"), JoinSecret: ptr("k")}
	assert.NoError(t, ValidateJoin(g, ptr("bob"), ""))
	assert.NoError(t, ValidateJoin(g, nil, "k"))
	assert.ErrorIs(t, ValidateJoin(g, ptr("alice"), ""), ErrSelfPlay)
	assert.ErrorIs(t, ValidateJoin(g, ptr("bob"), "nope"), ErrUnauthorized)

	ApplyJoin(g, ptr("bob"))
	assert.True(t, g.Started)
	assert.Nil(t, g.JoinSecret)
	assert.ErrorIs(t, ValidateJoin(g, ptr("carol"), ""), ErrAlreadyStarted)

	guest := &domain.Game{FirstMover: ptr("alice"), JoinSecret: ptr("k")}
	ApplyJoin(guest, nil)
	assert.True(t, guest.Started)
	assert.Nil(t, guest.SecondMover)
	require.NotNil(t, guest.JoinSecret)
}

func TestSettle_Idempotent(t *testing.T) {
	g := &domain.Game{FirstMover: ptr("alice"), SecondMover: ptr("bob"), Started: true}
	moves := moveLog(0, 3, 1, 4, 2)

	assert.False(t, Settle(g, Encode(moves[:4])))
	assert.False(t, g.Finished)

	assert.True(t, Settle(g, Encode(moves)))
	assert.True(t, g.Finished)
	assert.Equal(t, domain.SlotFirst, g.WinnerSlot)
	assert.Equal(t, "alice", *g.Winner())
	assert.False(t, g.IsDraw)

	assert.False(t, Settle(g, Encode(moves)), "second settle must not report a transition")
}

func TestSettle_Draw(t *testing.T) {
	g := &domain.Game{Started: true}
	require.True(t, Settle(g, Board{
		MarkX, MarkO, MarkX,
		MarkX, MarkO, MarkO,
		MarkO, MarkX, MarkX,
	}))
	assert.True(t, g.IsDraw)
	assert.Equal(t, domain.SlotNone, g.WinnerSlot)
}

func TestProject(t *testing.T) {
	g := &domain.Game{ID: 7, FirstMover: ptr("alice"), SecondMover: ptr("bot"), Started: true}
	s := Project(g, moveLog(4, 0))
	assert.Equal(t, int64(7), s.GameID)
	assert.Equal(t, 2, s.MoveCount)
	assert.Equal(t, domain.OutcomeOngoing, s.Outcome)
	assert.Equal(t, "alice", *s.DueIdentity())
	assert.Equal(t, []string{"alice", "bot"}, s.Players())
	assert.Nil(t, WithKey(s, g).GameKey)
}

func TestReason(t *testing.T) {
	assert.Equal(t, "wrong_turn", Reason(ErrWrongTurn))
	assert.Equal(t, "not_found", Reason(ErrNotFound))
	assert.Equal(t, "internal", Reason(assert.AnError))
	assert.False(t, IsRejection(assert.AnError))
}
