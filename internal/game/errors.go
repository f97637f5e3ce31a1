package game

import "errors"

// Rejections raised while admitting games and moves. Every one maps to a
// stable reason string through Reason.
var (
	ErrNotFound         = errors.New("game not found")
	ErrAlreadyStarted   = errors.New("game already started")
	ErrSelfPlay         = errors.New("can't play against yourself")
	ErrUnauthorized     = errors.New("authentication failed")
	ErrGameFinished     = errors.New("game finished, no moves allowed")
	ErrNotStarted       = errors.New("game has not started yet")
	ErrInvalidPosition  = errors.New("position is outside the board or occupied")
	ErrWrongTurn        = errors.New("not your turn")
	ErrMalformedRequest = errors.New("malformed request")
	ErrConflict         = errors.New("concurrent move conflict")
)

var reasons = []struct {
	err    error
	reason string
}{
	{ErrNotFound, "not_found"},
	{ErrAlreadyStarted, "already_started"},
	{ErrSelfPlay, "self_play"},
	{ErrUnauthorized, "unauthorized"},
	{ErrGameFinished, "game_finished"},
	{ErrNotStarted, "not_started"},
	{ErrInvalidPosition, "invalid_position"},
	{ErrWrongTurn, "wrong_turn"},
	{ErrMalformedRequest, "malformed_request"},
	{ErrConflict, "conflict"},
}

// Reason returns the machine-stable reason for err, "internal" for anything
// outside the rejection taxonomy.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "internal"
}

// IsRejection reports whether err is a typed rejection rather than a fault.
func IsRejection(err error) bool {
	return Reason(err) != "internal"
}
