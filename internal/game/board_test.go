package game

import (
	"testing"

	"tictactoe_live/internal/domain"

	"github.com/stretchr/testify/assert"
)

func moveLog(positions ...int) []domain.Move {
	out := make([]domain.Move, len(positions))
	for i, p := range positions {
		out[i] = domain.Move{GameID: 1, Index: i, Position: p}
	}
	return out
}

func TestEncode(t *testing.T) {
	b := Encode(moveLog(4, 0, 8))
	assert.Equal(t, Board{
		MarkO, Empty, Empty,
		Empty, MarkX, Empty,
		Empty, Empty, MarkX,
	}, b)
	assert.Equal(t, 3, b.Count())
	assert.True(t, b.Occupied(0))
	assert.False(t, b.Occupied(1))
	assert.Equal(t, []int{-1, 0, 0, 0, 1, 0, 0, 0, 1}, b.Ints())
	assert.Equal(t, b, FromInts(b.Ints()))
}

func TestEncode_IsPure(t *testing.T) {
	moves := moveLog(2, 6, 4)
	assert.Equal(t, Encode(moves), Encode(moves))
	assert.Equal(t, Board{}, Encode(nil))
}

func TestIndexRowCol(t *testing.T) {
	for pos := 0; pos < Cells; pos++ {
		r, c := RowCol(pos)
		assert.Equal(t, pos, Index(r, c))
	}
	assert.Equal(t, 5, Index(1, 2))
}
