package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_EachLineAlone(t *testing.T) {
	names := []string{"top row", "middle row", "bottom row", "left column", "middle column", "right column", "diagonal", "anti-diagonal"}
	for i, l := range lines {
		for _, mark := range []Cell{MarkX, MarkO} {
			var b Board
			for _, idx := range l {
				b[idx] = mark
			}
			want := XWins
			if mark == MarkO {
				want = OWins
			}
			t.Run(names[i]+"/"+want.String(), func(t *testing.T) {
				assert.Equal(t, want, Evaluate(b))
			})
		}
	}
}

func TestEvaluate_Boundaries(t *testing.T) {
	cases := []struct {
		name  string
		board Board
		want  Outcome
	}{
		{"empty", Board{}, Ongoing},
		{
			"partial no line",
			Board{
				MarkX, MarkO, MarkX,
				Empty, MarkO, Empty,
				MarkO, MarkX, Empty,
			},
			Ongoing,
		},
		{
			"full draw",
			Board{
				MarkX, MarkO, MarkX,
				MarkX, MarkO, MarkO,
				MarkO, MarkX, MarkX,
			},
			Draw,
		},
		{
			"full board with a line is a win, not a draw",
			Board{
				MarkX, MarkX, MarkX,
				MarkO, MarkO, MarkX,
				MarkX, MarkO, MarkO,
			},
			XWins,
		},
		{
			"mixed line does not win",
			Board{
				MarkX, MarkO, MarkX,
				Empty, Empty, Empty,
				Empty, Empty, Empty,
			},
			Ongoing,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(tc.board))
		})
	}
}

// A win is reported iff some line holds three equal non-empty marks.
func TestEvaluate_RandomBoards(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	marks := []Cell{Empty, MarkX, MarkO}
	for n := 0; n < 5000; n++ {
		var b Board
		for i := range b {
			b[i] = marks[rng.Intn(len(marks))]
		}
		got := Evaluate(b)

		hasLine := false
		for _, l := range lines {
			if b[l[0]] != Empty && b[l[0]] == b[l[1]] && b[l[1]] == b[l[2]] {
				hasLine = true
				break
			}
		}
		switch {
		case hasLine:
			require.Contains(t, []Outcome{XWins, OWins}, got, "board %v", b)
		case b.Full():
			require.Equal(t, Draw, got, "board %v", b)
		default:
			require.Equal(t, Ongoing, got, "board %v", b)
		}
	}
}
