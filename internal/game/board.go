package game

import "tictactoe_live/internal/domain"

const (
	Size  = 3
	Cells = Size * Size
)

// Cell - содержимое клетки: пусто, крестик (первый ход) или нолик.
type Cell int8

const (
	Empty Cell = 0
	MarkX Cell = 1
	MarkO Cell = -1
)

// Board is the positional projection of a move log, indexed row*3+col.
type Board [Cells]Cell

// Encode projects an ordered move list onto a board. The mark of a move
// follows the parity of its sequence index, which is the slot that made it.
func Encode(moves []domain.Move) Board {
	var b Board
	for _, m := range moves {
		if !InRange(m.Position) {
			continue
		}
		if domain.SlotForIndex(m.Index) == domain.SlotFirst {
			b[m.Position] = MarkX
		} else {
			b[m.Position] = MarkO
		}
	}
	return b
}

// InRange reports whether pos addresses a cell.
func InRange(pos int) bool {
	return pos >= 0 && pos < Cells
}

// Index converts a (row, col) pair to a flat position.
func Index(row, col int) int {
	return row*Size + col
}

// RowCol converts a flat position to (row, col).
func RowCol(pos int) (int, int) {
	return pos / Size, pos % Size
}

func (b Board) Occupied(pos int) bool {
	return b[pos] != Empty
}

// Count returns the number of occupied cells.
func (b Board) Count() int {
	n := 0
	for _, c := range b {
		if c != Empty {
			n++
		}
	}
	return n
}

func (b Board) Full() bool {
	return b.Count() == Cells
}

// Ints returns the board as {attacker: 1, defender: -1, empty: 0}.
func (b Board) Ints() []int {
	out := make([]int, Cells)
	for i, c := range b {
		out[i] = int(c)
	}
	return out
}

// Numeric returns the board in the shape the opponent policy consumes.
func (b Board) Numeric() [Cells]float64 {
	var out [Cells]float64
	for i, c := range b {
		out[i] = float64(c)
	}
	return out
}

// FromInts builds a board from a snapshot game field.
func FromInts(field []int) Board {
	var b Board
	for i := 0; i < len(field) && i < Cells; i++ {
		b[i] = Cell(field[i])
	}
	return b
}
