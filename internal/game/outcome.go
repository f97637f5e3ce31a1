package game

// Outcome of evaluating a board.
type Outcome int

const (
	Ongoing Outcome = iota
	XWins
	OWins
	Draw
)

func (o Outcome) String() string {
	switch o {
	case XWins:
		return "x_wins"
	case OWins:
		return "o_wins"
	case Draw:
		return "draw"
	default:
		return "ongoing"
	}
}

// Terminal reports whether the outcome ends the game.
func (o Outcome) Terminal() bool {
	return o != Ongoing
}

// lines lists every winning index triple.
var lines = [8][3]int{
	{0, 1, 2}, // top row
	{3, 4, 5}, // middle row
	{6, 7, 8}, // bottom row
	{0, 3, 6}, // left column
	{1, 4, 7}, // middle column
	{2, 5, 8}, // right column
	{0, 4, 8}, // diagonal
	{2, 4, 6}, // anti-diagonal
}

// Evaluate returns the terminal state of b. The first complete line wins.
func Evaluate(b Board) Outcome {
	for _, l := range lines {
		c := b[l[0]]
		if c != Empty && c == b[l[1]] && c == b[l[2]] {
			if c == MarkX {
				return XWins
			}
			return OWins
		}
	}
	if b.Full() {
		return Draw
	}
	return Ongoing
}
