package domain

// Outcome values as they appear in snapshots.
const (
	OutcomeOngoing = "ongoing"
	OutcomeXWins   = "x_wins"
	OutcomeOWins   = "o_wins"
	OutcomeDraw    = "draw"
)

// Snapshot is the one read projection of a game. HTTP reads, viewGame
// responses and broadcasts all serialize this type.
type Snapshot struct {
	GameID     int64   `json:"gameId"`
	Attacker   *string `json:"attacker"`
	Defender   *string `json:"defender"`
	Winner     *string `json:"winner"`
	Outcome    string  `json:"outcome"`
	GameField  []int   `json:"gameField"`
	IsFinished bool    `json:"isFinished"`
	IsDraw     bool    `json:"isDraw"`
	Started    bool    `json:"started"`
	MoveCount  int     `json:"moveCount"`
	// GameKey is only filled in create/join responses while a slot is anonymous.
	GameKey *string `json:"gameKey,omitempty"`
}

// DueIdentity returns the identity of the slot that moves next.
func (s *Snapshot) DueIdentity() *string {
	if SlotForIndex(s.MoveCount) == SlotFirst {
		return s.Attacker
	}
	return s.Defender
}

// Players returns the registered identities bound to the game.
func (s *Snapshot) Players() []string {
	var res []string
	for _, p := range []*string{s.Attacker, s.Defender} {
		if p != nil {
			res = append(res, *p)
		}
	}
	return res
}

// MoveRequest is one submission to the admission path.
type MoveRequest struct {
	GameID   int64
	Position int
	Mover    *string
	Secret   string
}

// Standing is one leaderboard row.
type Standing struct {
	Username    string `json:"username"`
	WinCount    int64  `json:"winCount"`
	DefeatCount int64  `json:"defeatCount"`
	DrawCount   int64  `json:"drawCount"`
}
