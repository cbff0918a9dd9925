package models

import "time"

type MatchResult string

const (
	ResultPending    MatchResult = "PENDING"
	ResultPlayer1Win MatchResult = "PLAYER1_WIN"
	ResultPlayer2Win MatchResult = "PLAYER2_WIN"
	ResultDraw       MatchResult = "DRAW"
)

// IsValid reports whether r is one of the four known results.
func (r MatchResult) IsValid() bool {
	switch r {
	case ResultPending, ResultPlayer1Win, ResultPlayer2Win, ResultDraw:
		return true
	}
	return false
}

// IsTerminal reports whether r finalizes a match.
func (r MatchResult) IsTerminal() bool {
	return r.IsValid() && r != ResultPending
}

type Match struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	Round        int         `json:"round" db:"round"`
	Player1ID    int         `json:"player1_id" db:"player1_id"`
	Player2ID    int         `json:"player2_id" db:"player2_id"`
	Result       MatchResult `json:"result" db:"result"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// Involves reports whether playerID plays on either side of the match.
func (m *Match) Involves(playerID int) bool {
	return m.Player1ID == playerID || m.Player2ID == playerID
}
