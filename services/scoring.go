package services

import (
	"fmt"

	"github.com/Dosada05/swiss-tournament/models"
)

// ScoringPolicy is the number of points credited for each side of a finalized match.
type ScoringPolicy struct {
	Win  int
	Draw int
	Loss int
}

var DefaultScoringPolicy = ScoringPolicy{Win: 100, Draw: 50, Loss: 0}

func (p ScoringPolicy) Validate() error {
	if p.Win < 0 || p.Draw < 0 || p.Loss < 0 {
		return fmt.Errorf("%w: win=%d draw=%d loss=%d", ErrInvalidScoringPolicy, p.Win, p.Draw, p.Loss)
	}
	return nil
}

// Award returns the points for player1 and player2. PENDING and unknown results award nothing.
func (p ScoringPolicy) Award(result models.MatchResult) (int, int) {
	switch result {
	case models.ResultPlayer1Win:
		return p.Win, p.Loss
	case models.ResultPlayer2Win:
		return p.Loss, p.Win
	case models.ResultDraw:
		return p.Draw, p.Draw
	}
	return 0, 0
}
