package brackets

import (
	"errors"

	"github.com/Dosada05/swiss-tournament/models"
)

var (
	ErrInsufficientPlayers = errors.New("not enough players left to form a pairing")
	ErrPairingFailed       = errors.New("no opponent could be selected for the pairing")
	ErrDuplicatePlayer     = errors.New("player pool contains a duplicate or empty entry")
)

// Pairing is one head-to-head assignment produced for a round.
type Pairing struct {
	Player1 *models.Player
	Player2 *models.Player
}

// Pairer splits a player pool into disjoint two-player pairings for a single round.
type Pairer interface {
	PairRound(players []*models.Player) ([]Pairing, error)

	GetName() string
}
