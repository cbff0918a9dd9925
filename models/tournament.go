package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие CHECK в БД.
type TournamentStatus string

const (
	StatusCreated    TournamentStatus = "CREATED"
	StatusInProgress TournamentStatus = "IN_PROGRESS"
	StatusFinished   TournamentStatus = "FINISHED"
)

// Tournament представляет турнир по швейцарской системе.
type Tournament struct {
	ID           int              `json:"id" db:"id"`
	Name         string           `json:"name" db:"name"`
	MaxPlayers   int              `json:"max_players" db:"max_players"`
	MaxRounds    int              `json:"max_rounds" db:"max_rounds"`
	CurrentRound int              `json:"current_round" db:"current_round"`
	Status       TournamentStatus `json:"status" db:"status"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`

	// Id-based relations, resolved through repositories
	PlayerIDs []int `json:"player_ids,omitempty" db:"-"`
	MatchIDs  []int `json:"match_ids,omitempty" db:"-"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Players []Player `json:"players,omitempty" db:"-"`
	Matches []Match  `json:"matches,omitempty" db:"-"`
}

// IsValidStatusTransition reports whether a tournament may move from current to next.
// Statuses only move forward.
func IsValidStatusTransition(current, next TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[TournamentStatus][]TournamentStatus{
		StatusCreated:    {StatusInProgress},
		StatusInProgress: {StatusFinished},
		StatusFinished:   {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}
