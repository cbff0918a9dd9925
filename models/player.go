package models

import "time"

// Player представляет участника пула. Points изменяются только при фиксации результата матча.
type Player struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Points    int       `json:"points" db:"points"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Производные поля, заполняются сервисом
	RankTier RankTier `json:"rank_tier,omitempty" db:"-"`
	MatchIDs []int    `json:"match_ids,omitempty" db:"-"`
}
