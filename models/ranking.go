package models

// Standing is one row of a tournament classification.
type Standing struct {
	PlayerID   int      `json:"player_id"`
	PlayerName string   `json:"player_name"`
	RankTier   RankTier `json:"rank_tier"`
	Points     int      `json:"points"`
}

// PlayerStats is the per-player breakdown of finalized matches in a tournament.
// Points is the stored total, not a value recomputed from the matches.
type PlayerStats struct {
	PlayerID int    `json:"player_id"`
	Username string `json:"username"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Draws    int    `json:"draws"`
	Points   int    `json:"points"`
}
