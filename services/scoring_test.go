package services

import (
	"context"
	"testing"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoringPolicy_Award(t *testing.T) {
	policy := ScoringPolicy{Win: 3, Draw: 1, Loss: 0}
	tests := []struct {
		result models.MatchResult
		p1, p2 int
	}{
		{models.ResultPlayer1Win, 3, 0},
		{models.ResultPlayer2Win, 0, 3},
		{models.ResultDraw, 1, 1},
		{models.ResultPending, 0, 0},
		{models.MatchResult("BOGUS"), 0, 0},
	}
	for _, tt := range tests {
		p1, p2 := policy.Award(tt.result)
		assert.Equal(t, tt.p1, p1, string(tt.result))
		assert.Equal(t, tt.p2, p2, string(tt.result))
	}
}

func TestScoringPolicy_Validate(t *testing.T) {
	require.NoError(t, DefaultScoringPolicy.Validate())
	require.NoError(t, ScoringPolicy{}.Validate())

	err := ScoringPolicy{Win: 100, Draw: -1}.Validate()
	assert.ErrorIs(t, err, ErrInvalidScoringPolicy)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPlayerService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.player.CreatePlayer(ctx, CreatePlayerInput{Name: " "})
	assert.ErrorIs(t, err, ErrNameRequired)

	tournament, players := env.seedTournament(t, 3, 0, 0)
	_, err = env.player.CreatePlayer(ctx, CreatePlayerInput{Name: players[0].Name})
	assert.ErrorIs(t, err, ErrPlayerNameConflict)

	matches, err := env.tournament.GenerateRound(ctx, tournament.ID)
	require.NoError(t, err)
	_, err = env.match.SubmitResult(ctx, matches[0].ID, models.ResultDraw)
	require.NoError(t, err)

	got, err := env.player.GetPlayer(ctx, players[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []int{matches[0].ID}, got.MatchIDs)
	assert.Equal(t, DefaultScoringPolicy.Draw, got.Points)
	assert.Equal(t, models.TierBronze, got.RankTier)

	_, err = env.player.GetPlayer(ctx, 999)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}
