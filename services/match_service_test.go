package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Dosada05/swiss-tournament/brackets"
	"github.com/Dosada05/swiss-tournament/models"
	"github.com/Dosada05/swiss-tournament/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startRound seeds a tournament with the given points and generates its first round.
func startRound(t *testing.T, env *testEnv, maxRounds int, points ...int) (*models.Tournament, []*models.Match) {
	t.Helper()
	tournament, _ := env.seedTournament(t, maxRounds, points...)
	matches, err := env.tournament.GenerateRound(context.Background(), tournament.ID)
	require.NoError(t, err)
	return tournament, matches
}

func TestSubmitResult_FinalizesPendingMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, matches := startRound(t, env, 3, 0, 0)
	m := matches[0]

	updated, err := env.match.SubmitResult(ctx, m.ID, models.ResultPlayer1Win)
	require.NoError(t, err)

	assert.Equal(t, models.ResultPlayer1Win, updated.Result)
	assert.Equal(t, m.Player1ID, updated.Player1ID)
	assert.Equal(t, m.Player2ID, updated.Player2ID)
	assert.Equal(t, m.Round, updated.Round)

	assert.Equal(t, DefaultScoringPolicy.Win, env.storedPlayer(m.Player1ID).Points)
	assert.Equal(t, DefaultScoringPolicy.Loss, env.storedPlayer(m.Player2ID).Points)
	assert.Equal(t, 1, env.notifier.count(brackets.EventMatchResult))
}

func TestSubmitResult_DrawCreditsBothPlayers(t *testing.T) {
	env := newTestEnv(t)
	_, matches := startRound(t, env, 3, 0, 0)
	m := matches[0]

	_, err := env.match.SubmitResult(context.Background(), m.ID, models.ResultDraw)
	require.NoError(t, err)
	assert.Equal(t, DefaultScoringPolicy.Draw, env.storedPlayer(m.Player1ID).Points)
	assert.Equal(t, DefaultScoringPolicy.Draw, env.storedPlayer(m.Player2ID).Points)
}

func TestSubmitResult_IsOneWay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, matches := startRound(t, env, 3, 0, 0)
	m := matches[0]

	_, err := env.match.SubmitResult(ctx, m.ID, models.ResultPlayer2Win)
	require.NoError(t, err)
	winnerPoints := env.storedPlayer(m.Player2ID).Points

	// тот же результат повторно: без второго начисления
	again, err := env.match.SubmitResult(ctx, m.ID, models.ResultPlayer2Win)
	require.NoError(t, err)
	assert.Equal(t, models.ResultPlayer2Win, again.Result)
	assert.Equal(t, winnerPoints, env.storedPlayer(m.Player2ID).Points)
	assert.Equal(t, 1, env.notifier.count(brackets.EventMatchResult))

	for _, other := range []models.MatchResult{models.ResultPending, models.ResultPlayer1Win, models.ResultDraw} {
		_, err := env.match.SubmitResult(ctx, m.ID, other)
		require.ErrorIs(t, err, ErrMatchAlreadyFinalized, string(other))
		assert.ErrorIs(t, err, ErrConflict)
	}

	stored, err := env.match.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResultPlayer2Win, stored.Result)
	assert.Equal(t, winnerPoints, env.storedPlayer(m.Player2ID).Points)
	assert.Zero(t, env.storedPlayer(m.Player1ID).Points)
}

func TestSubmitResult_PendingOnPendingIsNoop(t *testing.T) {
	env := newTestEnv(t)
	_, matches := startRound(t, env, 3, 0, 0)

	got, err := env.match.SubmitResult(context.Background(), matches[0].ID, models.ResultPending)
	require.NoError(t, err)
	assert.Equal(t, models.ResultPending, got.Result)
	assert.Zero(t, env.notifier.count(brackets.EventMatchResult))
}

func TestSubmitResult_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tournament, players := env.seedTournament(t, 3, 0, 0)

	selfMatch := env.insertMatch(models.Match{
		TournamentID: tournament.ID, Round: 1,
		Player1ID: players[0].ID, Player2ID: players[0].ID, Result: models.ResultPending,
	})
	ghostPlayer := env.insertMatch(models.Match{
		TournamentID: tournament.ID, Round: 1,
		Player1ID: players[0].ID, Player2ID: 999, Result: models.ResultPending,
	})
	noTournament := env.insertMatch(models.Match{
		Round: 1, Player1ID: players[0].ID, Player2ID: players[1].ID, Result: models.ResultPending,
	})
	missingTournament := env.insertMatch(models.Match{
		TournamentID: 999, Round: 1,
		Player1ID: players[0].ID, Player2ID: players[1].ID, Result: models.ResultPending,
	})

	tests := []struct {
		name    string
		matchID int
		result  models.MatchResult
		want    error
		kind    error
	}{
		{"unknown outcome", selfMatch, models.MatchResult("FORFEIT"), ErrInvalidOutcome, ErrInvalidInput},
		{"empty outcome", 12345, models.MatchResult(""), ErrInvalidOutcome, ErrInvalidInput},
		{"missing match", 12345, models.ResultDraw, ErrMatchNotFound, ErrNotFound},
		{"same player twice", selfMatch, models.ResultDraw, ErrInvalidParticipants, ErrInvalidInput},
		{"unresolved player", ghostPlayer, models.ResultDraw, ErrInvalidParticipants, ErrInvalidInput},
		{"no tournament", noTournament, models.ResultDraw, ErrInvalidTournament, ErrInvalidInput},
		{"missing tournament", missingTournament, models.ResultDraw, ErrInvalidTournament, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.match.SubmitResult(ctx, tt.matchID, tt.result)
			require.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
	assert.Zero(t, env.storedPlayer(players[0].ID).Points)
}

func TestSubmitResult_RollsBackWhenCreditFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, matches := startRound(t, env, 3, 0, 0)
	m := matches[0]

	env.store.mu.Lock()
	env.store.failAddPoints = true
	env.store.mu.Unlock()

	_, err := env.match.SubmitResult(ctx, m.ID, models.ResultPlayer1Win)
	require.ErrorIs(t, err, ErrInternal)

	stored, err := env.match.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResultPending, stored.Result)

	env.store.mu.Lock()
	env.store.failAddPoints = false
	env.store.mu.Unlock()

	_, err = env.match.SubmitResult(ctx, m.ID, models.ResultPlayer1Win)
	require.NoError(t, err)
	assert.Equal(t, DefaultScoringPolicy.Win, env.storedPlayer(m.Player1ID).Points)
}

func TestSubmitResult_FinishesTournamentAfterLastMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tournament, matches := startRound(t, env, 1, 0, 0, 0, 0)
	require.Len(t, matches, 2)

	_, err := env.match.SubmitResult(ctx, matches[0].ID, models.ResultPlayer1Win)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, env.storedTournament(tournament.ID).Status)
	assert.Zero(t, env.notifier.count(brackets.EventTournamentFinished))

	_, err = env.match.SubmitResult(ctx, matches[1].ID, models.ResultDraw)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, env.storedTournament(tournament.ID).Status)
	assert.Equal(t, 1, env.notifier.count(brackets.EventTournamentFinished))

	// повтор результата не завершает турнир второй раз
	_, err = env.match.SubmitResult(ctx, matches[1].ID, models.ResultDraw)
	require.NoError(t, err)
	assert.Equal(t, 1, env.notifier.count(brackets.EventTournamentFinished))

	raw, ok := env.uploader.objects[storage.StandingsKey(tournament.ID, 1)]
	require.True(t, ok, "final standings were not archived")
	var archive StandingsArchive
	require.NoError(t, json.Unmarshal(raw, &archive))
	assert.Equal(t, string(models.StatusFinished), archive.Status)
	require.Len(t, archive.Standings, 4)
	assert.Equal(t, DefaultScoringPolicy.Win, archive.Standings[0].Points)
}

func TestSubmitResult_ArchiveFailureDoesNotFailSubmission(t *testing.T) {
	env := newTestEnv(t)
	env.uploader.fail = true
	tournament, matches := startRound(t, env, 1, 0, 0)

	_, err := env.match.SubmitResult(context.Background(), matches[0].ID, models.ResultPlayer1Win)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, env.storedTournament(tournament.ID).Status)
}

func TestListMatches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tournament, first := startRound(t, env, 3, 0, 0, 0, 0)
	for _, m := range first {
		_, err := env.match.SubmitResult(ctx, m.ID, models.ResultDraw)
		require.NoError(t, err)
	}
	_, err := env.tournament.GenerateRound(ctx, tournament.ID)
	require.NoError(t, err)

	all, err := env.match.ListMatches(ctx, tournament.ID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	round := 2
	second, err := env.match.ListMatches(ctx, tournament.ID, &round)
	require.NoError(t, err)
	require.Len(t, second, 2)
	for _, m := range second {
		assert.Equal(t, 2, m.Round)
	}

	zero := 0
	_, err = env.match.ListMatches(ctx, tournament.ID, &zero)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.match.ListMatches(ctx, 999, nil)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}
