package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/swiss-tournament/brackets"
	"github.com/Dosada05/swiss-tournament/models"
	"github.com/Dosada05/swiss-tournament/repositories"
)

type MatchService interface {
	// SubmitResult records the outcome of a match. A PENDING match moves to a
	// terminal result exactly once and both players are credited at that moment.
	// Resubmitting the stored terminal result is a no-op.
	SubmitResult(ctx context.Context, matchID int, result models.MatchResult) (*models.Match, error)
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	// ListMatches returns the matches of a tournament, optionally limited to one round.
	ListMatches(ctx context.Context, tournamentID int, round *int) ([]*models.Match, error)
}

type matchService struct {
	txr            repositories.Transactor
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	playerRepo     repositories.PlayerRepository
	scoring        ScoringPolicy
	ranking        RankingService
	locks          *TournamentLocks
	notifier       Notifier
	logger         *slog.Logger
}

func NewMatchService(
	txr repositories.Transactor,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	scoring ScoringPolicy,
	ranking RankingService,
	locks *TournamentLocks,
	notifier Notifier,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		txr:            txr,
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		playerRepo:     playerRepo,
		scoring:        scoring,
		ranking:        ranking,
		locks:          locks,
		notifier:       notifier,
		logger:         loggerOrDefault(logger),
	}
}

// submitOutcome describes what a committed submission changed.
type submitOutcome struct {
	match     *models.Match
	finalized bool
	finished  bool
}

func (s *matchService) SubmitResult(ctx context.Context, matchID int, result models.MatchResult) (*models.Match, error) {
	if !result.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOutcome, result)
	}

	// tournament_id никогда не меняется, поэтому его можно прочитать до блокировки
	current, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, handleRepositoryError(err, "get match")
	}
	if current.TournamentID == 0 {
		return nil, ErrInvalidTournament
	}

	out, err := s.submitLocked(ctx, current.TournamentID, matchID, result)
	if err != nil {
		if !errors.Is(err, ErrInvalidInput) && !errors.Is(err, ErrConflict) && !errors.Is(err, ErrNotFound) {
			s.logger.Error("match result submission failed", slog.Int("match_id", matchID), slog.Any("error", err))
		}
		return nil, err
	}

	if out.finalized {
		s.logger.Info("match result finalized",
			slog.Int("match_id", out.match.ID),
			slog.Int("tournament_id", out.match.TournamentID),
			slog.Int("round", out.match.Round),
			slog.String("result", string(out.match.Result)))
		notifyTournament(s.notifier, out.match.TournamentID, brackets.EventMatchResult, MatchResultPayload{
			TournamentID: out.match.TournamentID,
			Match:        out.match,
		})
	}
	if out.finished {
		s.afterTournamentFinished(ctx, out.match.TournamentID)
	}
	return out.match, nil
}

func (s *matchService) submitLocked(ctx context.Context, tournamentID, matchID int, result models.MatchResult) (submitOutcome, error) {
	unlock := s.locks.lock(tournamentID)
	defer unlock()

	var out submitOutcome
	err := s.txr.WithinTx(ctx, nil, func(exec repositories.SQLExecutor) error {
		out = submitOutcome{}

		match, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			return handleRepositoryError(err, "lock match")
		}
		if match.Player1ID == 0 || match.Player2ID == 0 || match.Player1ID == match.Player2ID {
			return fmt.Errorf("%w: match %d has players %d and %d", ErrInvalidParticipants, match.ID, match.Player1ID, match.Player2ID)
		}

		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, match.TournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return fmt.Errorf("%w: tournament %d of match %d does not exist", ErrInvalidTournament, match.TournamentID, match.ID)
			}
			return handleRepositoryError(err, "lock tournament")
		}

		players, err := s.playerRepo.ListByIDs(ctx, exec, []int{match.Player1ID, match.Player2ID})
		if err != nil {
			return handleRepositoryError(err, "load match players")
		}
		if len(players) != 2 {
			return fmt.Errorf("%w: match %d references a missing player", ErrInvalidParticipants, match.ID)
		}

		out.match = match
		switch {
		case match.Result == result:
			// Повторная отправка того же результата ничего не меняет.
			return nil
		case match.Result.IsTerminal():
			return fmt.Errorf("%w: match %d is %s", ErrMatchAlreadyFinalized, match.ID, match.Result)
		}

		if err := s.matchRepo.UpdateResult(ctx, exec, match.ID, models.ResultPending, result); err != nil {
			return handleRepositoryError(err, "update match result")
		}
		match.Result = result
		out.finalized = true

		p1Points, p2Points := s.scoring.Award(result)
		if err := s.creditPoints(ctx, exec, match.Player1ID, p1Points); err != nil {
			return err
		}
		if err := s.creditPoints(ctx, exec, match.Player2ID, p2Points); err != nil {
			return err
		}

		finished, err := s.finishIfLastMatch(ctx, exec, tournament, match)
		if err != nil {
			return err
		}
		out.finished = finished
		return nil
	})
	if err != nil {
		return submitOutcome{}, err
	}
	return out, nil
}

func (s *matchService) creditPoints(ctx context.Context, exec repositories.SQLExecutor, playerID, points int) error {
	if points == 0 {
		return nil
	}
	if err := s.playerRepo.AddPoints(ctx, exec, playerID, points); err != nil {
		return handleRepositoryError(err, "credit player points")
	}
	return nil
}

// finishIfLastMatch moves the tournament to FINISHED once the final round has no pending match left.
func (s *matchService) finishIfLastMatch(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, match *models.Match) (bool, error) {
	if t.Status != models.StatusInProgress || t.CurrentRound < t.MaxRounds || match.Round != t.CurrentRound {
		return false, nil
	}

	round, pending := t.CurrentRound, models.ResultPending
	open, err := s.matchRepo.ListByTournament(ctx, exec, t.ID, repositories.ListMatchesFilter{Round: &round, Result: &pending})
	if err != nil {
		return false, handleRepositoryError(err, "list pending matches")
	}
	if len(open) > 0 {
		return false, nil
	}

	if !models.IsValidStatusTransition(t.Status, models.StatusFinished) {
		return false, fmt.Errorf("%w: cannot move tournament from %s to %s", ErrInternal, t.Status, models.StatusFinished)
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, exec, t.ID, models.StatusFinished); err != nil {
		return false, handleRepositoryError(err, "finish tournament")
	}
	return true, nil
}

func (s *matchService) afterTournamentFinished(ctx context.Context, tournamentID int) {
	s.logger.Info("tournament finished", slog.Int("tournament_id", tournamentID))
	if s.ranking == nil {
		notifyTournament(s.notifier, tournamentID, brackets.EventTournamentFinished, TournamentFinishedPayload{TournamentID: tournamentID})
		return
	}

	standings, err := s.ranking.Classify(ctx, tournamentID)
	if err != nil {
		s.logger.Error("failed to classify finished tournament", slog.Int("tournament_id", tournamentID), slog.Any("error", err))
	}
	notifyTournament(s.notifier, tournamentID, brackets.EventTournamentFinished, TournamentFinishedPayload{
		TournamentID: tournamentID,
		Standings:    standings,
	})

	if _, err := s.ranking.ArchiveStandings(ctx, tournamentID); err != nil && !errors.Is(err, ErrArchiveDisabled) {
		s.logger.Error("failed to archive final standings", slog.Int("tournament_id", tournamentID), slog.Any("error", err))
	}
}

func (s *matchService) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err, "get match")
	}
	return match, nil
}

func (s *matchService) ListMatches(ctx context.Context, tournamentID int, round *int) ([]*models.Match, error) {
	if round != nil && *round < 1 {
		return nil, fmt.Errorf("%w: round must be at least 1", ErrInvalidInput)
	}
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err, "get tournament")
	}
	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID, repositories.ListMatchesFilter{Round: round})
	if err != nil {
		return nil, handleRepositoryError(err, "list matches")
	}
	return matches, nil
}
