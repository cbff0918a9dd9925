package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Dosada05/swiss-tournament/brackets"
	"github.com/Dosada05/swiss-tournament/models"
	"github.com/Dosada05/swiss-tournament/repositories"
	"golang.org/x/sync/errgroup"
)

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	GetTournamentDetails(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, input ListTournamentsInput) ([]*models.Tournament, error)
	RegisterPlayer(ctx context.Context, tournamentID, playerID int) (*models.Tournament, error)
	// GenerateRound pairs every registered player for the next round. Either the whole
	// round is stored and current_round advances, or nothing changes.
	GenerateRound(ctx context.Context, tournamentID int) ([]*models.Match, error)
}

type CreateTournamentInput struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"max_players"`
	MaxRounds  int    `json:"max_rounds"`
}

type ListTournamentsInput struct {
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

type tournamentService struct {
	txr            repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	playerRepo     repositories.PlayerRepository
	matchRepo      repositories.MatchRepository
	pairer         brackets.Pairer
	tiers          models.RankTiers
	locks          *TournamentLocks
	notifier       Notifier
	logger         *slog.Logger
}

func NewTournamentService(
	txr repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	matchRepo repositories.MatchRepository,
	pairer brackets.Pairer,
	tiers models.RankTiers,
	locks *TournamentLocks,
	notifier Notifier,
	logger *slog.Logger,
) TournamentService {
	if len(tiers) == 0 {
		tiers = models.DefaultRankTiers
	}
	return &tournamentService{
		txr:            txr,
		tournamentRepo: tournamentRepo,
		playerRepo:     playerRepo,
		matchRepo:      matchRepo,
		pairer:         pairer,
		tiers:          tiers,
		locks:          locks,
		notifier:       notifier,
		logger:         loggerOrDefault(logger),
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if input.MaxPlayers < 2 || input.MaxRounds < 1 {
		return nil, fmt.Errorf("%w: got max_players=%d max_rounds=%d", ErrInvalidLimits, input.MaxPlayers, input.MaxRounds)
	}

	tournament := &models.Tournament{
		Name:         name,
		MaxPlayers:   input.MaxPlayers,
		MaxRounds:    input.MaxRounds,
		CurrentRound: 0,
		Status:       models.StatusCreated,
		PlayerIDs:    []int{},
		MatchIDs:     []int{},
	}
	if err := s.tournamentRepo.Create(ctx, nil, tournament); err != nil {
		return nil, handleRepositoryError(err, "create tournament")
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("name", tournament.Name),
		slog.Int("max_players", tournament.MaxPlayers),
		slog.Int("max_rounds", tournament.MaxRounds))
	return tournament, nil
}

// GetTournament returns the tournament with its player and match ids read from one snapshot.
func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	var tournament *models.Tournament
	err := s.txr.WithinTx(ctx, repositories.ReadSnapshot, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByID(ctx, exec, id)
		if err != nil {
			return handleRepositoryError(err, "get tournament")
		}
		playerIDs, err := s.tournamentRepo.ListPlayerIDs(ctx, exec, id)
		if err != nil {
			return handleRepositoryError(err, "list tournament players")
		}
		matches, err := s.matchRepo.ListByTournament(ctx, exec, id, repositories.ListMatchesFilter{})
		if err != nil {
			return handleRepositoryError(err, "list tournament matches")
		}

		t.PlayerIDs = playerIDs
		t.MatchIDs = matchIDs(matches)
		tournament = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tournament, nil
}

// GetTournamentDetails loads players and matches in parallel on top of GetTournament.
func (s *tournamentService) GetTournamentDetails(ctx context.Context, id int) (*models.Tournament, error) {
	unlock := s.locks.rlock(id)
	defer unlock()

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err, "get tournament")
	}

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Участники в порядке регистрации
	g.Go(func() error {
		ids, err := s.tournamentRepo.ListPlayerIDs(gCtx, nil, id)
		if err != nil {
			return handleRepositoryError(err, "list tournament players")
		}
		players, err := s.playerRepo.ListByIDs(gCtx, nil, ids)
		if err != nil {
			return handleRepositoryError(err, "load tournament players")
		}
		if len(players) != len(ids) {
			return fmt.Errorf("%w: %d of %d registered players could not be loaded", ErrPlayerNotFound, len(ids)-len(players), len(ids))
		}
		tournament.PlayerIDs = ids
		tournament.Players = make([]models.Player, len(players))
		for i, p := range players {
			p.RankTier = s.tiers.TierFor(p.Points)
			tournament.Players[i] = *p
		}
		return nil
	})

	// 2. Матчи всех раундов
	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, nil, id, repositories.ListMatchesFilter{})
		if err != nil {
			return handleRepositoryError(err, "list tournament matches")
		}
		tournament.MatchIDs = matchIDs(matches)
		tournament.Matches = make([]models.Match, len(matches))
		for i, m := range matches {
			tournament.Matches[i] = *m
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load tournament details", slog.Int("tournament_id", id), slog.Any("error", err))
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, input ListTournamentsInput) ([]*models.Tournament, error) {
	if input.Limit < 0 || input.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidInput)
	}
	tournaments, err := s.tournamentRepo.List(ctx, nil, repositories.ListTournamentsFilter{
		Status: input.Status,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return nil, handleRepositoryError(err, "list tournaments")
	}
	return tournaments, nil
}

func (s *tournamentService) RegisterPlayer(ctx context.Context, tournamentID, playerID int) (*models.Tournament, error) {
	unlock := s.locks.lock(tournamentID)
	defer unlock()

	var tournament *models.Tournament
	err := s.txr.WithinTx(ctx, nil, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err, "lock tournament")
		}
		if t.Status != models.StatusCreated {
			return fmt.Errorf("%w: tournament %d is %s", ErrRegistrationClosed, t.ID, t.Status)
		}
		if _, err := s.playerRepo.GetByID(ctx, exec, playerID); err != nil {
			return handleRepositoryError(err, "get player")
		}

		ids, err := s.tournamentRepo.ListPlayerIDs(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err, "list tournament players")
		}
		if slices.Contains(ids, playerID) {
			return ErrPlayerAlreadyRegistered
		}
		if len(ids) >= t.MaxPlayers {
			return fmt.Errorf("%w: %d of %d places taken", ErrTournamentFull, len(ids), t.MaxPlayers)
		}

		if err := s.tournamentRepo.AddPlayer(ctx, exec, tournamentID, playerID); err != nil {
			return handleRepositoryError(err, "register player")
		}
		t.PlayerIDs = append(ids, playerID)
		tournament = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("player registered",
		slog.Int("tournament_id", tournamentID),
		slog.Int("player_id", playerID),
		slog.Int("players", len(tournament.PlayerIDs)))
	return tournament, nil
}

func (s *tournamentService) GenerateRound(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	unlock := s.locks.lock(tournamentID)
	defer unlock()

	var (
		created []*models.Match
		round   int
	)
	err := s.txr.WithinTx(ctx, nil, func(exec repositories.SQLExecutor) error {
		created, round = nil, 0

		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err, "lock tournament")
		}
		if t.Status == models.StatusFinished {
			return ErrTournamentFinished
		}
		if t.CurrentRound >= t.MaxRounds {
			return fmt.Errorf("%w: %d of %d rounds played", ErrMaxRoundsReached, t.CurrentRound, t.MaxRounds)
		}
		if t.CurrentRound > 0 {
			currentRound, pending := t.CurrentRound, models.ResultPending
			open, err := s.matchRepo.ListByTournament(ctx, exec, tournamentID, repositories.ListMatchesFilter{
				Round:  &currentRound,
				Result: &pending,
			})
			if err != nil {
				return handleRepositoryError(err, "list pending matches")
			}
			if len(open) > 0 {
				return fmt.Errorf("%w: %d matches of round %d", ErrRoundNotComplete, len(open), currentRound)
			}
		}

		ids, err := s.tournamentRepo.ListPlayerIDs(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err, "list tournament players")
		}
		if len(ids) < 2 || len(ids)%2 != 0 {
			return fmt.Errorf("%w: tournament %d has %d", ErrInsufficientPlayers, tournamentID, len(ids))
		}
		players, err := s.playerRepo.ListByIDs(ctx, exec, ids)
		if err != nil {
			return handleRepositoryError(err, "load tournament players")
		}
		if len(players) != len(ids) {
			return fmt.Errorf("%w: %d registered players could not be resolved", ErrInvalidParticipants, len(ids)-len(players))
		}

		pairings, err := s.pairer.PairRound(players)
		if err != nil {
			return handlePairingError(err)
		}

		round = t.CurrentRound + 1
		nextStatus := models.StatusInProgress
		if !models.IsValidStatusTransition(t.Status, nextStatus) {
			return fmt.Errorf("%w: cannot move tournament from %s to %s", ErrInternal, t.Status, nextStatus)
		}
		if err := s.tournamentRepo.AdvanceRound(ctx, exec, tournamentID, t.CurrentRound, round, nextStatus); err != nil {
			return handleRepositoryError(err, "advance round")
		}

		created = make([]*models.Match, 0, len(pairings))
		for _, pairing := range pairings {
			match := &models.Match{
				TournamentID: tournamentID,
				Round:        round,
				Player1ID:    pairing.Player1.ID,
				Player2ID:    pairing.Player2.ID,
				Result:       models.ResultPending,
			}
			if err := s.matchRepo.Create(ctx, exec, match); err != nil {
				return handleRepositoryError(err, "create match")
			}
			created = append(created, match)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("round generation aborted", slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		return nil, err
	}

	s.logger.Info("round generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("round", round),
		slog.Int("matches", len(created)))

	notifyTournament(s.notifier, tournamentID, brackets.EventRoundGenerated, RoundGeneratedPayload{
		TournamentID: tournamentID,
		Round:        round,
		Matches:      created,
	})
	return created, nil
}

func matchIDs(matches []*models.Match) []int {
	ids := make([]int, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids
}
