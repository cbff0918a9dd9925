package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/Dosada05/swiss-tournament/repositories"
	"github.com/Dosada05/swiss-tournament/storage"
)

type RankingService interface {
	// Classify orders the tournament's players by points, highest first.
	// Equal totals keep registration order.
	Classify(ctx context.Context, tournamentID int) ([]models.Standing, error)
	RankingDetails(ctx context.Context, tournamentID int) ([]models.PlayerStats, error)
	// ArchiveStandings uploads the current classification and returns its public URL.
	ArchiveStandings(ctx context.Context, tournamentID int) (string, error)
}

// StandingsArchive is the JSON document stored by ArchiveStandings.
type StandingsArchive struct {
	TournamentID int               `json:"tournament_id"`
	Name         string            `json:"name"`
	Round        int               `json:"round"`
	Status       string            `json:"status"`
	ArchivedAt   time.Time         `json:"archived_at"`
	Standings    []models.Standing `json:"standings"`
}

type rankingService struct {
	txr            repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	playerRepo     repositories.PlayerRepository
	matchRepo      repositories.MatchRepository
	tiers          models.RankTiers
	locks          *TournamentLocks
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewRankingService(
	txr repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	matchRepo repositories.MatchRepository,
	tiers models.RankTiers,
	locks *TournamentLocks,
	uploader storage.FileUploader,
	logger *slog.Logger,
) RankingService {
	if len(tiers) == 0 {
		tiers = models.DefaultRankTiers
	}
	return &rankingService{
		txr:            txr,
		tournamentRepo: tournamentRepo,
		playerRepo:     playerRepo,
		matchRepo:      matchRepo,
		tiers:          tiers,
		locks:          locks,
		uploader:       uploader,
		logger:         loggerOrDefault(logger),
	}
}

func (s *rankingService) Classify(ctx context.Context, tournamentID int) ([]models.Standing, error) {
	var standings []models.Standing
	err := s.readTournament(ctx, tournamentID, false, func(_ *models.Tournament, players []*models.Player, _ []*models.Match) error {
		standings = ClassifyPlayers(players, s.tiers)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return standings, nil
}

func (s *rankingService) RankingDetails(ctx context.Context, tournamentID int) ([]models.PlayerStats, error) {
	var stats []models.PlayerStats
	err := s.readTournament(ctx, tournamentID, true, func(_ *models.Tournament, players []*models.Player, matches []*models.Match) error {
		stats = AggregateStats(players, matches)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *rankingService) ArchiveStandings(ctx context.Context, tournamentID int) (string, error) {
	if s.uploader == nil {
		return "", ErrArchiveDisabled
	}

	var archive StandingsArchive
	err := s.readTournament(ctx, tournamentID, false, func(t *models.Tournament, players []*models.Player, _ []*models.Match) error {
		archive = StandingsArchive{
			TournamentID: t.ID,
			Name:         t.Name,
			Round:        t.CurrentRound,
			Status:       string(t.Status),
			ArchivedAt:   time.Now().UTC(),
			Standings:    ClassifyPlayers(players, s.tiers),
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(archive)
	if err != nil {
		return "", fmt.Errorf("%w: marshal standings: %w", ErrInternal, err)
	}

	key := storage.StandingsKey(archive.TournamentID, archive.Round)
	res, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: upload standings: %w", ErrInternal, err)
	}

	s.logger.Info("standings archived",
		slog.Int("tournament_id", tournamentID),
		slog.Int("round", archive.Round),
		slog.String("key", res.Key))
	return res.Location, nil
}

// readTournament loads the tournament, its players in registration order and,
// when withMatches is set, its matches from one read-only snapshot.
func (s *rankingService) readTournament(
	ctx context.Context,
	tournamentID int,
	withMatches bool,
	fn func(t *models.Tournament, players []*models.Player, matches []*models.Match) error,
) error {
	unlock := s.locks.rlock(tournamentID)
	defer unlock()

	return s.txr.WithinTx(ctx, repositories.ReadSnapshot, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err, "get tournament")
		}
		ids, err := s.tournamentRepo.ListPlayerIDs(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err, "list tournament players")
		}
		players, err := s.playerRepo.ListByIDs(ctx, exec, ids)
		if err != nil {
			return handleRepositoryError(err, "load tournament players")
		}
		if len(players) != len(ids) {
			return fmt.Errorf("%w: %d registered players of tournament %d could not be resolved",
				ErrPlayerNotFound, len(ids)-len(players), tournamentID)
		}

		var matches []*models.Match
		if withMatches {
			matches, err = s.matchRepo.ListByTournament(ctx, exec, tournamentID, repositories.ListMatchesFilter{})
			if err != nil {
				return handleRepositoryError(err, "list tournament matches")
			}
		}
		return fn(t, players, matches)
	})
}

// ClassifyPlayers sorts by points descending. Players with equal points keep their input order.
func ClassifyPlayers(players []*models.Player, tiers models.RankTiers) []models.Standing {
	standings := make([]models.Standing, len(players))
	for i, p := range players {
		standings[i] = models.Standing{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			RankTier:   tiers.TierFor(p.Points),
			Points:     p.Points,
		}
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Points > standings[j].Points
	})
	return standings
}

// AggregateStats counts wins, losses and draws of every player over the terminal
// matches they played. PENDING matches are skipped. Points is the stored total.
func AggregateStats(players []*models.Player, matches []*models.Match) []models.PlayerStats {
	stats := make([]models.PlayerStats, len(players))
	index := make(map[int]int, len(players))
	for i, p := range players {
		stats[i] = models.PlayerStats{PlayerID: p.ID, Username: p.Name, Points: p.Points}
		index[p.ID] = i
	}

	credit := func(playerID int, apply func(*models.PlayerStats)) {
		if i, ok := index[playerID]; ok {
			apply(&stats[i])
		}
	}
	win := func(st *models.PlayerStats) { st.Wins++ }
	loss := func(st *models.PlayerStats) { st.Losses++ }
	draw := func(st *models.PlayerStats) { st.Draws++ }

	for _, m := range matches {
		switch m.Result {
		case models.ResultPlayer1Win:
			credit(m.Player1ID, win)
			credit(m.Player2ID, loss)
		case models.ResultPlayer2Win:
			credit(m.Player1ID, loss)
			credit(m.Player2ID, win)
		case models.ResultDraw:
			credit(m.Player1ID, draw)
			credit(m.Player2ID, draw)
		}
	}
	return stats
}
