package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/Dosada05/swiss-tournament/repositories"
)

type PlayerService interface {
	CreatePlayer(ctx context.Context, input CreatePlayerInput) (*models.Player, error)
	// GetPlayer returns the player with the derived rank tier and the ids of every match played.
	GetPlayer(ctx context.Context, id int) (*models.Player, error)
}

type CreatePlayerInput struct {
	Name string `json:"name"`
}

type playerService struct {
	txr        repositories.Transactor
	playerRepo repositories.PlayerRepository
	matchRepo  repositories.MatchRepository
	tiers      models.RankTiers
	logger     *slog.Logger
}

func NewPlayerService(
	txr repositories.Transactor,
	playerRepo repositories.PlayerRepository,
	matchRepo repositories.MatchRepository,
	tiers models.RankTiers,
	logger *slog.Logger,
) PlayerService {
	if len(tiers) == 0 {
		tiers = models.DefaultRankTiers
	}
	return &playerService{
		txr:        txr,
		playerRepo: playerRepo,
		matchRepo:  matchRepo,
		tiers:      tiers,
		logger:     loggerOrDefault(logger),
	}
}

func (s *playerService) CreatePlayer(ctx context.Context, input CreatePlayerInput) (*models.Player, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	player := &models.Player{Name: name, Points: 0}
	if err := s.playerRepo.Create(ctx, nil, player); err != nil {
		return nil, handleRepositoryError(err, "create player")
	}
	player.RankTier = s.tiers.TierFor(player.Points)
	player.MatchIDs = []int{}

	s.logger.Info("player created", slog.Int("player_id", player.ID), slog.String("name", player.Name))
	return player, nil
}

func (s *playerService) GetPlayer(ctx context.Context, id int) (*models.Player, error) {
	var player *models.Player
	err := s.txr.WithinTx(ctx, repositories.ReadSnapshot, func(exec repositories.SQLExecutor) error {
		p, err := s.playerRepo.GetByID(ctx, exec, id)
		if err != nil {
			return handleRepositoryError(err, "get player")
		}
		ids, err := s.matchRepo.ListIDsByPlayer(ctx, exec, id)
		if err != nil {
			return handleRepositoryError(err, "list player matches")
		}
		p.MatchIDs = ids
		player = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	player.RankTier = s.tiers.TierFor(player.Points)
	return player, nil
}
