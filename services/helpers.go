package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/swiss-tournament/brackets"
	"github.com/Dosada05/swiss-tournament/models"
	"github.com/Dosada05/swiss-tournament/repositories"
)

// Notifier рассылает события подписчикам комнаты турнира. *brackets.Hub его реализует.
type Notifier interface {
	BroadcastToRoom(roomID string, message interface{})
}

type RoundGeneratedPayload struct {
	TournamentID int             `json:"tournament_id"`
	Round        int             `json:"round"`
	Matches      []*models.Match `json:"matches"`
}

type MatchResultPayload struct {
	TournamentID int           `json:"tournament_id"`
	Match        *models.Match `json:"match"`
}

type TournamentFinishedPayload struct {
	TournamentID int               `json:"tournament_id"`
	Standings    []models.Standing `json:"standings"`
}

func notifyTournament(n Notifier, tournamentID int, eventType string, payload interface{}) {
	if n == nil {
		return
	}
	room := brackets.RoomForTournament(tournamentID)
	n.BroadcastToRoom(room, brackets.WebSocketMessage{
		Type:    eventType,
		Payload: payload,
		RoomID:  room,
	})
}

// handleRepositoryError переводит ошибки репозиториев в ошибки сервисного слоя.
func handleRepositoryError(err error, op string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrPlayerNotFound):
		return ErrPlayerNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrTournamentNameConflict):
		return ErrTournamentNameConflict
	case errors.Is(err, repositories.ErrPlayerNameConflict):
		return ErrPlayerNameConflict
	case errors.Is(err, repositories.ErrTournamentPlayerConflict):
		return ErrPlayerAlreadyRegistered
	case errors.Is(err, repositories.ErrTournamentRoundConflict):
		return ErrRoundConflict
	case errors.Is(err, repositories.ErrMatchResultConflict):
		return ErrMatchAlreadyFinalized
	case errors.Is(err, repositories.ErrPlayerPointsNegative):
		return fmt.Errorf("%w: %s", ErrNegativePoints, op)
	case errors.Is(err, repositories.ErrMatchPlayersNotRegistered):
		return ErrInvalidParticipants
	case errors.Is(err, repositories.ErrTournamentInvalidLimits):
		return fmt.Errorf("%w: %w", ErrInvalidLimits, err)
	case errors.Is(err, repositories.ErrMatchInvalidData):
		return fmt.Errorf("%w: %s: %w", ErrInvalidInput, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}

func handlePairingError(err error) error {
	switch {
	case errors.Is(err, brackets.ErrInsufficientPlayers):
		return fmt.Errorf("%w: %w", ErrInsufficientPlayers, err)
	case errors.Is(err, brackets.ErrDuplicatePlayer):
		return fmt.Errorf("%w: %w", ErrInvalidParticipants, err)
	}
	return fmt.Errorf("%w: %w", ErrPairingFailed, err)
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
