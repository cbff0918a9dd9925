package services

import (
	"errors"
	"fmt"
)

// Виды ошибок. Каждая конкретная ошибка ниже оборачивает ровно один вид,
// поэтому errors.Is работает и с видом, и с конкретной ошибкой.
var (
	ErrNotFound     = errors.New("requested resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("operation conflicts with current state")
	ErrInternal     = errors.New("internal error")
)

var (
	// Не найдено
	ErrTournamentNotFound = fmt.Errorf("%w: tournament not found", ErrNotFound)
	ErrPlayerNotFound     = fmt.Errorf("%w: player not found", ErrNotFound)
	ErrMatchNotFound      = fmt.Errorf("%w: match not found", ErrNotFound)

	// Ошибки валидации и бизнес-правил
	ErrInsufficientPlayers  = fmt.Errorf("%w: tournament needs an even number of at least 2 players", ErrInvalidInput)
	ErrInvalidParticipants  = fmt.Errorf("%w: match participants are missing, unresolved or equal", ErrInvalidInput)
	ErrInvalidTournament    = fmt.Errorf("%w: match is not linked to a tournament", ErrInvalidInput)
	ErrInvalidOutcome       = fmt.Errorf("%w: unknown match result", ErrInvalidInput)
	ErrTournamentFull       = fmt.Errorf("%w: tournament registration is full", ErrInvalidInput)
	ErrRegistrationClosed   = fmt.Errorf("%w: tournament registration is closed", ErrInvalidInput)
	ErrNameRequired         = fmt.Errorf("%w: name is required", ErrInvalidInput)
	ErrInvalidLimits        = fmt.Errorf("%w: max_players must be at least 2 and max_rounds at least 1", ErrInvalidInput)
	ErrMaxRoundsReached     = fmt.Errorf("%w: tournament already played its last round", ErrInvalidInput)
	ErrTournamentFinished   = fmt.Errorf("%w: tournament is finished", ErrInvalidInput)
	ErrInvalidScoringPolicy = fmt.Errorf("%w: scoring points must not be negative", ErrInvalidInput)

	// Конфликты
	ErrPlayerAlreadyRegistered = fmt.Errorf("%w: player is already registered for this tournament", ErrConflict)
	ErrTournamentNameConflict  = fmt.Errorf("%w: tournament name already exists", ErrConflict)
	ErrPlayerNameConflict      = fmt.Errorf("%w: player name already exists", ErrConflict)
	ErrRoundConflict           = fmt.Errorf("%w: round was generated concurrently", ErrConflict)
	ErrRoundNotComplete        = fmt.Errorf("%w: current round still has pending matches", ErrConflict)
	ErrMatchAlreadyFinalized   = fmt.Errorf("%w: match result is already final", ErrConflict)

	// Внутренние
	ErrPairingFailed   = fmt.Errorf("%w: pairing could not complete", ErrInternal)
	ErrArchiveDisabled = fmt.Errorf("%w: standings archive storage is not configured", ErrInternal)
	ErrNegativePoints  = fmt.Errorf("%w: player points would become negative", ErrInternal)
)
