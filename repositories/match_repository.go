package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound             = errors.New("match not found")
	ErrMatchResultConflict       = errors.New("match result was changed concurrently")
	ErrMatchPlayersNotRegistered = errors.New("match players must be registered in the tournament")
	ErrMatchInvalidData          = errors.New("invalid match data")
)

type ListMatchesFilter struct {
	Round  *int
	Result *models.MatchResult
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter ListMatchesFilter) ([]*models.Match, error)
	ListIDsByPlayer(ctx context.Context, exec SQLExecutor, playerID int) ([]int, error)
	// UpdateResult writes to only if the stored result still equals from.
	UpdateResult(ctx context.Context, exec SQLExecutor, id int, from, to models.MatchResult) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, tournament_id, round, player1_id, player2_id, result, created_at, updated_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches (tournament_id, round, player1_id, player2_id, result)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	if m.Result == "" {
		m.Result = models.ResultPending
	}

	err := executorOr(r.db, exec).QueryRowContext(ctx, query,
		m.TournamentID, m.Round, m.Player1ID, m.Player2ID, m.Result,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresMatchRepository) getOne(ctx context.Context, exec SQLExecutor, query string, id int) (*models.Match, error) {
	m, err := scanMatch(executorOr(r.db, exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter ListMatchesFilter) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	argID := 2

	if filter.Round != nil {
		query += fmt.Sprintf(" AND round = $%d", argID)
		args = append(args, *filter.Round)
		argID++
	}
	if filter.Result != nil {
		query += fmt.Sprintf(" AND result = $%d", argID)
		args = append(args, *filter.Result)
	}
	query += " ORDER BY round ASC, id ASC"

	rows, err := executorOr(r.db, exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) ListIDsByPlayer(ctx context.Context, exec SQLExecutor, playerID int) ([]int, error) {
	query := `SELECT id FROM matches WHERE player1_id = $1 OR player2_id = $1 ORDER BY id ASC`
	rows, err := executorOr(r.db, exec).QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches of player %d: %w", playerID, err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match id: %w", scanErr)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match id rows iteration: %w", err)
	}
	return ids, nil
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, id int, from, to models.MatchResult) error {
	query := `UPDATE matches SET result = $1 WHERE id = $2 AND result = $3`
	result, err := executorOr(r.db, exec).ExecContext(ctx, query, to, id, from)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchResultConflict)
}

func scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(&m.ID, &m.TournamentID, &m.Round, &m.Player1ID, &m.Player2ID, &m.Result, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "matches_player1_registered_fkey", "matches_player2_registered_fkey":
			return ErrMatchPlayersNotRegistered
		case "matches_tournament_id_fkey":
			return ErrTournamentNotFound
		case "matches_round_check", "matches_distinct_players", "matches_result_check", "matches_round_not_decreasing":
			return fmt.Errorf("%w: %s", ErrMatchInvalidData, pqErr.Constraint)
		}
	}
	return err
}
