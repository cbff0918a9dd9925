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
	ErrPlayerNotFound       = errors.New("player not found")
	ErrPlayerNameConflict   = errors.New("player name conflict")
	ErrPlayerPointsNegative = errors.New("player points cannot become negative")
)

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, player *models.Player) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error)
	// ListByIDs returns the players that exist, in the order of ids.
	ListByIDs(ctx context.Context, exec SQLExecutor, ids []int) ([]*models.Player, error)
	AddPoints(ctx context.Context, exec SQLExecutor, id int, delta int) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Player) error {
	query := `
		INSERT INTO players (name, points)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := executorOr(r.db, exec).QueryRowContext(ctx, query, p.Name, p.Points).Scan(&p.ID, &p.CreatedAt)
	return r.handlePlayerError(err)
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error) {
	query := `SELECT id, name, points, created_at FROM players WHERE id = $1`

	p, err := scanPlayer(executorOr(r.db, exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player by id %d: %w", id, err)
	}
	return p, nil
}

func (r *postgresPlayerRepository) ListByIDs(ctx context.Context, exec SQLExecutor, ids []int) ([]*models.Player, error) {
	if len(ids) == 0 {
		return []*models.Player{}, nil
	}

	query := `SELECT id, name, points, created_at FROM players WHERE id = ANY($1)`
	rows, err := executorOr(r.db, exec).QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query players by ids: %w", err)
	}
	defer rows.Close()

	byID := make(map[int]*models.Player, len(ids))
	for rows.Next() {
		p, scanErr := scanPlayer(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", scanErr)
		}
		byID[p.ID] = p
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during player rows iteration: %w", err)
	}

	players := make([]*models.Player, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			players = append(players, p)
		}
	}
	return players, nil
}

func (r *postgresPlayerRepository) AddPoints(ctx context.Context, exec SQLExecutor, id int, delta int) error {
	query := `UPDATE players SET points = points + $1 WHERE id = $2`
	result, err := executorOr(r.db, exec).ExecContext(ctx, query, delta, id)
	if err != nil {
		return r.handlePlayerError(err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func scanPlayer(row rowScanner) (*models.Player, error) {
	p := &models.Player{}
	if err := row.Scan(&p.ID, &p.Name, &p.Points, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresPlayerRepository) handlePlayerError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "players_name_key":
			return ErrPlayerNameConflict
		case "players_points_non_negative":
			return ErrPlayerPointsNegative
		}
	}
	return err
}
