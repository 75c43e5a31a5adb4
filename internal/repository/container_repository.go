package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/quantum-grit/your-sofia/signal-service/internal/models"
	"github.com/rs/zerolog"
)

type ContainerRepository interface {
	GetByID(ctx context.Context, id string) (*models.WasteContainer, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]models.WasteContainer, error)
	List(ctx context.Context, limit, offset int) ([]models.WasteContainer, int, error)
	UpsertStates(ctx context.Context, id string, states models.StateSet, updatedAt time.Time) (*models.WasteContainer, error)
}

type containerRepository struct {
	*PostgresRepository
}

func NewContainerRepository(db *sql.DB, logger zerolog.Logger) ContainerRepository {
	return &containerRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *containerRepository) GetByID(ctx context.Context, id string) (*models.WasteContainer, error) {
	query := `SELECT id, public_number, states, updated_at FROM waste_containers WHERE id = $1`

	var container models.WasteContainer
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&container.ID,
		&container.PublicNumber,
		&container.States,
		&container.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrContainerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get container: %w", err)
	}

	return &container, nil
}

// GetByIDs returns the known containers among ids; unknown ids are absent from the map.
func (r *containerRepository) GetByIDs(ctx context.Context, ids []string) (map[string]models.WasteContainer, error) {
	result := make(map[string]models.WasteContainer, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `SELECT id, public_number, states, updated_at FROM waste_containers WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get containers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var container models.WasteContainer
		if err := rows.Scan(&container.ID, &container.PublicNumber, &container.States, &container.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan container: %w", err)
		}
		result[container.ID] = container
	}

	return result, rows.Err()
}

func (r *containerRepository) List(ctx context.Context, limit, offset int) ([]models.WasteContainer, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM waste_containers`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count containers: %w", err)
	}

	query := `
		SELECT id, public_number, states, updated_at
		FROM waste_containers
		ORDER BY public_number, id
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list containers: %w", err)
	}
	defer rows.Close()

	var containers []models.WasteContainer
	for rows.Next() {
		var container models.WasteContainer
		if err := rows.Scan(&container.ID, &container.PublicNumber, &container.States, &container.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan container: %w", err)
		}
		containers = append(containers, container)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return containers, total, nil
}

// UpsertStates replaces the current states of a container, registering it when unknown.
func (r *containerRepository) UpsertStates(ctx context.Context, id string, states models.StateSet, updatedAt time.Time) (*models.WasteContainer, error) {
	query := `
		INSERT INTO waste_containers (id, states, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET states = EXCLUDED.states, updated_at = EXCLUDED.updated_at
		RETURNING id, public_number, states, updated_at
	`

	var container models.WasteContainer
	err := r.db.QueryRowContext(ctx, query, id, states, updatedAt).Scan(
		&container.ID,
		&container.PublicNumber,
		&container.States,
		&container.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert container states: %w", err)
	}

	r.logger.Debug().
		Str("container_id", id).
		Strs("states", states.Strings()).
		Msg("Container states stored")

	return &container, nil
}
