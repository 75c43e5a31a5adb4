package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/quantum-grit/your-sofia/signal-service/internal/models"
	"github.com/rs/zerolog"
)

type SignalRepository interface {
	Create(ctx context.Context, signal *models.Signal) error
	GetByID(ctx context.Context, id string) (*models.Signal, error)
	List(ctx context.Context, filter models.SignalFilter, limit, offset int) ([]models.Signal, int, error)
	Update(ctx context.Context, signal *models.Signal) error
}

type signalRepository struct {
	*PostgresRepository
}

func NewSignalRepository(db *sql.DB, logger zerolog.Logger) SignalRepository {
	return &signalRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const signalColumns = `id, title, description, category, container_state, status,
	city_object, location, admin_notes, reporter_id, created_at, updated_at`

func (r *signalRepository) Create(ctx context.Context, signal *models.Signal) error {
	cityObject, location, err := encodeSignalAssociations(signal)
	if err != nil {
		return err
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO signals (` + signalColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`
		_, err := tx.ExecContext(ctx, query,
			signal.ID,
			signal.Title,
			signal.Description,
			signal.Category,
			signal.ContainerState,
			signal.Status,
			cityObject,
			location,
			signal.AdminNotes,
			signal.ReporterID,
			signal.CreatedAt,
			signal.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert signal: %w", err)
		}
		return insertPhotos(ctx, tx, signal)
	})
}

func (r *signalRepository) GetByID(ctx context.Context, id string) (*models.Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals WHERE id = $1`

	signal, err := scanSignal(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrSignalNotFound
	}
	if err != nil {
		return nil, err
	}

	photos, err := r.loadPhotos(ctx, []string{signal.ID})
	if err != nil {
		return nil, err
	}
	signal.Photos = photos[signal.ID]

	return signal, nil
}

func (r *signalRepository) List(ctx context.Context, filter models.SignalFilter, limit, offset int) ([]models.Signal, int, error) {
	where := `WHERE ($1 = '' OR status = $1) AND ($2 = '' OR reporter_id = $2)`

	var total int
	countQuery := `SELECT COUNT(*) FROM signals ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, string(filter.Status), filter.ReporterID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count signals: %w", err)
	}

	query := `SELECT ` + signalColumns + ` FROM signals ` + where + `
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.db.QueryContext(ctx, query, string(filter.Status), filter.ReporterID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list signals: %w", err)
	}
	defer rows.Close()

	var signals []models.Signal
	var ids []string
	for rows.Next() {
		signal, err := scanSignal(rows)
		if err != nil {
			return nil, 0, err
		}
		signals = append(signals, *signal)
		ids = append(ids, signal.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	photos, err := r.loadPhotos(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range signals {
		signals[i].Photos = photos[signals[i].ID]
	}

	return signals, total, nil
}

func (r *signalRepository) Update(ctx context.Context, signal *models.Signal) error {
	cityObject, location, err := encodeSignalAssociations(signal)
	if err != nil {
		return err
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE signals
			SET title = $1, description = $2, container_state = $3, status = $4,
				city_object = $5, location = $6, admin_notes = $7, updated_at = $8
			WHERE id = $9
		`
		res, err := tx.ExecContext(ctx, query,
			signal.Title,
			signal.Description,
			signal.ContainerState,
			signal.Status,
			cityObject,
			location,
			signal.AdminNotes,
			signal.UpdatedAt,
			signal.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update signal: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return models.ErrSignalNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM signal_photos WHERE signal_id = $1`, signal.ID); err != nil {
			return fmt.Errorf("failed to clear signal photos: %w", err)
		}
		return insertPhotos(ctx, tx, signal)
	})
}

// insertPhotos stores the persisted photos in order; pending photos have no row.
func insertPhotos(ctx context.Context, tx *sql.Tx, signal *models.Signal) error {
	position := 0
	for _, photo := range signal.Photos {
		id, ok := photo.ID()
		if !ok {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO signal_photos (id, signal_id, url, position) VALUES ($1, $2, $3, $4)`,
			id, signal.ID, photo.URL(), position,
		)
		if err != nil {
			return fmt.Errorf("failed to insert signal photo: %w", err)
		}
		position++
	}
	return nil
}

func (r *signalRepository) loadPhotos(ctx context.Context, signalIDs []string) (map[string][]models.Photo, error) {
	result := make(map[string][]models.Photo, len(signalIDs))
	if len(signalIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, signal_id, url
		FROM signal_photos
		WHERE signal_id = ANY($1)
		ORDER BY signal_id, position
	`, pq.Array(signalIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load signal photos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, signalID, url string
		if err := rows.Scan(&id, &signalID, &url); err != nil {
			return nil, err
		}
		result[signalID] = append(result[signalID], models.ExistingPhoto(id, url))
	}

	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSignal(row rowScanner) (*models.Signal, error) {
	var (
		signal     models.Signal
		cityObject []byte
		location   []byte
	)
	err := row.Scan(
		&signal.ID,
		&signal.Title,
		&signal.Description,
		&signal.Category,
		&signal.ContainerState,
		&signal.Status,
		&cityObject,
		&location,
		&signal.AdminNotes,
		&signal.ReporterID,
		&signal.CreatedAt,
		&signal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(cityObject) > 0 {
		signal.CityObject = &models.CityObject{}
		if err := json.Unmarshal(cityObject, signal.CityObject); err != nil {
			return nil, fmt.Errorf("failed to decode city object: %w", err)
		}
	}
	if len(location) > 0 {
		signal.Location = &models.Location{}
		if err := json.Unmarshal(location, signal.Location); err != nil {
			return nil, fmt.Errorf("failed to decode location: %w", err)
		}
	}

	return &signal, nil
}

func encodeSignalAssociations(signal *models.Signal) (cityObject, location []byte, err error) {
	if signal.CityObject != nil {
		if cityObject, err = json.Marshal(signal.CityObject); err != nil {
			return nil, nil, fmt.Errorf("failed to encode city object: %w", err)
		}
	}
	if signal.Location != nil {
		if location, err = json.Marshal(signal.Location); err != nil {
			return nil, nil, fmt.Errorf("failed to encode location: %w", err)
		}
	}
	return cityObject, location, nil
}
