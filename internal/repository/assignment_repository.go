package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/quantum-grit/your-sofia/signal-service/internal/models"
	"github.com/rs/zerolog"
)

type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	List(ctx context.Context, filter models.AssignmentFilter, limit, offset int) ([]models.Assignment, int, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	ListActiveByContainer(ctx context.Context, containerID string) ([]models.Assignment, error)
}

type assignmentRepository struct {
	*PostgresRepository
}

func NewAssignmentRepository(db *sql.DB, logger zerolog.Logger) AssignmentRepository {
	return &assignmentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const assignmentColumns = `id, title, description, containers, assigned_to, activities,
	status, due_date, completed_at, created_at, updated_at`

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	query := `
		INSERT INTO assignments (` + assignmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		assignment.ID,
		assignment.Title,
		assignment.Description,
		pq.Array(assignment.Containers),
		assignment.AssignedTo,
		assignment.Activities,
		assignment.Status,
		assignment.DueDate,
		assignment.CompletedAt,
		assignment.CreatedAt,
		assignment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}

	return nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`

	assignment, err := scanAssignment(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrAssignmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	return assignment, nil
}

func (r *assignmentRepository) List(ctx context.Context, filter models.AssignmentFilter, limit, offset int) ([]models.Assignment, int, error) {
	where := `WHERE ($1 = '' OR status = $1) AND ($2 = '' OR assigned_to = $2)`

	var total int
	countQuery := `SELECT COUNT(*) FROM assignments ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, string(filter.Status), filter.AssignedTo).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count assignments: %w", err)
	}

	query := `SELECT ` + assignmentColumns + ` FROM assignments ` + where + `
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.db.QueryContext(ctx, query, string(filter.Status), filter.AssignedTo, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	assignments, err := collectAssignments(rows)
	if err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	query := `
		UPDATE assignments
		SET title = $1, description = $2, containers = $3, assigned_to = $4, activities = $5,
			status = $6, due_date = $7, completed_at = $8, updated_at = $9
		WHERE id = $10
	`

	res, err := r.db.ExecContext(ctx, query,
		assignment.Title,
		assignment.Description,
		pq.Array(assignment.Containers),
		assignment.AssignedTo,
		assignment.Activities,
		assignment.Status,
		assignment.DueDate,
		assignment.CompletedAt,
		assignment.UpdatedAt,
		assignment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrAssignmentNotFound
	}

	return nil
}

// ListActiveByContainer returns the pending and in-progress assignments that
// include the container.
func (r *assignmentRepository) ListActiveByContainer(ctx context.Context, containerID string) ([]models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments
		WHERE $1 = ANY(containers) AND status IN ('pending', 'in-progress')
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, containerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments by container: %w", err)
	}
	defer rows.Close()

	return collectAssignments(rows)
}

func collectAssignments(rows *sql.Rows) ([]models.Assignment, error) {
	var assignments []models.Assignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, *assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

func scanAssignment(row rowScanner) (*models.Assignment, error) {
	var (
		assignment  models.Assignment
		containers  pq.StringArray
		dueDate     sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(
		&assignment.ID,
		&assignment.Title,
		&assignment.Description,
		&containers,
		&assignment.AssignedTo,
		&assignment.Activities,
		&assignment.Status,
		&dueDate,
		&completedAt,
		&assignment.CreatedAt,
		&assignment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	assignment.Containers = []string(containers)
	if dueDate.Valid {
		assignment.DueDate = &dueDate.Time
	}
	if completedAt.Valid {
		assignment.CompletedAt = &completedAt.Time
	}

	return &assignment, nil
}
