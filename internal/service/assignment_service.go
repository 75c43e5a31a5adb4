package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantum-grit/your-sofia/signal-service/internal/models"
	"github.com/quantum-grit/your-sofia/signal-service/internal/repository"
	"github.com/quantum-grit/your-sofia/signal-service/internal/service/integration"
	"github.com/quantum-grit/your-sofia/signal-service/pkg/utils"
	"github.com/rs/zerolog"
)

type AssignmentService interface {
	CreateAssignment(ctx context.Context, actor models.Actor, req *models.CreateAssignmentRequest) (*models.Assignment, error)
	GetAssignment(ctx context.Context, id string) (*models.Assignment, error)
	ListAssignments(ctx context.Context, filter models.AssignmentFilter, page, limit int) (*models.AssignmentsResponse, error)
	UpdateStatus(ctx context.Context, actor models.Actor, id string, req *models.UpdateStatusRequest) (*models.Assignment, error)
}

type assignmentService struct {
	assignmentRepo repository.AssignmentRepository
	publisher      integration.EventPublisher
	logger         zerolog.Logger
	now            func() time.Time
}

func NewAssignmentService(
	assignmentRepo repository.AssignmentRepository,
	publisher integration.EventPublisher,
	logger zerolog.Logger,
) AssignmentService {
	return &assignmentService{
		assignmentRepo: assignmentRepo,
		publisher:      publisher,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *assignmentService) CreateAssignment(ctx context.Context, actor models.Actor, req *models.CreateAssignmentRequest) (*models.Assignment, error) {
	if !actor.IsDispatcher() {
		return nil, &models.EditNotPermittedError{Action: "creating an assignment"}
	}
	input, err := req.ToInput()
	if err != nil {
		return nil, err
	}

	assignment, err := models.NewAssignment(utils.GenerateUUID(), input, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.assignmentRepo.Create(ctx, &assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	s.logger.Info().
		Str("assignment_id", assignment.ID).
		Str("assigned_to", assignment.AssignedTo).
		Int("containers", len(assignment.Containers)).
		Strs("activities", assignment.Activities.Strings()).
		Msg("Assignment created")

	return &assignment, nil
}

func (s *assignmentService) GetAssignment(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrAssignmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return assignment, nil
}

func (s *assignmentService) ListAssignments(ctx context.Context, filter models.AssignmentFilter, page, limit int) (*models.AssignmentsResponse, error) {
	page, limit, offset := utils.Paginate(page, limit)

	assignments, total, err := s.assignmentRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	if assignments == nil {
		assignments = []models.Assignment{}
	}

	return &models.AssignmentsResponse{
		Assignments: assignments,
		Total:       total,
		Page:        page,
		Limit:       limit,
	}, nil
}

// UpdateStatus moves an assignment along its lifecycle. Dispatchers may move any
// assignment, field workers only their own.
func (s *assignmentService) UpdateStatus(ctx context.Context, actor models.Actor, id string, req *models.UpdateStatusRequest) (*models.Assignment, error) {
	status, err := models.ParseAssignmentStatus(req.Status)
	if err != nil {
		return nil, err
	}

	assignment, err := s.GetAssignment(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.IsDispatcher() && (actor.ID == "" || actor.ID != assignment.AssignedTo) {
		return nil, &models.EditNotPermittedError{Action: "changing assignment status"}
	}

	updated, err := assignment.Transition(status, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.assignmentRepo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update assignment status: %w", err)
	}

	s.logger.Info().
		Str("assignment_id", id).
		Str("from", string(assignment.Status)).
		Str("to", string(updated.Status)).
		Str("actor_id", actor.ID).
		Msg("Assignment status changed")

	publish(ctx, s.publisher, s.logger, models.RoutingAssignmentStatus, models.AssignmentStatusChangedEvent{
		AssignmentID: id,
		From:         string(assignment.Status),
		To:           string(updated.Status),
		Timestamp:    updated.UpdatedAt.Unix(),
	})

	return &updated, nil
}
