package service

import (
	"context"
	"fmt"
	"time"

	"github.com/quantum-grit/your-sofia/signal-service/internal/models"
	"github.com/quantum-grit/your-sofia/signal-service/internal/repository"
	"github.com/quantum-grit/your-sofia/signal-service/internal/service/integration"
	"github.com/quantum-grit/your-sofia/signal-service/internal/service/progress"
	"github.com/rs/zerolog"
)

type ProgressService interface {
	GetProgress(ctx context.Context, assignmentID string) (*models.AssignmentProgress, error)
	ForAssignment(ctx context.Context, assignment models.Assignment) models.AssignmentProgress
	RecomputeForContainer(ctx context.Context, containerID string) ([]models.AssignmentProgress, error)
}

type progressService struct {
	assignmentRepo repository.AssignmentRepository
	containers     ContainerLookup
	publisher      integration.EventPublisher
	logger         zerolog.Logger
	now            func() time.Time
}

func NewProgressService(
	assignmentRepo repository.AssignmentRepository,
	containers ContainerLookup,
	publisher integration.EventPublisher,
	logger zerolog.Logger,
) ProgressService {
	return &progressService{
		assignmentRepo: assignmentRepo,
		containers:     containers,
		publisher:      publisher,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *progressService) GetProgress(ctx context.Context, assignmentID string) (*models.AssignmentProgress, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	result := s.ForAssignment(ctx, *assignment)
	return &result, nil
}

// ForAssignment snapshots the current states of the assignment's containers and
// aggregates them.
func (s *progressService) ForAssignment(ctx context.Context, assignment models.Assignment) models.AssignmentProgress {
	containers := s.containers.Lookup(ctx, assignment.Containers)

	snapshot := make(progress.Snapshot, len(containers))
	for id, container := range containers {
		snapshot[id] = container.States
	}

	result := progress.Aggregate(assignment, snapshot)
	for i := range result.ContainerStatuses {
		if container, ok := containers[result.ContainerStatuses[i].ContainerID]; ok {
			result.ContainerStatuses[i].PublicNumber = container.PublicNumber
		}
	}

	return result
}

// RecomputeForContainer refreshes the progress of every open assignment that
// includes the container and announces each result.
func (s *progressService) RecomputeForContainer(ctx context.Context, containerID string) ([]models.AssignmentProgress, error) {
	s.containers.Invalidate(ctx, containerID)

	assignments, err := s.assignmentRepo.ListActiveByContainer(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments for container: %w", err)
	}

	results := make([]models.AssignmentProgress, 0, len(assignments))
	for _, assignment := range assignments {
		result := s.ForAssignment(ctx, assignment)
		results = append(results, result)

		s.logger.Info().
			Str("assignment_id", assignment.ID).
			Str("container_id", containerID).
			Int("percentage_complete", result.PercentageComplete).
			Msg("Assignment progress recomputed")

		publish(ctx, s.publisher, s.logger, models.RoutingProgressUpdated, models.ProgressUpdatedEvent{
			AssignmentID:        result.AssignmentID,
			TotalContainers:     result.TotalContainers,
			CompletedContainers: result.CompletedContainers,
			PercentageComplete:  result.PercentageComplete,
			Timestamp:           s.now().Unix(),
		})
	}

	return results, nil
}
