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

// ContainerLookup resolves container records for progress computation. Ids it
// cannot resolve are absent from the result.
type ContainerLookup interface {
	Lookup(ctx context.Context, ids []string) map[string]models.WasteContainer
	Invalidate(ctx context.Context, ids ...string)
}

type ContainerService interface {
	ContainerLookup
	GetContainer(ctx context.Context, id string) (*models.WasteContainer, error)
	ListContainers(ctx context.Context, page, limit int) (*models.ContainersResponse, error)
	UpdateStates(ctx context.Context, actor models.Actor, id string, req *models.UpdateContainerStatesRequest) (*models.WasteContainer, error)
}

type containerService struct {
	containerRepo repository.ContainerRepository
	cache         repository.ContainerCache
	publisher     integration.EventPublisher
	logger        zerolog.Logger
	now           func() time.Time
}

func NewContainerService(
	containerRepo repository.ContainerRepository,
	cache repository.ContainerCache,
	publisher integration.EventPublisher,
	logger zerolog.Logger,
) ContainerService {
	return &containerService{
		containerRepo: containerRepo,
		cache:         cache,
		publisher:     publisher,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *containerService) GetContainer(ctx context.Context, id string) (*models.WasteContainer, error) {
	cached, err := s.cache.GetMany(ctx, []string{id})
	if err != nil {
		s.logger.Warn().Err(err).Str("container_id", id).Msg("Container cache unavailable")
	} else if container, ok := cached[id]; ok {
		return &container, nil
	}

	container, err := s.containerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrContainerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get container: %w", err)
	}

	s.remember(ctx, *container)
	return container, nil
}

func (s *containerService) ListContainers(ctx context.Context, page, limit int) (*models.ContainersResponse, error) {
	page, limit, offset := utils.Paginate(page, limit)

	containers, total, err := s.containerRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	return &models.ContainersResponse{
		Containers: containers,
		Total:      total,
		Page:       page,
		Limit:      limit,
	}, nil
}

func (s *containerService) UpdateStates(ctx context.Context, actor models.Actor, id string, req *models.UpdateContainerStatesRequest) (*models.WasteContainer, error) {
	if !actor.IsOperator() {
		return nil, &models.EditNotPermittedError{Action: "updating container states"}
	}
	states, err := models.ParseStateSet(req.States)
	if err != nil {
		return nil, err
	}

	container, err := s.containerRepo.UpsertStates(ctx, id, states, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to update container states: %w", err)
	}
	s.remember(ctx, *container)

	s.logger.Info().
		Str("container_id", id).
		Strs("states", states.Strings()).
		Str("actor_id", actor.ID).
		Msg("Container states updated")

	publish(ctx, s.publisher, s.logger, models.RoutingContainerStatesUpdated, models.ContainerStatesUpdatedEvent{
		ContainerID: id,
		States:      states.Strings(),
		Timestamp:   container.UpdatedAt.Unix(),
	})

	return container, nil
}

// Lookup reads through the cache. A container whose record cannot be read is
// left out, which progress treats as no states reported.
func (s *containerService) Lookup(ctx context.Context, ids []string) map[string]models.WasteContainer {
	found, err := s.cache.GetMany(ctx, ids)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Container cache unavailable, reading from database")
		found = make(map[string]models.WasteContainer, len(ids))
	}

	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return found
	}

	stored, err := s.containerRepo.GetByIDs(ctx, missing)
	if err != nil {
		s.logger.Error().Err(err).
			Strs("container_ids", missing).
			Msg("Failed to load container states, treating them as not reported")
		return found
	}
	for id, container := range stored {
		found[id] = container
		s.remember(ctx, container)
	}

	return found
}

func (s *containerService) Invalidate(ctx context.Context, ids ...string) {
	if err := s.cache.Invalidate(ctx, ids...); err != nil {
		s.logger.Warn().Err(err).Strs("container_ids", ids).Msg("Failed to invalidate cached containers")
	}
}

func (s *containerService) remember(ctx context.Context, container models.WasteContainer) {
	if err := s.cache.Set(ctx, container); err != nil {
		s.logger.Warn().Err(err).Str("container_id", container.ID).Msg("Failed to cache container")
	}
}
