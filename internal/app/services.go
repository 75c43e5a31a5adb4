package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quantum-grit/your-sofia/signal-service/internal/config"
	"github.com/quantum-grit/your-sofia/signal-service/internal/models"
	"github.com/quantum-grit/your-sofia/signal-service/internal/repository"
	"github.com/quantum-grit/your-sofia/signal-service/internal/service"
	"github.com/quantum-grit/your-sofia/signal-service/internal/service/integration"
	"github.com/quantum-grit/your-sofia/signal-service/internal/worker"
	"github.com/quantum-grit/your-sofia/signal-service/internal/worker/queue"
	"github.com/rs/zerolog"
)

// Services holds the stores and domain services shared by the HTTP server,
// the progress worker and the CLI.
type Services struct {
	Signals     service.SignalService
	Assignments service.AssignmentService
	Containers  service.ContainerService
	Progress    service.ProgressService
	Postgres    *repository.PostgresRepository

	cfg    *config.Config
	logger zerolog.Logger
	cache  repository.ContainerCache
	rabbit repository.RabbitMQRepository
}

// NewServices connects the optional collaborators. Redis and RabbitMQ are
// degraded to no-op stand-ins when disabled or unreachable; MinIO is required.
func NewServices(ctx context.Context, cfg *config.Config, log zerolog.Logger, db *sql.DB) (*Services, error) {
	s := &Services{cfg: cfg, logger: log}

	photoStore, err := repository.NewMinIORepository(cfg.MinIO, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init photo storage: %w", err)
	}

	s.cache = repository.NewNoopContainerCache()
	if cfg.Redis.Enabled {
		cache, err := repository.NewRedisContainerCache(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, container cache disabled")
		} else {
			s.cache = cache
		}
	}

	publisher := integration.NewLogPublisher(log)
	if cfg.RabbitMQ.Enabled {
		rabbit, err := repository.NewRabbitMQRepository(cfg.RabbitMQ.URL, log)
		if err != nil {
			log.Warn().Err(err).Msg("RabbitMQ unavailable, events will only be logged")
		} else {
			s.rabbit = rabbit
			publisher, err = integration.NewRabbitMQPublisher(rabbit, cfg.RabbitMQ.Exchange, log)
			if err != nil {
				s.Close()
				return nil, err
			}
		}
	}

	signalRepo := repository.NewSignalRepository(db, log)
	assignmentRepo := repository.NewAssignmentRepository(db, log)
	containerRepo := repository.NewContainerRepository(db, log)

	s.Postgres = repository.NewPostgresRepository(db, log)
	s.Signals = service.NewSignalService(signalRepo, photoStore, publisher, log)
	s.Assignments = service.NewAssignmentService(assignmentRepo, publisher, log)
	s.Containers = service.NewContainerService(containerRepo, s.cache, publisher, log)
	s.Progress = service.NewProgressService(assignmentRepo, s.Containers, publisher, log)

	return s, nil
}

// HasBroker reports whether events go to RabbitMQ rather than the log.
func (s *Services) HasBroker() bool {
	return s.rabbit != nil
}

// NewProgressWorker binds the container state queue and returns a worker that
// recomputes assignment progress from it.
func (s *Services) NewProgressWorker() (worker.ProgressWorker, error) {
	if s.rabbit == nil {
		return nil, fmt.Errorf("progress worker requires RabbitMQ")
	}

	if err := s.rabbit.SetupQueue(
		s.cfg.RabbitMQ.Exchange,
		s.cfg.RabbitMQ.QueueName,
		models.RoutingContainerStatesUpdated,
	); err != nil {
		return nil, err
	}

	channel, err := s.rabbit.OpenChannel()
	if err != nil {
		return nil, err
	}

	consumer := queue.NewRabbitMQConsumer(
		channel,
		s.cfg.RabbitMQ.QueueName,
		s.cfg.RabbitMQ.ConsumerTag,
		s.cfg.Worker.Prefetch,
		s.logger,
	)

	return worker.NewProgressWorker(
		worker.NewWorkerPool(s.cfg.Worker.MaxWorkers, s.logger),
		consumer,
		queue.NewMessageHandler(s.Progress, s.logger),
		s.logger,
	), nil
}

func (s *Services) Close() {
	if s.rabbit != nil {
		if err := s.rabbit.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Failed to close Redis connection")
		}
	}
}
