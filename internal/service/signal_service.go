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

type SignalService interface {
	CreateSignal(ctx context.Context, actor models.Actor, req *models.CreateSignalRequest) (*models.Signal, error)
	GetSignal(ctx context.Context, id string) (*models.Signal, error)
	ListSignals(ctx context.Context, filter models.SignalFilter, page, limit int) (*models.SignalsResponse, error)
	UpdateSignal(ctx context.Context, actor models.Actor, id string, req *models.UpdateSignalRequest) (*models.Signal, error)
	AddPhoto(ctx context.Context, actor models.Actor, id string, payload models.PhotoPayload) (*models.Signal, error)
	RemovePhoto(ctx context.Context, actor models.Actor, id, photoID string) (*models.Signal, error)
	UpdateStatus(ctx context.Context, actor models.Actor, id string, req *models.UpdateStatusRequest) (*models.Signal, error)
	SetAdminNotes(ctx context.Context, actor models.Actor, id string, req *models.AdminNotesRequest) (*models.Signal, error)
}

type signalService struct {
	signalRepo repository.SignalRepository
	photos     repository.PhotoStore
	publisher  integration.EventPublisher
	logger     zerolog.Logger
	now        func() time.Time
}

func NewSignalService(
	signalRepo repository.SignalRepository,
	photos repository.PhotoStore,
	publisher integration.EventPublisher,
	logger zerolog.Logger,
) SignalService {
	return &signalService{
		signalRepo: signalRepo,
		photos:     photos,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *signalService) CreateSignal(ctx context.Context, actor models.Actor, req *models.CreateSignalRequest) (*models.Signal, error) {
	if actor.ID == "" {
		return nil, &models.ValidationError{Field: "reporter_id", Reason: "is required"}
	}
	input, err := req.ToInput(actor.ID)
	if err != nil {
		return nil, err
	}

	signal, err := models.NewSignal(utils.GenerateUUID(), input, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.signalRepo.Create(ctx, &signal); err != nil {
		return nil, fmt.Errorf("failed to create signal: %w", err)
	}

	s.logger.Info().
		Str("signal_id", signal.ID).
		Str("category", string(signal.Category)).
		Str("reporter_id", signal.ReporterID).
		Msg("Signal created")

	publish(ctx, s.publisher, s.logger, models.RoutingSignalCreated, models.SignalCreatedEvent{
		SignalID:       signal.ID,
		Category:       string(signal.Category),
		ContainerState: signal.ContainerState.Strings(),
		ReporterID:     signal.ReporterID,
		Timestamp:      signal.CreatedAt.Unix(),
	})

	return &signal, nil
}

func (s *signalService) GetSignal(ctx context.Context, id string) (*models.Signal, error) {
	signal, err := s.signalRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrSignalNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get signal: %w", err)
	}
	return signal, nil
}

func (s *signalService) ListSignals(ctx context.Context, filter models.SignalFilter, page, limit int) (*models.SignalsResponse, error) {
	page, limit, offset := utils.Paginate(page, limit)

	signals, total, err := s.signalRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}
	if signals == nil {
		signals = []models.Signal{}
	}

	return &models.SignalsResponse{
		Signals: signals,
		Total:   total,
		Page:    page,
		Limit:   limit,
	}, nil
}

func (s *signalService) UpdateSignal(ctx context.Context, actor models.Actor, id string, req *models.UpdateSignalRequest) (*models.Signal, error) {
	edit, err := req.ToEdit()
	if err != nil {
		return nil, err
	}

	signal, err := s.GetSignal(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := signal.Edit(models.CanEdit(*signal, actor.ID), edit, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.signalRepo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update signal: %w", err)
	}

	s.logger.Info().Str("signal_id", id).Str("actor_id", actor.ID).Msg("Signal edited")
	return &updated, nil
}

// AddPhoto attaches the payload as a pending photo, uploads it and stores the
// signal with the photo in its persisted form.
func (s *signalService) AddPhoto(ctx context.Context, actor models.Actor, id string, payload models.PhotoPayload) (*models.Signal, error) {
	signal, err := s.GetSignal(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload.LocalKey == "" {
		payload.LocalKey = utils.GenerateUUID()
	}
	now := s.now()

	pending, err := signal.AddPhoto(models.CanEdit(*signal, actor.ID), models.PendingPhoto(payload.LocalKey, payload.FileName), now)
	if err != nil {
		return nil, err
	}

	photoID, url, err := s.photos.SavePhoto(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to upload photo: %w", err)
	}

	stored, err := pending.ResolvePhoto(payload.LocalKey, photoID, url, now)
	if err != nil {
		s.discardPhoto(ctx, photoID)
		return nil, err
	}

	if err := s.signalRepo.Update(ctx, &stored); err != nil {
		s.discardPhoto(ctx, photoID)
		return nil, fmt.Errorf("failed to update signal: %w", err)
	}

	s.logger.Info().
		Str("signal_id", id).
		Str("photo_id", photoID).
		Int("size", len(payload.Content)).
		Msg("Photo added to signal")

	return &stored, nil
}

func (s *signalService) RemovePhoto(ctx context.Context, actor models.Actor, id, photoID string) (*models.Signal, error) {
	signal, err := s.GetSignal(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := signal.RemovePhoto(models.CanEdit(*signal, actor.ID), photoID, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.signalRepo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update signal: %w", err)
	}
	s.discardPhoto(ctx, photoID)

	s.logger.Info().Str("signal_id", id).Str("photo_id", photoID).Msg("Photo removed from signal")
	return &updated, nil
}

func (s *signalService) discardPhoto(ctx context.Context, photoID string) {
	if err := s.photos.DeletePhoto(ctx, photoID); err != nil {
		s.logger.Warn().Err(err).Str("photo_id", photoID).Msg("Failed to delete photo from storage")
	}
}

func (s *signalService) UpdateStatus(ctx context.Context, actor models.Actor, id string, req *models.UpdateStatusRequest) (*models.Signal, error) {
	status, err := models.ParseSignalStatus(req.Status)
	if err != nil {
		return nil, err
	}

	signal, err := s.GetSignal(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := signal.TransitionStatus(actor.IsOperator(), status, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.signalRepo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update signal status: %w", err)
	}

	s.logger.Info().
		Str("signal_id", id).
		Str("from", string(signal.Status)).
		Str("to", string(updated.Status)).
		Str("actor_id", actor.ID).
		Msg("Signal status changed")

	publish(ctx, s.publisher, s.logger, models.RoutingSignalStatusChanged, models.SignalStatusChangedEvent{
		SignalID:  id,
		From:      string(signal.Status),
		To:        string(updated.Status),
		Timestamp: updated.UpdatedAt.Unix(),
	})

	return &updated, nil
}

func (s *signalService) SetAdminNotes(ctx context.Context, actor models.Actor, id string, req *models.AdminNotesRequest) (*models.Signal, error) {
	signal, err := s.GetSignal(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := signal.SetAdminNotes(actor.IsOperator(), req.AdminNotes, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.signalRepo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update admin notes: %w", err)
	}

	return &updated, nil
}
