package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/quantum-grit/your-sofia/signal-service/internal/models"
	"github.com/quantum-grit/your-sofia/signal-service/internal/service"
	"github.com/rs/zerolog"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg Message) error
}

type messageHandler struct {
	progressService service.ProgressService
	logger          zerolog.Logger
}

func NewMessageHandler(progressService service.ProgressService, logger zerolog.Logger) MessageHandler {
	return &messageHandler{
		progressService: progressService,
		logger:          logger,
	}
}

func (h *messageHandler) Handle(ctx context.Context, msg Message) error {
	switch msg.RoutingKey {
	case models.RoutingContainerStatesUpdated:
		var event models.ContainerStatesUpdatedEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			return Permanent(fmt.Errorf("failed to unmarshal container states event: %w", err))
		}
		return h.handleContainerStatesUpdated(ctx, event)
	default:
		h.logger.Warn().Str("routing_key", msg.RoutingKey).Msg("Unknown message type")
		return nil
	}
}

func (h *messageHandler) handleContainerStatesUpdated(ctx context.Context, event models.ContainerStatesUpdatedEvent) error {
	if strings.TrimSpace(event.ContainerID) == "" {
		return Permanent(errors.New("empty container_id"))
	}
	if _, err := models.ParseStateSet(event.States); err != nil {
		return Permanent(err)
	}

	h.logger.Info().
		Str("container_id", event.ContainerID).
		Strs("states", event.States).
		Msg("Handling container states update")

	results, err := h.progressService.RecomputeForContainer(ctx, event.ContainerID)
	if err != nil {
		return err
	}

	h.logger.Debug().
		Str("container_id", event.ContainerID).
		Int("assignments", len(results)).
		Msg("Container states update handled")

	return nil
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks a message that can never succeed; it is rejected without requeue.
func Permanent(err error) error {
	return permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
