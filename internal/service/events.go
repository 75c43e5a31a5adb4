package service

import (
	"context"

	"github.com/quantum-grit/your-sofia/signal-service/internal/service/integration"
	"github.com/rs/zerolog"
)

// publish announces a stored change. The change is already committed, so a
// failed publish is logged and never undoes it.
func publish(ctx context.Context, publisher integration.EventPublisher, logger zerolog.Logger, routingKey string, event interface{}) {
	if err := publisher.Publish(ctx, routingKey, event); err != nil {
		logger.Warn().Err(err).Str("routing_key", routingKey).Msg("Failed to publish event")
	}
}
