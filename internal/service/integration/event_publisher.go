package integration

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quantum-grit/your-sofia/signal-service/internal/repository"
	"github.com/rs/zerolog"
)

// EventPublisher announces domain changes on the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event interface{}) error
}

type rabbitMQPublisher struct {
	rabbit   repository.RabbitMQRepository
	exchange string
	logger   zerolog.Logger
}

func NewRabbitMQPublisher(rabbit repository.RabbitMQRepository, exchange string, logger zerolog.Logger) (EventPublisher, error) {
	if err := rabbit.SetupExchange(exchange); err != nil {
		return nil, err
	}
	return &rabbitMQPublisher{
		rabbit:   rabbit,
		exchange: exchange,
		logger:   logger,
	}, nil
}

func (p *rabbitMQPublisher) Publish(ctx context.Context, routingKey string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.rabbit.Publish(ctx, p.exchange, routingKey, body); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug().
		Str("exchange", p.exchange).
		Str("routing_key", routingKey).
		Msg("Event published")

	return nil
}

type logPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher stands in for RabbitMQ when the broker is unavailable: events
// are only logged.
func NewLogPublisher(logger zerolog.Logger) EventPublisher {
	return &logPublisher{logger: logger}
}

func (p *logPublisher) Publish(_ context.Context, routingKey string, event interface{}) error {
	p.logger.Debug().
		Str("routing_key", routingKey).
		Interface("event", event).
		Msg("Event not published, broker disabled")
	return nil
}
