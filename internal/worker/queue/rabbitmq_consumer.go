package queue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Message is a broker delivery detached from the AMQP types so handlers and
// the worker can be tested without a broker.
type Message struct {
	RoutingKey string
	Body       []byte
	Timestamp  time.Time
	Ack        func(multiple bool) error
	Nack       func(multiple bool, requeue bool) error
}

type Consumer interface {
	Consume(ctx context.Context) (<-chan Message, error)
	QueueLength() (int, error)
	Close() error
}

type rabbitMQConsumer struct {
	channel     *amqp.Channel
	queue       string
	consumerTag string
	prefetch    int
	logger      zerolog.Logger
}

// NewRabbitMQConsumer takes ownership of channel and closes it on Close.
func NewRabbitMQConsumer(channel *amqp.Channel, queue, consumerTag string, prefetch int, logger zerolog.Logger) Consumer {
	if prefetch < 1 {
		prefetch = 1
	}
	return &rabbitMQConsumer{
		channel:     channel,
		queue:       queue,
		consumerTag: consumerTag,
		prefetch:    prefetch,
		logger:      logger.With().Str("queue", queue).Logger(),
	}
}

func fromDelivery(d amqp.Delivery) Message {
	return Message{
		RoutingKey: d.RoutingKey,
		Body:       d.Body,
		Timestamp:  d.Timestamp,
		Ack:        d.Ack,
		Nack:       d.Nack,
	}
}

// Consume starts manual-ack delivery. The returned channel closes when ctx is
// done or the broker cancels the consumer; a message caught in flight by
// cancellation is requeued.
func (c *rabbitMQConsumer) Consume(ctx context.Context) (<-chan Message, error) {
	if err := c.channel.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	deliveries, err := c.channel.Consume(c.queue, c.consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume %s: %w", c.queue, err)
	}

	out := make(chan Message)
	go c.forward(ctx, deliveries, out)

	c.logger.Info().
		Str("consumer_tag", c.consumerTag).
		Int("prefetch", c.prefetch).
		Msg("RabbitMQ consumer started")

	return out, nil
}

func (c *rabbitMQConsumer) forward(ctx context.Context, deliveries <-chan amqp.Delivery, out chan<- Message) {
	defer close(out)

	for {
		var delivery amqp.Delivery
		var ok bool

		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Stopping RabbitMQ consumer")
			return
		case delivery, ok = <-deliveries:
			if !ok {
				c.logger.Warn().Msg("RabbitMQ delivery channel closed")
				return
			}
		}

		select {
		case out <- fromDelivery(delivery):
		case <-ctx.Done():
			if err := delivery.Nack(false, true); err != nil {
				c.logger.Error().Err(err).Msg("Failed to requeue in-flight message")
			}
			return
		}
	}
}

func (c *rabbitMQConsumer) QueueLength() (int, error) {
	q, err := c.channel.QueueDeclarePassive(c.queue, true, false, false, false, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue %s: %w", c.queue, err)
	}
	return q.Messages, nil
}

func (c *rabbitMQConsumer) Close() error {
	if c.channel == nil {
		return nil
	}
	if c.channel.IsClosed() {
		return nil
	}
	cancelErr := c.channel.Cancel(c.consumerTag, false)
	closeErr := c.channel.Close()
	if cancelErr != nil {
		return fmt.Errorf("failed to cancel consumer %s: %w", c.consumerTag, cancelErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close consumer channel: %w", closeErr)
	}
	c.logger.Info().Msg("RabbitMQ consumer closed")
	return nil
}
