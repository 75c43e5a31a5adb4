package repository

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

type RabbitMQRepository interface {
	Publish(ctx context.Context, exchange, routingKey string, message []byte) error
	SetupExchange(exchange string) error
	SetupQueue(exchange, queue string, routingKeys ...string) error
	Channel() *amqp.Channel
	OpenChannel() (*amqp.Channel, error)
	Close() error
}

type rabbitMQRepository struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  zerolog.Logger
}

func NewRabbitMQRepository(url string, logger zerolog.Logger) (RabbitMQRepository, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	logger.Info().Msg("Connected to RabbitMQ")

	return &rabbitMQRepository{
		conn:    conn,
		channel: channel,
		logger:  logger,
	}, nil
}

func (r *rabbitMQRepository) Publish(ctx context.Context, exchange, routingKey string, message []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         message,
	}
	if err := r.channel.PublishWithContext(ctx, exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return nil
}

// SetupExchange declares the durable topic exchange events are published to.
func (r *rabbitMQRepository) SetupExchange(exchange string) error {
	return r.declareExchange(exchange, amqp.ExchangeTopic)
}

func (r *rabbitMQRepository) declareExchange(name, kind string) error {
	if err := r.channel.ExchangeDeclare(name, kind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", name, err)
	}
	return nil
}

// deadLetterNames derives the fanout exchange and parking queue that receive
// messages the consumer rejects without requeue.
func deadLetterNames(queue string) (exchange, parking string) {
	return queue + ".dlx", queue + ".dead"
}

// SetupQueue binds a durable queue to the topic exchange for every routing
// key. Rejected messages are parked in "<queue>.dead".
func (r *rabbitMQRepository) SetupQueue(exchange, queue string, routingKeys ...string) error {
	if err := r.SetupExchange(exchange); err != nil {
		return err
	}

	dlx, parking := deadLetterNames(queue)
	if err := r.declareExchange(dlx, amqp.ExchangeFanout); err != nil {
		return err
	}
	if _, err := r.channel.QueueDeclare(parking, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", parking, err)
	}
	if err := r.channel.QueueBind(parking, "", dlx, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", parking, err)
	}

	q, err := r.channel.QueueDeclare(queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": dlx,
	})
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	for _, routingKey := range routingKeys {
		if err := r.channel.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s to %s: %w", q.Name, routingKey, err)
		}
	}

	r.logger.Info().
		Str("exchange", exchange).
		Str("queue", q.Name).
		Str("dead_letter_queue", parking).
		Strs("routing_keys", routingKeys).
		Msg("RabbitMQ queue setup complete")

	return nil
}

func (r *rabbitMQRepository) Channel() *amqp.Channel {
	return r.channel
}

// OpenChannel opens a channel on the shared connection. The caller owns it;
// consumers use one so deliveries never share the publishing channel.
func (r *rabbitMQRepository) OpenChannel() (*amqp.Channel, error) {
	channel, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return channel, nil
}

func (r *rabbitMQRepository) Close() error {
	var firstErr error
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			r.logger.Error().Err(err).Msg("Failed to close RabbitMQ channel")
			firstErr = err
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			r.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
