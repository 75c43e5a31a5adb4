package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantum-grit/your-sofia/signal-service/internal/worker/queue"
	"github.com/rs/zerolog"
)

type ProgressWorker interface {
	Start(ctx context.Context) error
	Stop() error
	GetStats() WorkerStats
}

type WorkerStats struct {
	BusyWorkers    int `json:"busy_workers"`
	TotalProcessed int `json:"total_processed"`
	FailedJobs     int `json:"failed_jobs"`
	DroppedJobs    int `json:"dropped_jobs"`
	QueueLength    int `json:"queue_length"`
}

type progressWorker struct {
	workerPool *WorkerPool
	consumer   queue.Consumer
	handler    queue.MessageHandler
	logger     zerolog.Logger
	stats      WorkerStats
	statsMutex sync.RWMutex
	done       chan struct{}
	startTime  time.Time
}

// NewProgressWorker consumes container state updates and recomputes the
// progress of the affected assignments on the pool.
func NewProgressWorker(
	workerPool *WorkerPool,
	consumer queue.Consumer,
	handler queue.MessageHandler,
	logger zerolog.Logger,
) ProgressWorker {
	return &progressWorker{
		workerPool: workerPool,
		consumer:   consumer,
		handler:    handler,
		logger:     logger,
		done:       make(chan struct{}),
		startTime:  time.Now(),
	}
}

func (w *progressWorker) Start(ctx context.Context) error {
	w.logger.Info().Msg("Starting progress worker")

	msgs, err := w.consumer.Consume(ctx)
	if err != nil {
		// No dispatch loop will run, so Stop must not wait for one.
		close(w.done)
		return fmt.Errorf("failed to start consuming messages: %w", err)
	}

	w.workerPool.Start()
	go w.processMessages(ctx, msgs)

	return nil
}

// Stop waits for the dispatch loop to end, which happens once the consume
// context is cancelled, and then drains the pool.
func (w *progressWorker) Stop() error {
	w.logger.Info().Msg("Stopping progress worker")

	if err := w.consumer.Close(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to close queue consumer")
	}
	<-w.done
	w.workerPool.Stop()

	stats := w.GetStats()
	w.logger.Info().
		Int("total_processed", stats.TotalProcessed).
		Int("failed_jobs", stats.FailedJobs).
		Dur("uptime", time.Since(w.startTime)).
		Msg("Progress worker stopped")

	return nil
}

func (w *progressWorker) processMessages(ctx context.Context, msgs <-chan queue.Message) {
	defer close(w.done)

	for msg := range msgs {
		msg := msg
		accepted := w.workerPool.Submit(func() {
			w.processMessage(ctx, msg)
		})
		if !accepted {
			w.count(func(s *WorkerStats) { s.DroppedJobs++ })
			if err := msg.Nack(false, true); err != nil {
				w.logger.Error().Err(err).Msg("Failed to nack message")
			}
		}
	}

	w.logger.Info().Msg("Message channel closed")
}

func (w *progressWorker) processMessage(ctx context.Context, msg queue.Message) {
	err := w.handler.Handle(ctx, msg)
	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			w.logger.Error().Err(ackErr).Msg("Failed to ack message")
		}
		w.count(func(s *WorkerStats) { s.TotalProcessed++ })
		return
	}

	w.logger.Error().Err(err).Str("routing_key", msg.RoutingKey).Msg("Failed to process message")
	w.count(func(s *WorkerStats) { s.FailedJobs++ })

	// Permanent failures go to the dead letter queue; the rest are retried.
	requeue := !queue.IsPermanent(err)
	if nackErr := msg.Nack(false, requeue); nackErr != nil {
		w.logger.Error().Err(nackErr).Msg("Failed to nack message")
	}
}

func (w *progressWorker) count(update func(*WorkerStats)) {
	w.statsMutex.Lock()
	update(&w.stats)
	w.statsMutex.Unlock()
}

func (w *progressWorker) GetStats() WorkerStats {
	w.statsMutex.RLock()
	stats := w.stats
	w.statsMutex.RUnlock()

	queueLength, err := w.consumer.QueueLength()
	if err != nil {
		w.logger.Debug().Err(err).Msg("Failed to get queue length")
	} else {
		stats.QueueLength = queueLength
	}
	stats.BusyWorkers = w.workerPool.BusyWorkers()

	return stats
}
