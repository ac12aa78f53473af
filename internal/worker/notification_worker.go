package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/service/integration"
	"github.com/prk-tuition/homework-service/internal/worker/queue"
	"github.com/rs/zerolog"
)

type NotificationWorker interface {
	Start(ctx context.Context) error
	Stop()
	Stats() WorkerStats
}

type WorkerStats struct {
	Sent        int       `json:"sent"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	QueueLength int       `json:"queue_length"`
	Pool        PoolStats `json:"pool"`
}

type notificationWorker struct {
	pool      *WorkerPool
	consumer  queue.Consumer
	mailer    integration.Mailer
	logger    zerolog.Logger
	stats     WorkerStats
	statsMu   sync.Mutex
	startTime time.Time
	done      chan struct{}
}

func NewNotificationWorker(pool *WorkerPool, consumer queue.Consumer, mailer integration.Mailer, logger zerolog.Logger) NotificationWorker {
	return &notificationWorker{
		pool:      pool,
		consumer:  consumer,
		mailer:    mailer,
		logger:    logger,
		startTime: time.Now(),
		done:      make(chan struct{}),
	}
}

func (w *notificationWorker) Start(ctx context.Context) error {
	w.logger.Info().Msg("Starting notification worker...")

	w.pool.Start()

	deliveries, err := w.consumer.Consume(ctx)
	if err != nil {
		w.pool.Stop()
		return fmt.Errorf("failed to start consuming messages: %w", err)
	}

	go w.dispatch(ctx, deliveries)

	w.logger.Info().Msg("Notification worker started")
	return nil
}

// Stop waits for the dispatch loop to exit, which happens when the context
// given to Start is cancelled or the delivery channel closes, then drains the
// pool.
func (w *notificationWorker) Stop() {
	<-w.done
	w.pool.Stop()

	if err := w.consumer.Close(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to close queue consumer")
	}

	stats := w.Stats()
	w.logger.Info().
		Int("sent", stats.Sent).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Dur("uptime", time.Since(w.startTime)).
		Msg("Notification worker stopped")
}

func (w *notificationWorker) dispatch(ctx context.Context, deliveries <-chan queue.Delivery) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Stopping message dispatch")
			return
		case d, ok := <-deliveries:
			if !ok {
				w.logger.Warn().Msg("Delivery channel closed")
				return
			}

			if err := w.pool.Submit(func() { w.settle(ctx, d) }); err != nil {
				w.logger.Error().Err(err).Str("message_id", d.MessageID).Msg("Failed to schedule message")
				if nackErr := d.Nack(false, true); nackErr != nil {
					w.logger.Error().Err(nackErr).Msg("Failed to nack message")
				}
			}
		}
	}
}

func (w *notificationWorker) settle(ctx context.Context, d queue.Delivery) {
	sent, err := w.handle(ctx, d)
	if err != nil {
		w.logger.Error().Err(err).Str("message_id", d.MessageID).Msg("Failed to process message")
		w.count(func(s *WorkerStats) { s.Failed++ })

		if isPermanentError(err) {
			if ackErr := d.Ack(false); ackErr != nil {
				w.logger.Error().Err(ackErr).Msg("Failed to ack message")
			}
			return
		}

		if nackErr := d.Nack(false, true); nackErr != nil {
			w.logger.Error().Err(nackErr).Msg("Failed to nack message")
		}
		return
	}

	if ackErr := d.Ack(false); ackErr != nil {
		w.logger.Error().Err(ackErr).Msg("Failed to ack message")
	}

	if sent {
		w.count(func(s *WorkerStats) { s.Sent++ })
	} else {
		w.count(func(s *WorkerStats) { s.Skipped++ })
	}
}

func (w *notificationWorker) handle(ctx context.Context, d queue.Delivery) (bool, error) {
	var event models.Event
	if err := json.Unmarshal(d.Body, &event); err != nil {
		return false, permanent(fmt.Errorf("failed to unmarshal event: %w", err))
	}

	msg, ok := composeEmail(&event)
	if !ok {
		w.logger.Debug().Str("type", string(event.Type)).Msg("No notification for event")
		return false, nil
	}
	if strings.TrimSpace(msg.ToEmail) == "" {
		return false, permanent(errors.New("event has no recipient"))
	}

	if err := w.mailer.Send(ctx, msg); err != nil {
		return false, fmt.Errorf("failed to send %s notification: %w", event.Type, err)
	}

	w.logger.Info().
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Str("email", msg.ToEmail).
		Msg("Notification sent")

	return true, nil
}

func (w *notificationWorker) count(f func(*WorkerStats)) {
	w.statsMu.Lock()
	f(&w.stats)
	w.statsMu.Unlock()
}

func (w *notificationWorker) Stats() WorkerStats {
	w.statsMu.Lock()
	stats := w.stats
	w.statsMu.Unlock()

	if n, err := w.consumer.QueueLength(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to get queue length")
	} else {
		stats.QueueLength = n
	}
	stats.Pool = w.pool.Stats()

	return stats
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return permanentError{err: err}
}

func isPermanentError(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
