package app

import (
	"context"

	"github.com/prk-tuition/homework-service/internal/config"
	"github.com/prk-tuition/homework-service/internal/service/integration"
	"github.com/prk-tuition/homework-service/internal/worker"
	"github.com/prk-tuition/homework-service/internal/worker/queue"
	"github.com/rs/zerolog"
)

// RunWorker consumes notification events until ctx is cancelled.
func RunWorker(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	consumer, err := queue.Dial(
		cfg.RabbitMQ.URL,
		cfg.RabbitMQ.Exchange,
		cfg.RabbitMQ.QueueName,
		cfg.RabbitMQ.ConsumerTag,
		cfg.Worker.MaxWorkers,
		log,
	)
	if err != nil {
		return err
	}

	var mailer integration.Mailer
	if cfg.SendGrid.APIKey != "" {
		mailer = integration.NewSendGridMailer(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName, cfg.School.Name, log)
	} else {
		log.Warn().Msg("SendGrid API key not set, notifications are only logged")
		mailer = integration.NewLogMailer(log)
	}

	pool := worker.NewWorkerPool(cfg.Worker.MaxWorkers, log)
	w := worker.NewNotificationWorker(pool, consumer, mailer, log)

	if err := w.Start(ctx); err != nil {
		_ = consumer.Close()
		return err
	}

	<-ctx.Done()
	w.Stop()
	return nil
}
