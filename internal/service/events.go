package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/service/integration"
	"github.com/rs/zerolog"
)

// publishEvent sends an event if a publisher is configured. Delivery failures
// are logged and never fail the request that caused them.
func publishEvent(ctx context.Context, publisher integration.EventPublisher, clock Clock, logger zerolog.Logger, event *models.Event) {
	if publisher == nil {
		return
	}

	event.ID = uuid.New().String()
	event.Timestamp = clock.Now().Unix()

	if err := publisher.Publish(ctx, event); err != nil {
		logger.Error().
			Err(err).
			Str("type", string(event.Type)).
			Str("email", event.Email).
			Msg("Failed to publish event")
	}
}
