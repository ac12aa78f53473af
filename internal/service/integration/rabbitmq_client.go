package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// NotificationEvents are routed to the notification queue. The event type
// is the routing key.
var NotificationEvents = []models.EventType{
	models.EventRegistrationCreated,
	models.EventRegistrationApproved,
	models.EventAnswerSubmitted,
	models.EventAnswerGraded,
	models.EventInstructionSent,
	models.EventAnnouncementPublished,
}

type EventPublisher interface {
	Publish(ctx context.Context, event *models.Event) error
	Close() error
}

type rabbitMQClient struct {
	conn      *amqp091.Connection
	channel   *amqp091.Channel
	exchange  string
	queueName string
	logger    zerolog.Logger
}

func NewRabbitMQClient(url, exchange, queueName string, logger zerolog.Logger) (EventPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareTopology(channel, exchange, queueName); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	logger.Info().
		Str("exchange", exchange).
		Str("queue", queueName).
		Msg("Connected to RabbitMQ")

	return &rabbitMQClient{
		conn:      conn,
		channel:   channel,
		exchange:  exchange,
		queueName: queueName,
		logger:    logger,
	}, nil
}

// DeclareTopology declares the direct exchange and the durable notification
// queue, bound once per event type.
func DeclareTopology(channel *amqp091.Channel, exchange, queueName string) error {
	err := channel.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	queue, err := channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, eventType := range NotificationEvents {
		if err := channel.QueueBind(queue.Name, string(eventType), exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue to %s: %w", eventType, err)
		}
	}

	return nil
}

func (c *rabbitMQClient) Publish(ctx context.Context, event *models.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		publishCtx,
		c.exchange,         // exchange
		string(event.Type), // routing key
		false,              // mandatory
		false,              // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.ID,
			Timestamp:    time.Unix(event.Timestamp, 0),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Info().
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Str("email", event.Email).
		Msg("Event published")

	return nil
}

func (c *rabbitMQClient) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Failed to close RabbitMQ channel")
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	return nil
}
