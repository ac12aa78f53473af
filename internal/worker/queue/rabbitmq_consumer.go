package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/prk-tuition/homework-service/internal/service/integration"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Delivery is a broker message with its settlement callbacks.
type Delivery struct {
	Body       []byte
	RoutingKey string
	MessageID  string
	Timestamp  time.Time
	Ack        func(multiple bool) error
	Nack       func(multiple bool, requeue bool) error
}

type Consumer interface {
	Consume(ctx context.Context) (<-chan Delivery, error)
	QueueLength() (int, error)
	Close() error
}

type rabbitMQConsumer struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queue       string
	consumerTag string
	prefetch    int
	logger      zerolog.Logger
}

// Dial connects to the broker and declares the notification topology so the
// worker can start before the API has published anything.
func Dial(url, exchange, queueName, consumerTag string, prefetch int, logger zerolog.Logger) (Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := integration.DeclareTopology(channel, exchange, queueName); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	if prefetch < 1 {
		prefetch = 1
	}

	return &rabbitMQConsumer{
		conn:        conn,
		channel:     channel,
		queue:       queueName,
		consumerTag: consumerTag,
		prefetch:    prefetch,
		logger:      logger,
	}, nil
}

func (c *rabbitMQConsumer) Consume(ctx context.Context) (<-chan Delivery, error) {
	if err := c.channel.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queue,       // queue
		c.consumerTag, // consumer
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	output := make(chan Delivery)

	go func() {
		defer close(output)

		for {
			select {
			case <-ctx.Done():
				c.logger.Info().Msg("Stopping RabbitMQ consumer")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn().Msg("RabbitMQ delivery channel closed")
					return
				}

				d := Delivery{
					Body:       msg.Body,
					RoutingKey: msg.RoutingKey,
					MessageID:  msg.MessageId,
					Timestamp:  msg.Timestamp,
					Ack:        msg.Ack,
					Nack:       msg.Nack,
				}

				select {
				case output <- d:
				case <-ctx.Done():
					_ = msg.Nack(false, true)
					return
				}
			}
		}
	}()

	c.logger.Info().
		Str("queue", c.queue).
		Str("consumer_tag", c.consumerTag).
		Msg("RabbitMQ consumer started")

	return output, nil
}

func (c *rabbitMQConsumer) QueueLength() (int, error) {
	q, err := c.channel.QueueDeclarePassive(
		c.queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return q.Messages, nil
}

func (c *rabbitMQConsumer) Close() error {
	if err := c.channel.Cancel(c.consumerTag, false); err != nil {
		c.logger.Error().Err(err).Msg("Failed to cancel RabbitMQ consumer")
	}
	if err := c.channel.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Failed to close RabbitMQ channel")
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("failed to close RabbitMQ connection: %w", err)
	}

	c.logger.Info().Msg("RabbitMQ consumer closed")
	return nil
}
