package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/phillip/club-events-go/models"
)

const confirmedRoutingKey = "registration.confirmed"

// Confirmation is published once per newly stored successful registration.
type Confirmation struct {
	RegistrationID string                  `json:"registrationId"`
	EventID        string                  `json:"eventId"`
	EventName      string                  `json:"eventName"`
	Kind           models.RegistrationKind `json:"kind"`
	Email          string                  `json:"email"`
	Name           string                  `json:"name"`
	PaymentID      string                  `json:"paymentId"`
}

type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	log      *zerolog.Logger
	mu       sync.Mutex
}

func NewRabbit(url, exchange, queue string, log *zerolog.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	client := &Client{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		queue:    queue,
		log:      log,
	}

	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		client.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		client.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, confirmedRoutingKey, exchange, false, nil); err != nil {
		client.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	log.Info().Str("exchange", exchange).Str("queue", queue).Msg("rabbitmq initialized")
	return client, nil
}

func (c *Client) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.log.Info().Msg("rabbitmq connection closed")
}

// RegistrationConfirmed publishes msg for the email worker.
func (c *Client) RegistrationConfirmed(ctx context.Context, msg Confirmation) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal confirmation: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.channel.PublishWithContext(ctx, c.exchange, confirmedRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.RegistrationID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish confirmation: %w", err)
	}
	c.log.Debug().Str("registration_id", msg.RegistrationID).Msg("confirmation published")
	return nil
}

// Consume acks deliveries the handler accepts and requeues the rest once.
func (c *Client) Consume(ctx context.Context, handler func([]byte) error) error {
	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				if err := handler(d.Body); err != nil {
					c.log.Warn().Err(err).Msg("failed to process message")
					_ = d.Nack(false, !d.Redelivered)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	c.log.Info().Str("queue", c.queue).Msg("started consuming")
	return nil
}
