package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

const (
	// OrderQueue receives an order.created event for every confirmed order.
	OrderQueue = "order_queue"
	// StatusQueue carries operator status changes into the service.
	StatusQueue = "order_status"

	statusConsumerTag = "configurator-status"
)

// ErrMalformedMessage is returned for deliveries that cannot be decoded.
var ErrMalformedMessage = errors.New("malformed message")

// StatusUpdate is an out-of-band order status change.
type StatusUpdate struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
	mu      sync.Mutex // guards channel publishes
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL    string
	Logger *zap.Logger
}

// NewClient connects to RabbitMQ, opens a channel and declares both queues.
func NewClient(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, name := range []string{OrderQueue, StatusQueue} {
		if _, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,
		); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare %s: %w", name, err)
		}
	}

	logger.Info("rabbitmq client connected", zap.Strings("queues", []string{OrderQueue, StatusQueue}))

	return &Client{
		conn:    conn,
		channel: ch,
		logger:  logger,
	}, nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PublishOrderCreated publishes an order creation event to OrderQueue as JSON.
func (c *Client) PublishOrderCreated(orderData map[string]interface{}) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	body, err := json.Marshal(orderData)
	if err != nil {
		return fmt.Errorf("failed to marshal order data to JSON: %w", err)
	}

	c.mu.Lock()
	err = c.channel.Publish(
		"",         // default exchange
		OrderQueue, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug("order event sent", zap.ByteString("body", body))
	return nil
}

// DecodeStatusUpdate parses a StatusQueue message body.
func DecodeStatusUpdate(body []byte) (StatusUpdate, error) {
	var u StatusUpdate
	if err := json.Unmarshal(body, &u); err != nil {
		return StatusUpdate{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	u.OrderID = strings.TrimSpace(u.OrderID)
	u.Status = strings.TrimSpace(u.Status)
	if u.OrderID == "" || u.Status == "" {
		return StatusUpdate{}, fmt.Errorf("%w: order_id and status are required", ErrMalformedMessage)
	}
	return u, nil
}

// ConsumeStatusUpdates delivers StatusQueue messages to handler until ctx is
// cancelled or the channel closes. Malformed messages are dropped; a failed
// handler gets one redelivery before the message is dropped.
func (c *Client) ConsumeStatusUpdates(ctx context.Context, handler func(context.Context, StatusUpdate) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		StatusQueue,
		statusConsumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("waiting for order status updates", zap.String("queue", StatusQueue))

	go func() {
		<-ctx.Done()
		if err := c.channel.Cancel(statusConsumerTag, false); err != nil {
			c.logger.Debug("consumer cancel failed", zap.Error(err))
		}
	}()

	for msg := range msgs {
		c.handleDelivery(ctx, msg, handler)
	}
	return ctx.Err()
}

func (c *Client) handleDelivery(ctx context.Context, msg amqp.Delivery, handler func(context.Context, StatusUpdate) error) {
	update, err := DecodeStatusUpdate(msg.Body)
	if err != nil {
		c.logger.Warn("dropping status message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
		if nackErr := msg.Nack(false, false); nackErr != nil {
			c.logger.Error("nack failed", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(nackErr))
		}
		return
	}

	if err := handler(ctx, update); err != nil {
		requeue := !msg.Redelivered
		c.logger.Warn("status update failed",
			zap.String("order_id", update.OrderID),
			zap.String("status", update.Status),
			zap.Bool("requeue", requeue),
			zap.Error(err))
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			c.logger.Error("nack failed", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(nackErr))
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		c.logger.Error("ack failed", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(ackErr))
	}
}
