package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"cafe-pos/internal/logger"
)

const handleTimeout = 30 * time.Second

// ErrMalformed marks a message that can never be processed. Such messages
// are dropped instead of requeued.
var ErrMalformed = errors.New("malformed message")

// MessageHandler processes one delivery body
type MessageHandler func(ctx context.Context, body []byte) error

// Consumer reads one queue with manual acknowledgements
type Consumer struct {
	conn        *Connection
	logger      *logger.Logger
	queueName   string
	consumerTag string
	prefetch    int

	// set for per-instance queues, declared on every consume
	instance *binding
}

func NewConsumer(conn *Connection, log *logger.Logger, queueName, consumerTag string, prefetch int) *Consumer {
	return &Consumer{
		conn:        conn,
		logger:      log,
		queueName:   queueName,
		consumerTag: consumerTag,
		prefetch:    prefetch,
	}
}

// NewBroadcastConsumer consumes exchange through a queue of its own, named
// prefix plus a random suffix. Use it when every process must see every
// message, such as display refreshes.
func NewBroadcastConsumer(conn *Connection, log *logger.Logger, prefix, exchange, routingKey string, prefetch int) *Consumer {
	c := NewConsumer(conn, log, InstanceQueueName(prefix), prefix, prefetch)
	c.instance = &binding{queue: c.queueName, exchange: exchange, routingKey: routingKey}
	return c
}

func InstanceQueueName(prefix string) string {
	return prefix + "." + uuid.NewString()
}

// Run consumes until ctx is cancelled, reconnecting when the broker closes
// the delivery channel.
func (c *Consumer) Run(ctx context.Context, handler MessageHandler) error {
	for {
		err := c.consume(ctx, handler)
		if ctx.Err() != nil {
			c.logger.Info("consumer_stopped", "Consumer stopped by context", "", map[string]interface{}{"queue": c.queueName})
			return ctx.Err()
		}
		c.logger.Error("consumer_channel_closed", "Delivery channel closed, reconnecting", "", err, map[string]interface{}{"queue": c.queueName})
		if err := c.conn.Reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect consumer: %w", err)
		}
	}
}

func (c *Consumer) consume(ctx context.Context, handler MessageHandler) error {
	ch := c.conn.Channel()
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	if c.instance != nil {
		if err := declareInstanceQueue(ch, *c.instance); err != nil {
			return err
		}
	}

	msgs, err := ch.Consume(c.queueName, c.consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("consumer_started",
		fmt.Sprintf("Started consuming from queue %s", c.queueName),
		"", map[string]interface{}{
			"queue":    c.queueName,
			"consumer": c.consumerTag,
			"prefetch": c.prefetch,
		})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handle(ctx, d, handler)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp091.Delivery, handler MessageHandler) {
	start := time.Now()
	hctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	err := handler(hctx, d.Body)
	fields := map[string]interface{}{
		"queue":        c.queueName,
		"routing_key":  d.RoutingKey,
		"delivery_tag": d.DeliveryTag,
		"duration_ms":  time.Since(start).Milliseconds(),
	}

	switch {
	case err == nil:
		c.logger.Debug("message_processed", "Processed message", "", fields)
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Error("message_ack_failed", "Failed to ack message", "", ackErr, fields)
		}
	case errors.Is(err, ErrMalformed):
		c.logger.Warn("message_dropped", "Dropping malformed message", "", fields)
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.logger.Error("message_nack_failed", "Failed to nack message", "", nackErr, fields)
		}
	default:
		c.logger.Error("message_processing_failed", "Failed to process message", "", err, fields)
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.logger.Error("message_nack_failed", "Failed to nack message", "", nackErr, fields)
		}
	}
}

// Decode unmarshals body into v, reporting failures as ErrMalformed.
func Decode(body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
