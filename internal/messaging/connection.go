package messaging

import (
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"cafe-pos/internal/config"
	"cafe-pos/internal/logger"
)

// Exchanges
const (
	OrdersExchange        = "orders_topic"
	NotificationsExchange = "notifications_fanout"
)

// Queues. The kitchen and tracking names are prefixes: every instance
// consumes its own exclusive copy so each replica's screens see every event.
const (
	KitchenOrdersQueue = "kitchen_orders"
	KitchenStatusQueue = "kitchen_status"
	TrackingQueue      = "tracking"
	NotificationsQueue = "notifications_queue"
)

const (
	dialAttempts = 5
	messageTTLms = 300000
)

type binding struct {
	queue      string
	exchange   string
	routingKey string
}

// durable queues shared by competing consumers
var bindings = []binding{
	{NotificationsQueue, NotificationsExchange, ""},
}

// KitchenOrdersRoutingKey matches new orders of every service type.
const KitchenOrdersRoutingKey = "kitchen.*"

// Connection wraps a RabbitMQ connection and its channel with reconnection
type Connection struct {
	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	logger  *logger.Logger
	url     string
}

// New dials RabbitMQ and declares the topology
func New(cfg *config.Config, log *logger.Logger) (*Connection, error) {
	c := &Connection{logger: log, url: cfg.RabbitMQURL()}
	if err := c.connect(); err != nil {
		return nil, fmt.Errorf("failed to establish initial connection: %w", err)
	}
	return c, nil
}

func (c *Connection) connect() error {
	var err error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		if err = c.dial(); err == nil {
			c.logger.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", nil)
			return nil
		}
		if attempt == dialAttempts {
			break
		}
		wait := time.Duration(attempt) * 2 * time.Second
		c.logger.Error("rabbitmq_connection_failed",
			fmt.Sprintf("Failed to connect to RabbitMQ, retrying in %v", wait),
			"startup", err, map[string]interface{}{"attempt": attempt})
		time.Sleep(wait)
	}
	return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", dialAttempts, err)
}

func (c *Connection) dial() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn, c.channel = conn, ch
	c.mu.Unlock()
	return nil
}

// declareTopology is idempotent; every mode calls it on connect.
func declareTopology(ch *amqp091.Channel) error {
	if err := ch.ExchangeDeclare(OrdersExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare %s exchange: %w", OrdersExchange, err)
	}
	if err := ch.ExchangeDeclare(NotificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare %s exchange: %w", NotificationsExchange, err)
	}

	for _, b := range bindings {
		_, err := ch.QueueDeclare(b.queue, true, false, false, false, amqp091.Table{
			"x-message-ttl": int32(messageTTLms),
		})
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", b.queue, err)
		}
		if err := ch.QueueBind(b.queue, b.routingKey, b.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}

// declareInstanceQueue declares a queue that lives as long as this
// connection. It is redeclared after every reconnect.
func declareInstanceQueue(ch *amqp091.Channel, b binding) error {
	_, err := ch.QueueDeclare(b.queue, false, true, true, false, amqp091.Table{
		"x-message-ttl": int32(messageTTLms),
	})
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", b.queue, err)
	}
	if err := ch.QueueBind(b.queue, b.routingKey, b.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s to %s: %w", b.queue, b.exchange, err)
	}
	return nil
}

// Channel returns the current channel
func (c *Connection) Channel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == nil || c.conn.IsClosed()
}

// Reconnect drops the current connection and dials again
func (c *Connection) Reconnect() error {
	c.Close()
	return c.connect()
}
