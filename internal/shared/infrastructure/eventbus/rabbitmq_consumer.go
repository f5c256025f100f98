package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultConsumerQueueName is the durable queue rule notifications land in.
const DefaultConsumerQueueName = "classbook.booking.rules"

// ErrConsumerRunning is returned by a second concurrent Start.
var ErrConsumerRunning = errors.New("eventbus: consumer already running")

// RabbitMQConsumerConfig configures NewRabbitMQConsumer.
type RabbitMQConsumerConfig struct {
	URL       string
	Exchange  string
	QueueName string

	// DeadLetterExchange receives messages rejected with a permanent error.
	// Empty drops them.
	DeadLetterExchange string

	// Prefetch caps unacknowledged deliveries. Defaults to 1, which
	// applies rule updates in the order they were published.
	Prefetch int

	Logger *slog.Logger
}

// RabbitMQConsumer binds a durable queue to the routing keys of its
// registered consumers and dispatches each delivery through a
// ConsumerRegistry. Successful deliveries are acked, permanent failures
// are rejected without requeue, anything else is requeued.
type RabbitMQConsumer struct {
	mu       sync.Mutex
	session  *session
	queue    string
	prefetch int
	registry *ConsumerRegistry
	logger   *slog.Logger
	closed   chan struct{}
	running  bool
}

// NewRabbitMQConsumer dials the broker and declares the exchange and queue.
func NewRabbitMQConsumer(cfg RabbitMQConsumerConfig, registry *ConsumerRegistry) (*RabbitMQConsumer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueName == "" {
		cfg.QueueName = DefaultConsumerQueueName
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if registry == nil {
		registry = NewConsumerRegistry(logger)
	}

	s, err := dial(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, err
	}

	var args amqp.Table
	if cfg.DeadLetterExchange != "" {
		args = amqp.Table{"x-dead-letter-exchange": cfg.DeadLetterExchange}
	}
	// durable, not auto-deleted, shared, wait for the broker
	if _, err := s.ch.QueueDeclare(cfg.QueueName, true, false, false, false, args); err != nil {
		_ = s.close()
		return nil, fmt.Errorf("declare queue %s: %w", cfg.QueueName, err)
	}

	logger.Info("RabbitMQ consumer connected", "queue", cfg.QueueName, "exchange", s.exchange)
	return &RabbitMQConsumer{
		session:  s,
		queue:    cfg.QueueName,
		prefetch: cfg.Prefetch,
		registry: registry,
		logger:   logger,
		closed:   make(chan struct{}),
	}, nil
}

// RegisterConsumer routes consumer's keys and binds the queue to them.
// A failed bind is logged; the consumer still receives messages already
// routed to the queue.
func (c *RabbitMQConsumer) RegisterConsumer(consumer EventConsumer) {
	c.registry.Register(consumer)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range consumer.EventTypes() {
		if err := c.session.ch.QueueBind(c.queue, key, c.session.exchange, false, nil); err != nil {
			c.logger.Error("queue bind failed", "queue", c.queue, "routing_key", key, "error", err)
			continue
		}
		c.logger.Debug("queue bound", "queue", c.queue, "routing_key", key)
	}
}

// Start consumes until ctx is cancelled, Close is called, or the broker
// closes the delivery channel.
func (c *RabbitMQConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrConsumerRunning
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	if err := c.session.ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}
	// generated tag, manual ack, shared, no-local unsupported, wait
	deliveries, err := c.session.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	c.logger.Info("consuming", "queue", c.queue, "routing_keys", c.registry.GetAllEventTypes())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closed:
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("eventbus: delivery channel closed by broker")
			}
			c.settle(d, c.handle(ctx, d))
		}
	}
}

func (c *RabbitMQConsumer) handle(ctx context.Context, d amqp.Delivery) error {
	event, err := DecodeEvent(d.Body, d.RoutingKey)
	if err != nil {
		return Permanent(err)
	}

	start := time.Now()
	err = c.registry.Dispatch(ctx, event)
	c.logger.Debug("delivery dispatched",
		"routing_key", event.RoutingKey,
		"event_id", event.EventID,
		"redelivered", d.Redelivered,
		"duration_ms", time.Since(start).Milliseconds(),
		"ok", err == nil,
	)
	return err
}

func (c *RabbitMQConsumer) settle(d amqp.Delivery, err error) {
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Error("ack failed", "delivery_tag", d.DeliveryTag, "error", ackErr)
		}
		return
	}

	requeue := !IsPermanent(err)
	c.logger.Warn("delivery rejected",
		"routing_key", d.RoutingKey,
		"delivery_tag", d.DeliveryTag,
		"requeue", requeue,
		"error", err,
	)
	if nackErr := d.Nack(false, requeue); nackErr != nil {
		c.logger.Error("nack failed", "delivery_tag", d.DeliveryTag, "error", nackErr)
	}
}

// Close stops Start and closes the connection. It is safe to call twice.
func (c *RabbitMQConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
		return nil
	default:
		close(c.closed)
	}
	if err := c.session.close(); err != nil {
		return err
	}
	c.logger.Info("RabbitMQ consumer closed")
	return nil
}
