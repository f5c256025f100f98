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

// ErrNotConfirmed is returned when the broker nacks a publish.
var ErrNotConfirmed = errors.New("eventbus: broker did not confirm publish")

// RabbitMQPublisherConfig configures NewRabbitMQPublisher.
type RabbitMQPublisherConfig struct {
	URL      string
	Exchange string

	// ConfirmTimeout bounds the wait for a publisher confirm. Zero waits
	// as long as the Publish context allows.
	ConfirmTimeout time.Duration

	Logger *slog.Logger
}

// RabbitMQPublisher publishes persistent messages to the topic exchange
// with publisher confirms. Publish returns only after the broker has taken
// responsibility for the message, so the outbox marks a row published only
// when it is safe to.
type RabbitMQPublisher struct {
	mu      sync.Mutex
	session *session
	timeout time.Duration
	logger  *slog.Logger
}

// NewRabbitMQPublisher dials the broker, declares the exchange and puts the
// channel into confirm mode.
func NewRabbitMQPublisher(cfg RabbitMQPublisherConfig) (*RabbitMQPublisher, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s, err := dial(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, err
	}
	if err := s.ch.Confirm(false); err != nil {
		_ = s.close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	logger.Info("RabbitMQ publisher connected", "exchange", s.exchange)
	return &RabbitMQPublisher{session: s, timeout: cfg.ConfirmTimeout, logger: logger}, nil
}

// Publish sends payload and waits for the broker's confirm.
func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	// One publish in flight keeps confirms in outbox order.
	p.mu.Lock()
	defer p.mu.Unlock()

	confirm, err := p.session.ch.PublishWithDeferredConfirmWithContext(ctx,
		p.session.exchange, routingKey,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			AppId:        "classbook",
			Body:         payload,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm for %s: %w", routingKey, err)
	}
	if !acked {
		return fmt.Errorf("%w: %s", ErrNotConfirmed, routingKey)
	}

	p.logger.Debug("message confirmed",
		"routing_key", routingKey,
		"delivery_tag", confirm.DeliveryTag,
		"size", len(payload),
	)
	return nil
}

// Close closes the channel and connection.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.session.close(); err != nil {
		return err
	}
	p.logger.Info("RabbitMQ publisher closed")
	return nil
}
