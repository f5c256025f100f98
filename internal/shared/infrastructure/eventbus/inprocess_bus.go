package eventbus

import (
	"context"
	"log/slog"
	"sync"
)

// InProcessEventBus is the Publisher and Consumer used when no broker is
// configured. Publish decodes the envelope and runs the matching consumers
// before returning, one publish at a time.
type InProcessEventBus struct {
	mu       sync.Mutex
	registry *ConsumerRegistry
	logger   *slog.Logger
}

var (
	_ Publisher = (*InProcessEventBus)(nil)
	_ Consumer  = (*InProcessEventBus)(nil)
)

// NewInProcessEventBus creates a bus with an empty registry.
func NewInProcessEventBus(logger *slog.Logger) *InProcessEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessEventBus{registry: NewConsumerRegistry(logger), logger: logger}
}

// RegisterConsumer routes consumer's keys on this bus.
func (b *InProcessEventBus) RegisterConsumer(consumer EventConsumer) {
	b.registry.Register(consumer)
}

// Publish delivers an encoded envelope. Undecodable bodies and consumer
// failures are logged and swallowed: the outbox row is marked published
// either way, since redelivering to the same local handler cannot help.
func (b *InProcessEventBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	event, err := DecodeEvent(payload, routingKey)
	if err != nil {
		b.logger.Error("dropping undecodable event", "routing_key", routingKey, "error", err)
		return nil
	}
	if err := b.PublishConsumedEvent(ctx, event); err != nil {
		b.logger.Error("local dispatch failed",
			"routing_key", event.RoutingKey,
			"event_id", event.EventID,
			"permanent", IsPermanent(err),
			"error", err,
		)
	}
	return nil
}

// PublishConsumedEvent dispatches a decoded envelope and returns the
// consumers' error.
func (b *InProcessEventBus) PublishConsumedEvent(ctx context.Context, event *ConsumedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registry.Dispatch(ctx, event)
}

// Start blocks until ctx is done. Delivery happens inside Publish.
func (b *InProcessEventBus) Start(ctx context.Context) error {
	b.logger.Info("in-process event bus started", "routing_keys", b.registry.GetAllEventTypes())
	<-ctx.Done()
	return ctx.Err()
}

// Close does nothing.
func (b *InProcessEventBus) Close() error {
	return nil
}

// Registry exposes the routing table.
func (b *InProcessEventBus) Registry() *ConsumerRegistry {
	return b.registry
}
