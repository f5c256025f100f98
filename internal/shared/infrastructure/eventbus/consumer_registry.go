package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
)

// ConsumerRegistry routes envelopes to the consumers registered for their
// routing key.
type ConsumerRegistry struct {
	mu     sync.RWMutex
	routes map[string][]EventConsumer
	logger *slog.Logger
}

// NewConsumerRegistry creates an empty registry.
func NewConsumerRegistry(logger *slog.Logger) *ConsumerRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsumerRegistry{
		routes: make(map[string][]EventConsumer),
		logger: logger,
	}
}

// Register routes every key in consumer.EventTypes to consumer.
func (r *ConsumerRegistry) Register(consumer EventConsumer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range consumer.EventTypes() {
		r.routes[key] = append(r.routes[key], consumer)
		r.logger.Debug("consumer registered", "routing_key", key)
	}
}

// GetConsumers returns the consumers for routingKey in registration order.
func (r *ConsumerRegistry) GetConsumers(routingKey string) []EventConsumer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.routes[routingKey])
}

// GetAllEventTypes returns the routed keys, sorted. The RabbitMQ consumer
// binds its queue to each.
func (r *ConsumerRegistry) GetAllEventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.routes))
	for key := range r.routes {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// ConsumerCount returns the number of (routing key, consumer) routes.
func (r *ConsumerRegistry) ConsumerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, consumers := range r.routes {
		n += len(consumers)
	}
	return n
}

// Dispatch hands event to every consumer of its routing key, even after one
// fails. The result is permanent only when every failure was permanent, so
// a transient failure anywhere gets the message redelivered.
func (r *ConsumerRegistry) Dispatch(ctx context.Context, event *ConsumedEvent) error {
	consumers := r.GetConsumers(event.RoutingKey)
	if len(consumers) == 0 {
		r.logger.Debug("no consumer for routing key", "routing_key", event.RoutingKey)
		return nil
	}

	var transient, permanent []error
	for _, consumer := range consumers {
		err := consumer.Handle(ctx, event)
		if err == nil {
			continue
		}
		r.logger.Error("consumer failed",
			"routing_key", event.RoutingKey,
			"event_id", event.EventID,
			"permanent", IsPermanent(err),
			"error", err,
		)
		if IsPermanent(err) {
			permanent = append(permanent, err)
		} else {
			transient = append(transient, err)
		}
	}

	switch {
	case len(transient) > 0:
		return errors.Join(transient...)
	case len(permanent) == 1:
		return permanent[0]
	case len(permanent) > 1:
		return Permanent(errors.Join(permanent...))
	}
	return nil
}
