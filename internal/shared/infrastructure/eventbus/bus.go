// Package eventbus carries booking events to the broker and rule
// notifications back into the service.
package eventbus

import "context"

// Publisher delivers an encoded envelope under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

// EventConsumer handles the routing keys it declares, e.g.
// "admin.business_rule.updated". Returning a Permanent error drops the
// message instead of redelivering it.
type EventConsumer interface {
	EventTypes() []string
	Handle(ctx context.Context, event *ConsumedEvent) error
}

// Consumer feeds broker deliveries to registered EventConsumers.
type Consumer interface {
	// Start blocks until ctx is cancelled or the consumer is closed.
	Start(ctx context.Context) error
	RegisterConsumer(consumer EventConsumer)
	Close() error
}
