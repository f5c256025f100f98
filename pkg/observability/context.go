package observability

import (
	"context"

	"github.com/google/uuid"
)

type correlationIDKey struct{}

// Attribute keys shared by logs and metric tags.
const (
	CorrelationIDKey = "correlation_id"
	TraceIDKey       = "trace_id"
	OperationKey     = "operation"
)

// WithCorrelationID stores id on ctx. An empty id gets a fresh UUID, so
// every command and consumed message has one.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext returns the correlation id on ctx, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}
