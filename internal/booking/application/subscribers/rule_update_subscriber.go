package subscribers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/classbook/pkg/observability"
)

// RoutingKeyBusinessRuleUpdated is published by the admin service whenever an
// operator changes a business rule.
const RoutingKeyBusinessRuleUpdated = "admin.business_rule.updated"

// RuleSetter applies a single rule change.
type RuleSetter interface {
	Set(ctx context.Context, key domain.RuleKey, raw string) error
}

// BusinessRuleUpdatedPayload is the payload for admin.business_rule.updated.
type BusinessRuleUpdatedPayload struct {
	RuleKey  string `json:"rule_key"`
	NewValue string `json:"new_value"`
}

// RuleUpdateSubscriber applies rule notifications to the live rule store.
type RuleUpdateSubscriber struct {
	rules   RuleSetter
	logger  *slog.Logger
	metrics observability.Metrics
}

// NewRuleUpdateSubscriber creates a new rule update subscriber.
func NewRuleUpdateSubscriber(rules RuleSetter, logger *slog.Logger, metrics observability.Metrics) *RuleUpdateSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &RuleUpdateSubscriber{
		rules:   rules,
		logger:  logger,
		metrics: metrics,
	}
}

// EventTypes returns the event types this subscriber handles.
func (s *RuleUpdateSubscriber) EventTypes() []string {
	return []string{RoutingKeyBusinessRuleUpdated}
}

// Handle applies one rule change. Malformed or rejected changes are returned
// as permanent errors so the broker does not redeliver them.
func (s *RuleUpdateSubscriber) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var payload BusinessRuleUpdatedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		s.reject(ctx, event, "", "", err)
		return eventbus.Permanent(fmt.Errorf("decode rule update: %w", err))
	}

	err := s.rules.Set(ctx, domain.RuleKey(payload.RuleKey), payload.NewValue)
	switch {
	case err == nil:
		s.metrics.Counter(observability.MetricRuleUpdates, 1, observability.T("rule_key", payload.RuleKey))
		return nil
	case errors.Is(err, domain.ErrUnknownRuleKey), errors.Is(err, domain.ErrInvalidRuleValue):
		s.reject(ctx, event, payload.RuleKey, payload.NewValue, err)
		return eventbus.Permanent(err)
	default:
		return fmt.Errorf("apply rule %s: %w", payload.RuleKey, err)
	}
}

func (s *RuleUpdateSubscriber) reject(ctx context.Context, event *eventbus.ConsumedEvent, key, value string, err error) {
	s.metrics.Counter(observability.MetricRuleRejected, 1)
	s.logger.ErrorContext(ctx, "rejected business rule update",
		"event_id", event.EventID,
		"rule_key", key,
		"new_value", value,
		"error", err,
	)
}
