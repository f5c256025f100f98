package domain_test

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/classbook/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type testAggregate struct {
	domain.BaseAggregateRoot
}

type testAggregateEvent struct {
	domain.BaseEvent
}

func newTestAggregateEvent(aggregateID uuid.UUID) *testAggregateEvent {
	return &testAggregateEvent{
		BaseEvent: domain.NewBaseEvent(aggregateID, "TestAggregate", "test.aggregate.created", time.Now()),
	}
}

func TestBaseAggregateRoot_Events(t *testing.T) {
	agg := &testAggregate{BaseAggregateRoot: domain.NewBaseAggregateRoot(domain.NewBaseEntity())}
	assert.Empty(t, agg.DomainEvents())

	agg.AddDomainEvent(newTestAggregateEvent(agg.ID()))
	agg.AddDomainEvent(newTestAggregateEvent(agg.ID()))
	assert.Len(t, agg.DomainEvents(), 2)

	agg.ClearDomainEvents()
	assert.Empty(t, agg.DomainEvents())
}

func TestBaseAggregateRoot_Version(t *testing.T) {
	agg := domain.RehydrateBaseAggregateRoot(domain.NewBaseEntity(), 7)
	assert.Equal(t, 7, agg.Version())

	agg.IncrementVersion()
	assert.Equal(t, 8, agg.Version())
	assert.Empty(t, agg.DomainEvents())
}
