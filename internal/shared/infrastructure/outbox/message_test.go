package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/classbook/internal/shared/domain"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/eventbus"
)

type seatTakenEvent struct {
	domain.BaseEvent
	UserID uuid.UUID `json:"user_id"`
	Seats  int       `json:"seats"`
}

func newSeatTakenEvent(classID uuid.UUID) *seatTakenEvent {
	return &seatTakenEvent{
		BaseEvent: domain.NewBaseEvent(classID, "FitnessClass", "booking.class.booked", time.Now()),
		UserID:    uuid.New(),
		Seats:     1,
	}
}

func TestNewMessage(t *testing.T) {
	classID := uuid.New()
	event := newSeatTakenEvent(classID)
	metadata := domain.EventMetadata{CorrelationID: uuid.New(), CausationID: uuid.New(), UserID: event.UserID}
	event.SetMetadata(metadata)

	msg, err := NewMessage(event)

	require.NoError(t, err)
	assert.Equal(t, int64(0), msg.ID)
	assert.Equal(t, event.EventID(), msg.EventID)
	assert.Equal(t, "FitnessClass", msg.AggregateType)
	assert.Equal(t, classID, msg.AggregateID)
	assert.Equal(t, "booking.class.booked", msg.EventType)
	assert.Equal(t, "booking.class.booked", msg.RoutingKey)
	assert.Equal(t, event.OccurredAt(), msg.CreatedAt)
	assert.JSONEq(t, `{"user_id":"`+event.UserID.String()+`","seats":1}`, string(msg.Payload))
	assert.Equal(t, metadata, msg.EventMetadata())
	assert.False(t, msg.IsPublished())
}

func TestNewMessages(t *testing.T) {
	classID := uuid.New()
	events := []domain.DomainEvent{newSeatTakenEvent(classID), newSeatTakenEvent(classID)}

	msgs, err := NewMessages(events)

	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, events[1].EventID(), msgs[1].EventID)
}

func TestMessage_Envelope(t *testing.T) {
	event := newSeatTakenEvent(uuid.New())
	event.SetMetadata(domain.EventMetadata{CorrelationID: uuid.New(), UserID: event.UserID})
	msg, err := NewMessage(event)
	require.NoError(t, err)

	body, err := msg.Envelope()
	require.NoError(t, err)

	var envelope eventbus.ConsumedEvent
	require.NoError(t, json.Unmarshal(body, &envelope))
	assert.Equal(t, msg.EventID, envelope.EventID)
	assert.Equal(t, msg.RoutingKey, envelope.RoutingKey)
	assert.True(t, msg.CreatedAt.Equal(envelope.OccurredAt))
	assert.Equal(t, event.UserID, envelope.Metadata.UserID)
	assert.Equal(t, event.Metadata().CorrelationID.String(), envelope.Metadata.CorrelationID)
	assert.Empty(t, envelope.Metadata.CausationID)
	assert.JSONEq(t, string(msg.Payload), string(envelope.Payload))
}

func TestMessage_EventMetadataTolerant(t *testing.T) {
	assert.Equal(t, domain.EventMetadata{}, (&Message{}).EventMetadata())
	assert.Equal(t, domain.EventMetadata{}, (&Message{Metadata: json.RawMessage(`not json`)}).EventMetadata())
}

func TestMessage_CanRetry(t *testing.T) {
	tests := []struct {
		retries, max int
		want         bool
	}{
		{0, 3, true},
		{2, 3, true},
		{3, 3, false},
		{5, 3, false},
		{0, 0, false},
	}
	for _, tt := range tests {
		msg := &Message{RetryCount: tt.retries}
		assert.Equal(t, tt.want, msg.CanRetry(tt.max), "retries=%d max=%d", tt.retries, tt.max)
	}
}
