package eventbus_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/eventbus"
)

func ruleUpdatedEnvelope(t *testing.T, key, value string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"rule_key": key, "new_value": value})
	require.NoError(t, err)

	body, err := json.Marshal(&eventbus.ConsumedEvent{
		EventID:       uuid.New(),
		AggregateID:   uuid.New(),
		AggregateType: "BusinessRule",
		RoutingKey:    keyRuleUpdated,
		OccurredAt:    time.Now().UTC(),
		Payload:       payload,
	})
	require.NoError(t, err)
	return body
}

func TestInProcessEventBus_Publish(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	consumer := &mockConsumer{eventTypes: []string{keyRuleUpdated}}
	bus.RegisterConsumer(consumer)

	err := bus.Publish(context.Background(), keyRuleUpdated, ruleUpdatedEnvelope(t, "max_waitlist_size", "5"))
	require.NoError(t, err)

	events := consumer.received()
	require.Len(t, events, 1)
	assert.Equal(t, "BusinessRule", events[0].AggregateType)
	assert.JSONEq(t, `{"rule_key":"max_waitlist_size","new_value":"5"}`, string(events[0].Payload))
}

func TestInProcessEventBus_FillsRoutingKeyFromTransport(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	consumer := &mockConsumer{eventTypes: []string{keyClassFull}}
	bus.RegisterConsumer(consumer)

	require.NoError(t, bus.Publish(context.Background(), keyClassFull, []byte(`{"payload":{}}`)))

	events := consumer.received()
	require.Len(t, events, 1)
	assert.Equal(t, keyClassFull, events[0].RoutingKey)
}

func TestInProcessEventBus_ConsumerErrorIsSwallowedOnPublish(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	consumer := &mockConsumer{eventTypes: []string{keyRuleUpdated}, err: errors.New("store unavailable")}
	bus.RegisterConsumer(consumer)

	err := bus.Publish(context.Background(), keyRuleUpdated, ruleUpdatedEnvelope(t, "max_waitlist_size", "5"))

	require.NoError(t, err)
	assert.Len(t, consumer.received(), 1)
}

func TestInProcessEventBus_PublishConsumedEventReturnsError(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	want := errors.New("store unavailable")
	bus.RegisterConsumer(&mockConsumer{eventTypes: []string{keyRuleUpdated}, err: want})

	err := bus.PublishConsumedEvent(context.Background(), &eventbus.ConsumedEvent{
		EventID:    uuid.New(),
		RoutingKey: keyRuleUpdated,
	})

	assert.ErrorIs(t, err, want)
}

func TestInProcessEventBus_InvalidPayload(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	consumer := &mockConsumer{eventTypes: []string{keyRuleUpdated}}
	bus.RegisterConsumer(consumer)

	require.NoError(t, bus.Publish(context.Background(), keyRuleUpdated, []byte("invalid json")))
	assert.Empty(t, consumer.received())
}

func TestInProcessEventBus_StartBlocksUntilCancelled(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- bus.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
	assert.NotNil(t, bus.Registry())
	assert.NoError(t, bus.Close())
}

func TestDecodeEvent(t *testing.T) {
	event, err := eventbus.DecodeEvent([]byte(`{"routing_key":"booking.class.booked"}`), "ignored")
	require.NoError(t, err)
	assert.Equal(t, keyClassBooked, event.RoutingKey)

	_, err = eventbus.DecodeEvent([]byte("{"), keyClassBooked)
	assert.Error(t, err)
}

func TestDecodeEvent_BarePayload(t *testing.T) {
	body := []byte(`{"rule_key":"max_waitlist_size","new_value":"5"}`)
	event, err := eventbus.DecodeEvent(body, "admin.business_rule.updated")
	require.NoError(t, err)
	assert.Equal(t, "admin.business_rule.updated", event.RoutingKey)
	assert.JSONEq(t, string(body), string(event.Payload))
}
