package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyPublisher struct {
	err    error
	calls  int
	closed bool
}

func (p *flakyPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.calls++
	return p.err
}

func (p *flakyPublisher) Close() error {
	p.closed = true
	return nil
}

func TestBreakerPublisher_OpensAfterConsecutiveFailures(t *testing.T) {
	next := &flakyPublisher{err: errors.New("connection reset")}
	pub := NewBreakerPublisher(next, BreakerConfig{
		Name:             "test",
		MaxRequests:      1,
		Timeout:          time.Hour,
		FailureThreshold: 2,
	}, nil)
	ctx := context.Background()

	assert.Error(t, pub.Publish(ctx, "booking.class.booked", []byte(`{}`)))
	assert.Error(t, pub.Publish(ctx, "booking.class.booked", []byte(`{}`)))
	assert.Equal(t, gobreaker.StateOpen, pub.State())

	err := pub.Publish(ctx, "booking.class.booked", []byte(`{}`))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, next.calls)
}

func TestBreakerPublisher_PassesThrough(t *testing.T) {
	next := &flakyPublisher{}
	pub := NewBreakerPublisher(next, DefaultBreakerConfig(), nil)

	require.NoError(t, pub.Publish(context.Background(), "booking.class.full", []byte(`{}`)))
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, gobreaker.StateClosed, pub.State())

	require.NoError(t, pub.Close())
	assert.True(t, next.closed)
}
