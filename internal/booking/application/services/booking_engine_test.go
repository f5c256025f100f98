package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
	sharedDomain "github.com/felixgeelhaar/classbook/internal/shared/domain"
	"github.com/felixgeelhaar/classbook/pkg/observability"
)

func TestBookingEngine_BookCancelPromote(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	class := f.createClass(t, testNow.Add(72*time.Hour), 1)
	alice, bob := uuid.New(), uuid.New()

	first, err := f.engine.BookClass(ctx, class.ID(), alice)
	require.NoError(t, err)
	assert.True(t, first.IsBooked())

	second, err := f.engine.BookClass(ctx, class.ID(), bob)
	require.NoError(t, err)
	require.False(t, second.IsBooked())
	assert.Equal(t, 1, second.Entry.Position())

	require.NoError(t, f.engine.CancelBooking(ctx, class.ID(), alice))

	promoted, err := f.bookings.FindConfirmed(ctx, class.ID(), bob)
	require.NoError(t, err)
	assert.True(t, promoted.IsConfirmed())
	assert.Empty(t, f.positions(t, class.ID()))
	assert.Equal(t, 1, f.confirmedCount(t, class.ID()))

	_, err = f.bookings.FindConfirmed(ctx, class.ID(), alice)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)

	assert.Equal(t, []string{
		domain.RoutingKeyClassBooked,
		domain.RoutingKeyClassFull,
		domain.RoutingKeyBookingCancelled,
		domain.RoutingKeyWaitlistPromoted,
	}, f.routingKeys(t))

	reloaded, err := f.classes.FindByID(ctx, class.ID())
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Version())

	assert.Equal(t, int64(1), f.metrics.GetCounter(observability.MetricBookingBooked))
	assert.Equal(t, int64(1), f.metrics.GetCounter(observability.MetricBookingWaitlisted))
	assert.Equal(t, int64(1), f.metrics.GetCounter(observability.MetricWaitlistPromoted))
	assert.Len(t, f.metrics.GetTimings(observability.MetricOperationDuration, observability.T(observability.OperationKey, "book_class")), 2)
	assert.Len(t, f.metrics.GetTimings(observability.MetricOperationDuration, observability.T(observability.OperationKey, "cancel_booking")), 1)
}

func TestBookingEngine_PromotedEventPayload(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	class := f.createClass(t, testNow.Add(72*time.Hour), 1)
	alice, bob := uuid.New(), uuid.New()

	_, err := f.engine.BookClass(ctx, class.ID(), alice)
	require.NoError(t, err)
	_, err = f.engine.BookClass(ctx, class.ID(), bob)
	require.NoError(t, err)
	require.NoError(t, f.engine.CancelBooking(ctx, class.ID(), alice))

	msgs, err := f.outbox.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	last := msgs[len(msgs)-1]
	require.Equal(t, domain.RoutingKeyWaitlistPromoted, last.RoutingKey)
	assert.Equal(t, class.ID(), last.AggregateID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(last.Payload, &payload))
	assert.Equal(t, bob.String(), payload["user_id"])
	assert.EqualValues(t, 1, payload["from_position"])

	var meta sharedDomain.EventMetadata
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-2].Metadata, &meta))
	assert.Equal(t, alice, meta.UserID)
}

func TestBookingEngine_ConcurrentLastSeats(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	class := f.createClass(t, testNow.Add(72*time.Hour), 2)
	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	outcomes := make([]*domain.BookingOutcome, len(users))
	errs := make([]error, len(users))
	var wg sync.WaitGroup
	for i, user := range users {
		wg.Add(1)
		go func(i int, user uuid.UUID) {
			defer wg.Done()
			outcomes[i], errs[i] = f.engine.BookClass(ctx, class.ID(), user)
		}(i, user)
	}
	wg.Wait()

	booked, waitlisted := 0, 0
	for i := range users {
		require.NoError(t, errs[i])
		if outcomes[i].IsBooked() {
			booked++
		} else {
			waitlisted++
			assert.Equal(t, 1, outcomes[i].Entry.Position())
		}
	}
	assert.Equal(t, 2, booked)
	assert.Equal(t, 1, waitlisted)
	assert.Equal(t, 2, f.confirmedCount(t, class.ID()))
	assert.Equal(t, []int{1}, f.positions(t, class.ID()))
}

func TestBookingEngine_CapacityUnderLoad(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	class := f.createClass(t, testNow.Add(72*time.Hour), 5)

	const requests = 20
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.BookClass(ctx, class.ID(), uuid.New())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, f.confirmedCount(t, class.ID()))
	assert.Equal(t, contiguous(requests-5), f.positions(t, class.ID()))
}

func TestBookingEngine_DoubleSubmitSameUser(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	class := f.createClass(t, testNow.Add(72*time.Hour), 10)
	user := uuid.New()

	errs := make(chan error, 4)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.BookClass(ctx, class.ID(), user)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAlreadyBooked)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.confirmedCount(t, class.ID()))
}

func TestBookingEngine_BookRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("class not found", func(t *testing.T) {
		f := newEngineFixture(t)
		_, err := f.engine.BookClass(ctx, uuid.New(), uuid.New())
		assert.ErrorIs(t, err, domain.ErrClassNotFound)
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("class already started", func(t *testing.T) {
		f := newEngineFixture(t)
		class := f.createClass(t, testNow.Add(time.Hour), 10)
		f.clock.Set(class.StartTime())

		_, err := f.engine.BookClass(ctx, class.ID(), uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotBookable)
	})

	t.Run("already booked", func(t *testing.T) {
		f := newEngineFixture(t)
		class := f.createClass(t, testNow.Add(72*time.Hour), 10)
		user := uuid.New()
		_, err := f.engine.BookClass(ctx, class.ID(), user)
		require.NoError(t, err)

		_, err = f.engine.BookClass(ctx, class.ID(), user)
		assert.ErrorIs(t, err, domain.ErrAlreadyBooked)
		assert.Equal(t, int64(1), f.metrics.GetCounter(observability.MetricBookingRejected,
			observability.T("operation", "book_class"), observability.T("reason", "already_booked")))
		assert.Equal(t, int64(1), f.metrics.GetCounter(observability.MetricOperationErrors,
			observability.T(observability.OperationKey, "book_class")))
	})

	t.Run("already waitlisted", func(t *testing.T) {
		f := newEngineFixture(t)
		class := f.createClass(t, testNow.Add(72*time.Hour), 1)
		_, err := f.engine.BookClass(ctx, class.ID(), uuid.New())
		require.NoError(t, err)
		user := uuid.New()
		_, err = f.engine.BookClass(ctx, class.ID(), user)
		require.NoError(t, err)

		_, err = f.engine.BookClass(ctx, class.ID(), user)
		assert.ErrorIs(t, err, domain.ErrAlreadyWaitlisted)
		assert.ErrorIs(t, err, domain.ErrAlreadyBooked)
		assert.Equal(t, []int{1}, f.positions(t, class.ID()))
	})

	t.Run("schedule conflict", func(t *testing.T) {
		f := newEngineFixture(t)
		start := testNow.Add(72 * time.Hour)
		first := f.createClass(t, start, 10)
		overlapping := f.createClass(t, start.Add(30*time.Minute), 10)
		adjacent := f.createClass(t, first.EndTime(), 10)
		user := uuid.New()

		_, err := f.engine.BookClass(ctx, first.ID(), user)
		require.NoError(t, err)

		_, err = f.engine.BookClass(ctx, overlapping.ID(), user)
		assert.ErrorIs(t, err, domain.ErrScheduleConflict)

		_, err = f.engine.BookClass(ctx, adjacent.ID(), user)
		assert.NoError(t, err)
	})

	t.Run("waitlist full", func(t *testing.T) {
		f := newEngineFixture(t)
		require.NoError(t, f.rules.Set(ctx, domain.RuleMaxWaitlistSize, "1"))
		class := f.createClass(t, testNow.Add(72*time.Hour), 1)

		_, err := f.engine.BookClass(ctx, class.ID(), uuid.New())
		require.NoError(t, err)
		_, err = f.engine.BookClass(ctx, class.ID(), uuid.New())
		require.NoError(t, err)

		_, err = f.engine.BookClass(ctx, class.ID(), uuid.New())
		assert.ErrorIs(t, err, domain.ErrWaitlistFull)
	})
}

func TestBookingEngine_DailyLimit(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	user := uuid.New()
	day := time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		class := f.createClass(t, day.Add(time.Duration(i)*2*time.Hour), 10)
		_, err := f.engine.BookClass(ctx, class.ID(), user)
		require.NoError(t, err)
	}

	fourth := f.createClass(t, day.Add(8*time.Hour), 10)
	_, err := f.engine.BookClass(ctx, fourth.ID(), user)
	assert.ErrorIs(t, err, domain.ErrDailyLimitExceeded)

	nextDay := f.createClass(t, day.Add(24*time.Hour), 10)
	_, err = f.engine.BookClass(ctx, nextDay.ID(), user)
	assert.NoError(t, err)

	require.NoError(t, f.rules.Set(ctx, domain.RuleMaxBookingsPerDay, "4"))
	_, err = f.engine.BookClass(ctx, fourth.ID(), user)
	assert.NoError(t, err)
}

func TestBookingEngine_CancellationWindow(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	class := f.createClass(t, testNow.Add(10*time.Hour), 5)
	user := uuid.New()

	_, err := f.engine.BookClass(ctx, class.ID(), user)
	require.NoError(t, err)

	err = f.engine.CancelBooking(ctx, class.ID(), user)
	assert.ErrorIs(t, err, domain.ErrCancellationWindowClosed)
	assert.Equal(t, 1, f.confirmedCount(t, class.ID()))

	require.NoError(t, f.rules.Set(ctx, domain.RuleCancellationWindowHours, "9"))
	assert.NoError(t, f.engine.CancelBooking(ctx, class.ID(), user))
}

func TestBookingEngine_CancelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	class := f.createClass(t, testNow.Add(72*time.Hour), 1)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()

	for _, u := range []uuid.UUID{alice, bob, carol} {
		_, err := f.engine.BookClass(ctx, class.ID(), u)
		require.NoError(t, err)
	}

	require.NoError(t, f.engine.CancelBooking(ctx, class.ID(), alice))
	err := f.engine.CancelBooking(ctx, class.ID(), alice)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)

	_, err = f.bookings.FindConfirmed(ctx, class.ID(), bob)
	require.NoError(t, err)
	_, err = f.bookings.FindConfirmed(ctx, class.ID(), carol)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	assert.Equal(t, []int{1}, f.positions(t, class.ID()))
	assert.Equal(t, 1, f.confirmedCount(t, class.ID()))
}

func TestBookingEngine_FIFOPromotion(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	class := f.createClass(t, testNow.Add(72*time.Hour), 1)
	holder := uuid.New()
	_, err := f.engine.BookClass(ctx, class.ID(), holder)
	require.NoError(t, err)

	waiting := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, u := range waiting {
		_, err := f.engine.BookClass(ctx, class.ID(), u)
		require.NoError(t, err)
	}

	current := holder
	for i, next := range waiting {
		require.NoError(t, f.engine.CancelBooking(ctx, class.ID(), current))

		_, err := f.bookings.FindConfirmed(ctx, class.ID(), next)
		require.NoError(t, err, "promotion %d", i)
		assert.Equal(t, contiguous(len(waiting)-i-1), f.positions(t, class.ID()))
		current = next
	}
}

func TestBookingEngine_RemoveFromWaitlist(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	class := f.createClass(t, testNow.Add(72*time.Hour), 1)
	_, err := f.engine.BookClass(ctx, class.ID(), uuid.New())
	require.NoError(t, err)

	waiting := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, u := range waiting {
		_, err := f.engine.BookClass(ctx, class.ID(), u)
		require.NoError(t, err)
	}

	require.NoError(t, f.engine.RemoveFromWaitlist(ctx, class.ID(), waiting[1]))
	assert.Equal(t, []int{1, 2}, f.positions(t, class.ID()))
	assert.Equal(t, 1, f.confirmedCount(t, class.ID()))

	last, err := f.waitlist.Find(ctx, class.ID(), waiting[2])
	require.NoError(t, err)
	assert.Equal(t, 2, last.Position())

	err = f.engine.RemoveFromWaitlist(ctx, class.ID(), waiting[1])
	assert.ErrorIs(t, err, domain.ErrWaitlistEntryNotFound)
}

func TestBookingEngine_WaitlistStaysContiguous(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	class := f.createClass(t, testNow.Add(72*time.Hour), 2)

	seated := []uuid.UUID{uuid.New(), uuid.New()}
	for _, u := range seated {
		_, err := f.engine.BookClass(ctx, class.ID(), u)
		require.NoError(t, err)
	}
	waiting := make([]uuid.UUID, 8)
	for i := range waiting {
		waiting[i] = uuid.New()
		_, err := f.engine.BookClass(ctx, class.ID(), waiting[i])
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for _, u := range []uuid.UUID{waiting[2], waiting[5], waiting[7]} {
		wg.Add(1)
		go func(u uuid.UUID) {
			defer wg.Done()
			assert.NoError(t, f.engine.RemoveFromWaitlist(ctx, class.ID(), u))
		}(u)
	}
	for _, u := range seated {
		wg.Add(1)
		go func(u uuid.UUID) {
			defer wg.Done()
			assert.NoError(t, f.engine.CancelBooking(ctx, class.ID(), u))
		}(u)
	}
	wg.Wait()

	assert.Equal(t, 2, f.confirmedCount(t, class.ID()))
	assert.Equal(t, contiguous(3), f.positions(t, class.ID()))
}

func TestBookingEngine_RuleUpdateAppliesToNextDecision(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	class := f.createClass(t, testNow.Add(72*time.Hour), 1)
	_, err := f.engine.BookClass(ctx, class.ID(), uuid.New())
	require.NoError(t, err)

	require.NoError(t, f.rules.Set(ctx, domain.RuleMaxWaitlistSize, "0"))

	_, err = f.engine.BookClass(ctx, class.ID(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrWaitlistFull)
}

func TestBookingEngine_CancelClass(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	class := f.createClass(t, testNow.Add(72*time.Hour), 1)
	seated, waiting := uuid.New(), uuid.New()
	_, err := f.engine.BookClass(ctx, class.ID(), seated)
	require.NoError(t, err)
	_, err = f.engine.BookClass(ctx, class.ID(), waiting)
	require.NoError(t, err)

	require.NoError(t, f.engine.CancelClass(ctx, class.ID()))

	reloaded, err := f.classes.FindByID(ctx, class.ID())
	require.NoError(t, err)
	assert.True(t, reloaded.IsCancelled())
	assert.Zero(t, f.confirmedCount(t, class.ID()))
	assert.Empty(t, f.positions(t, class.ID()))

	history, err := f.bookings.ListByClass(ctx, class.ID())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.BookingStatusCancelled, history[0].Status())

	msgs, err := f.outbox.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	last := msgs[len(msgs)-1]
	require.Equal(t, domain.RoutingKeyClassCancelled, last.RoutingKey)
	var payload struct {
		AffectedUsers   []uuid.UUID `json:"affected_users"`
		WaitlistedUsers []uuid.UUID `json:"waitlisted_users"`
	}
	require.NoError(t, json.Unmarshal(last.Payload, &payload))
	assert.Equal(t, []uuid.UUID{seated}, payload.AffectedUsers)
	assert.Equal(t, []uuid.UUID{waiting}, payload.WaitlistedUsers)

	assert.ErrorIs(t, f.engine.CancelClass(ctx, class.ID()), domain.ErrClassAlreadyCancelled)

	_, err = f.engine.BookClass(ctx, class.ID(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotBookable)
}
