package observability

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryMetrics_Counter(t *testing.T) {
	m := NewInMemoryMetrics()

	m.Counter(MetricBookingRejected, 1, T("operation", "book_class"), T("reason", "waitlist_full"))
	m.Counter(MetricBookingRejected, 2, T("reason", "waitlist_full"), T("operation", "book_class"))
	m.Counter(MetricBookingRejected, 1, T("operation", "book_class"), T("reason", "daily_limit"))

	assert.Equal(t, int64(3), m.GetCounter(MetricBookingRejected, T("operation", "book_class"), T("reason", "waitlist_full")))
	assert.Equal(t, int64(1), m.GetCounter(MetricBookingRejected, T("reason", "daily_limit"), T("operation", "book_class")))
	assert.Zero(t, m.GetCounter(MetricBookingRejected))
}

func TestInMemoryMetrics_Timing(t *testing.T) {
	m := NewInMemoryMetrics()

	m.Timing(MetricOperationDuration, 5*time.Millisecond, T("operation", "cancel_booking"))
	m.Timing(MetricOperationDuration, 7*time.Millisecond, T("operation", "cancel_booking"))

	timings := m.GetTimings(MetricOperationDuration, T("operation", "cancel_booking"))
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 7 * time.Millisecond}, timings)

	// The returned slice is a copy.
	timings[0] = 0
	assert.Equal(t, 5*time.Millisecond, m.GetTimings(MetricOperationDuration, T("operation", "cancel_booking"))[0])
}

func TestInMemoryMetrics_Snapshot(t *testing.T) {
	m := NewInMemoryMetrics()
	m.Counter(MetricBookingBooked, 1)
	m.Counter(MetricRuleUpdates, 1, T("rule_key", "max_waitlist_size"))

	snapshot := m.Snapshot()
	assert.Len(t, snapshot, 2)
	assert.Equal(t, int64(1), snapshot["classbook.booking.booked"])
	assert.Equal(t, int64(1), snapshot["classbook.rules.updates{rule_key=max_waitlist_size}"])
}

func TestInMemoryMetrics_Concurrent(t *testing.T) {
	m := NewInMemoryMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Counter(MetricBookingBooked, 1)
			m.Timing(MetricOperationDuration, time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), m.GetCounter(MetricBookingBooked))
	assert.Len(t, m.GetTimings(MetricOperationDuration), 50)
}

func TestNoopMetrics(t *testing.T) {
	var m Metrics = NoopMetrics{}
	assert.NotPanics(t, func() {
		m.Counter(MetricBookingBooked, 1)
		m.Timing(MetricOperationDuration, time.Second)
	})
}
