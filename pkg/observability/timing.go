package observability

import "time"

// Timer measures one operation and reports it as a duration series tagged
// with the operation name.
type Timer struct {
	metrics   Metrics
	operation string
	start     time.Time
}

// StartTimer starts timing operation.
func StartTimer(metrics Metrics, operation string) *Timer {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Timer{metrics: metrics, operation: operation, start: time.Now()}
}

// Stop records the elapsed time and, when err is non-nil, one error.
func (t *Timer) Stop(err error) time.Duration {
	elapsed := time.Since(t.start)
	tag := T(OperationKey, t.operation)
	t.metrics.Timing(MetricOperationDuration, elapsed, tag)
	if err != nil {
		t.metrics.Counter(MetricOperationErrors, 1, tag)
	}
	return elapsed
}
