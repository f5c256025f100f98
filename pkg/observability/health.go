package observability

import (
	"context"
	"sort"
	"sync"
	"time"
)

// HealthStatus is the state of one dependency or of the whole process.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// CheckResult is the outcome of one probe.
type CheckResult struct {
	Status   HealthStatus `json:"status"`
	Error    string       `json:"error,omitempty"`
	Duration string       `json:"duration"`
}

// HealthReport is the combined outcome of every registered probe.
type HealthReport struct {
	Status    HealthStatus           `json:"status"`
	CheckedAt time.Time              `json:"checked_at"`
	Checks    map[string]CheckResult `json:"checks"`
}

type registeredCheck struct {
	check    HealthCheck
	critical bool
}

// HealthRegistry runs readiness probes. A failing critical probe makes the
// process unhealthy; any other failure only degrades it.
type HealthRegistry struct {
	mu     sync.RWMutex
	checks map[string]registeredCheck
}

// NewHealthRegistry creates an empty registry.
func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{checks: make(map[string]registeredCheck)}
}

// Register adds or replaces the probe called name.
func (r *HealthRegistry) Register(name string, critical bool, check HealthCheck) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = registeredCheck{check: check, critical: critical}
}

// Names returns the registered probe names in order.
func (r *HealthRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.checks))
	for name := range r.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes every probe concurrently and combines the results.
func (r *HealthRegistry) Run(ctx context.Context) HealthReport {
	r.mu.RLock()
	checks := make(map[string]registeredCheck, len(r.checks))
	for name, c := range r.checks {
		checks[name] = c
	}
	r.mu.RUnlock()

	report := HealthReport{
		Status:    HealthStatusHealthy,
		CheckedAt: time.Now().UTC(),
		Checks:    make(map[string]CheckResult, len(checks)),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, c := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := c.check(ctx)
			result := CheckResult{Status: HealthStatusHealthy, Duration: time.Since(start).String()}
			if err != nil {
				result.Error = err.Error()
				result.Status = HealthStatusDegraded
				if c.critical {
					result.Status = HealthStatusUnhealthy
				}
			}

			mu.Lock()
			defer mu.Unlock()
			report.Checks[name] = result
			report.Status = worse(report.Status, result.Status)
		}()
	}
	wg.Wait()
	return report
}

func worse(a, b HealthStatus) HealthStatus {
	rank := map[HealthStatus]int{
		HealthStatusHealthy:   0,
		HealthStatusDegraded:  1,
		HealthStatusUnhealthy: 2,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
