package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
	"github.com/felixgeelhaar/classbook/internal/booking/infrastructure/persistence"
	"github.com/felixgeelhaar/classbook/internal/booking/infrastructure/rules"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/database/postgres"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/classbook/pkg/observability"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type engineFixture struct {
	engine   *BookingEngine
	conn     database.Connection
	classes  *persistence.ClassRepository
	bookings *persistence.BookingRepository
	waitlist *persistence.WaitlistRepository
	outbox   *outbox.SQLRepository
	rules    *rules.Store
	metrics  *observability.InMemoryMetrics
	clock    *testClock
}

// newEngineFixture wires the engine over a migrated SQLite database.
func newEngineFixture(t *testing.T, opts ...Option) *engineFixture {
	t.Helper()
	ctx := context.Background()

	conn, err := sqlite.NewConnection(ctx, database.Config{SQLitePath: filepath.Join(t.TempDir(), "engine.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return newEngineFixtureOn(t, conn, opts...)
}

// newPostgresEngineFixture wires the engine over TEST_DATABASE_URL and skips
// when it is unset. Classes created through the fixture are deleted on
// cleanup, which cascades to their bookings and waitlists.
func newPostgresEngineFixture(t *testing.T, opts ...Option) *engineFixture {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	conn, err := postgres.NewConnection(ctx, database.Config{URL: url, MaxConns: 16})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	base := []Option{
		WithConflictClassifier(database.IsSerializationFailure),
		WithRetryPolicy(RetryPolicy{MaxAttempts: 50, BaseDelay: time.Millisecond, MaxDelay: 20 * time.Millisecond}),
	}
	return newEngineFixtureOn(t, conn, append(base, opts...)...)
}

func newEngineFixtureOn(t *testing.T, conn database.Connection, opts ...Option) *engineFixture {
	t.Helper()
	require.NoError(t, migrations.Run(context.Background(), conn))

	f := &engineFixture{
		conn:     conn,
		classes:  persistence.NewClassRepository(conn),
		bookings: persistence.NewBookingRepository(conn),
		waitlist: persistence.NewWaitlistRepository(conn),
		outbox:   outbox.NewSQLRepository(conn),
		rules:    rules.NewStore(persistence.NewRuleRepository(conn), nil),
		metrics:  observability.NewInMemoryMetrics(),
		clock:    &testClock{now: testNow},
	}

	base := []Option{
		WithClock(f.clock.Now),
		WithMetrics(f.metrics),
		WithRetryPolicy(RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}),
	}
	f.engine = NewBookingEngine(
		database.NewUnitOfWork(conn),
		f.classes,
		f.bookings,
		f.waitlist,
		f.outbox,
		f.rules,
		append(base, opts...)...,
	)
	return f
}

func (f *engineFixture) createClass(t *testing.T, start time.Time, capacity int) *domain.FitnessClass {
	t.Helper()
	class, err := domain.NewFitnessClass(domain.ClassDetails{
		LocationID: uuid.New(),
		CoachID:    uuid.New(),
		Name:       "HIIT",
		ClassType:  "hiit",
		Room:       "Main",
		StartTime:  start,
		EndTime:    start.Add(45 * time.Minute),
		Capacity:   capacity,
	}, testNow)
	require.NoError(t, err)
	require.NoError(t, f.classes.Save(context.Background(), class))
	t.Cleanup(func() {
		_, _ = f.conn.Exec(context.Background(), `DELETE FROM fitness_classes WHERE id = ?`, class.ID())
	})
	return class
}

func (f *engineFixture) confirmedCount(t *testing.T, classID uuid.UUID) int {
	t.Helper()
	n, err := f.bookings.CountConfirmed(context.Background(), classID)
	require.NoError(t, err)
	return n
}

func (f *engineFixture) positions(t *testing.T, classID uuid.UUID) []int {
	t.Helper()
	entries, err := f.waitlist.ListByClass(context.Background(), classID)
	require.NoError(t, err)
	out := make([]int, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Position())
	}
	return out
}

func (f *engineFixture) routingKeys(t *testing.T) []string {
	t.Helper()
	msgs, err := f.outbox.GetUnpublished(context.Background(), 1000)
	require.NoError(t, err)
	keys := make([]string, 0, len(msgs))
	for _, m := range msgs {
		keys = append(keys, m.RoutingKey)
	}
	return keys
}

func contiguous(n int) []int {
	out := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, i)
	}
	return out
}
