package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/migrations"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// setupTestDB opens a file-backed SQLite database with the schema applied.
func setupTestDB(t *testing.T) database.Connection {
	t.Helper()
	ctx := context.Background()

	conn, err := sqlite.NewConnection(ctx, database.Config{SQLitePath: filepath.Join(t.TempDir(), "booking.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, migrations.Run(ctx, conn))
	return conn
}

func createTestClass(t *testing.T, repo *ClassRepository, start time.Time, capacity int) *domain.FitnessClass {
	t.Helper()

	class, err := domain.NewFitnessClass(domain.ClassDetails{
		LocationID: uuid.New(),
		Name:       "Spin",
		ClassType:  "cycling",
		Room:       "Room 1",
		StartTime:  start,
		EndTime:    start.Add(45 * time.Minute),
		Capacity:   capacity,
	}, testNow)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), class))
	return class
}
