package outbox_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/outbox"
)

func newSQLiteRepo(t *testing.T) (*outbox.SQLRepository, database.Connection) {
	t.Helper()
	ctx := context.Background()
	conn, err := sqlite.NewConnection(ctx, database.Config{SQLitePath: filepath.Join(t.TempDir(), "outbox.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn))
	return outbox.NewSQLRepository(conn), conn
}

func sqlTestMessage(routingKey string, createdAt time.Time) *outbox.Message {
	return &outbox.Message{
		EventID:       uuid.New(),
		AggregateType: "FitnessClass",
		AggregateID:   uuid.New(),
		EventType:     routingKey,
		RoutingKey:    routingKey,
		Payload:       json.RawMessage(`{"capacity":10}`),
		Metadata:      json.RawMessage(`{"correlation_id":"` + uuid.NewString() + `"}`),
		CreatedAt:     createdAt,
	}
}

func TestSQLRepository_SaveAndGetUnpublished(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSQLiteRepo(t)
	base := time.Now().Add(-time.Minute).UTC()

	first := sqlTestMessage("booking.class.booked", base)
	second := sqlTestMessage("booking.class.full", base.Add(time.Second))
	require.NoError(t, repo.SaveBatch(ctx, []*outbox.Message{second, first}))
	assert.NotZero(t, first.ID)
	assert.NotZero(t, second.ID)

	msgs, err := repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, first.EventID, msgs[0].EventID)
	assert.Equal(t, "booking.class.full", msgs[1].RoutingKey)
	assert.JSONEq(t, `{"capacity":10}`, string(msgs[0].Payload))
	assert.True(t, first.CreatedAt.Truncate(time.Microsecond).Equal(msgs[0].CreatedAt))
	assert.Nil(t, msgs[0].PublishedAt)
	assert.Nil(t, msgs[0].LastError)
}

func TestSQLRepository_SaveBatchJoinsTransaction(t *testing.T) {
	ctx := context.Background()
	repo, conn := newSQLiteRepo(t)
	uow := database.NewUnitOfWork(conn)

	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.SaveBatch(txCtx, []*outbox.Message{sqlTestMessage("booking.class.booked", time.Now())}))
	require.NoError(t, uow.Rollback(txCtx))

	msgs, err := repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSQLRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSQLiteRepo(t)

	published := sqlTestMessage("booking.class.booked", time.Now().Add(-time.Minute))
	failed := sqlTestMessage("booking.waitlist.promoted", time.Now().Add(-time.Minute))
	dead := sqlTestMessage("booking.class.cancelled", time.Now().Add(-time.Minute))
	require.NoError(t, repo.SaveBatch(ctx, []*outbox.Message{published, failed, dead}))

	require.NoError(t, repo.MarkPublished(ctx, published.ID))
	require.NoError(t, repo.MarkFailed(ctx, failed.ID, "broker down", time.Now().Add(-time.Second)))
	require.NoError(t, repo.MarkDead(ctx, dead.ID, "max retries"))

	pending, err := repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, failed.ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].RetryCount)
	require.NotNil(t, pending[0].LastError)
	assert.Equal(t, "broker down", *pending[0].LastError)
	assert.NotNil(t, pending[0].NextRetryAt)

	retryable, err := repo.GetFailed(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, retryable, 1)

	exhausted, err := repo.GetFailed(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, exhausted)

	deleted, err := repo.DeleteOld(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestSQLRepository_FutureRetryIsNotDue(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSQLiteRepo(t)

	msg := sqlTestMessage("booking.class.full", time.Now())
	require.NoError(t, repo.Save(ctx, msg))
	require.NoError(t, repo.MarkFailed(ctx, msg.ID, "timeout", time.Now().Add(time.Hour)))

	pending, err := repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
