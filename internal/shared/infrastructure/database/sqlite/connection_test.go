package sqlite

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/database"
)

func openTestDB(t *testing.T) database.Connection {
	t.Helper()
	conn, err := NewConnection(context.Background(), database.Config{
		SQLitePath: filepath.Join(t.TempDir(), "nested", "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestDSN(t *testing.T) {
	raw := dsn("/tmp/classbook.db")
	path, query, ok := strings.Cut(raw, "?")
	require.True(t, ok)
	assert.Equal(t, "/tmp/classbook.db", path)

	params, err := url.ParseQuery(query)
	require.NoError(t, err)
	assert.Equal(t, pragmas, params["_pragma"])
	assert.Equal(t, "immediate", params.Get("_txlock"))
	assert.Equal(t, "sqlite", params.Get("_time_format"))

	assert.Contains(t, dsn("file:test.db?cache=shared"), "cache=shared&_pragma=")
}

func TestNewConnection(t *testing.T) {
	conn := openTestDB(t)

	assert.NoError(t, conn.Ping(context.Background()))
	assert.Equal(t, database.DriverSQLite, conn.Driver())

	var fk int
	require.NoError(t, conn.QueryRow(context.Background(), `PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestConnection_ExecAndQuery(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	_, err := conn.Exec(ctx, `CREATE TABLE rooms (id TEXT PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)

	res, err := conn.Exec(ctx, `INSERT INTO rooms (id, name) VALUES (?, ?), (?, ?)`, "1", "Studio A", "2", "Spin Room")
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var name string
	require.NoError(t, conn.QueryRow(ctx, `SELECT name FROM rooms WHERE id = ?`, "2").Scan(&name))
	assert.Equal(t, "Spin Room", name)

	rows, err := conn.Query(ctx, `SELECT name FROM rooms ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"Studio A", "Spin Room"}, names)
}

func TestConnection_Transaction(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	_, err := conn.Exec(ctx, `CREATE TABLE rooms (id TEXT PRIMARY KEY)`)
	require.NoError(t, err)

	tx, err := conn.BeginTx(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `INSERT INTO rooms (id) VALUES (?)`, "kept")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	tx, err = conn.BeginTx(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `INSERT INTO rooms (id) VALUES (?)`, "dropped")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	var count int
	require.NoError(t, conn.QueryRow(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestConnection_TimestampsCompareInSQL(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	_, err := conn.Exec(ctx, `CREATE TABLE slots (id TEXT PRIMARY KEY, starts_at DATETIME NOT NULL)`)
	require.NoError(t, err)

	base := time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC)
	_, err = conn.Exec(ctx, `INSERT INTO slots (id, starts_at) VALUES (?, ?), (?, ?), (?, ?)`,
		"a", database.TimeArg(base),
		"b", database.TimeArg(base.Add(1500*time.Millisecond)),
		"c", database.TimeArg(base.Add(2*time.Hour)),
	)
	require.NoError(t, err)

	var count int
	err = conn.QueryRow(ctx, `SELECT COUNT(*) FROM slots WHERE starts_at > ? AND starts_at < ?`,
		database.TimeArg(base), database.TimeArg(base.Add(time.Hour)),
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var ts database.Timestamp
	require.NoError(t, conn.QueryRow(ctx, `SELECT starts_at FROM slots WHERE id = ?`, "b").Scan(&ts))
	assert.True(t, ts.Valid)
	assert.True(t, base.Add(1500*time.Millisecond).Equal(ts.Time))
}
