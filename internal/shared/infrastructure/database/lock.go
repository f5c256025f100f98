package database

import (
	"context"
	"fmt"
)

// LockKey takes a lock on key that is held until the transaction in ctx
// commits or rolls back. Units of work that lock the same key run one after
// another.
//
// On Postgres this is a transaction-scoped advisory lock. SQLite opens every
// transaction with an immediate write lock, so writers are already serialized
// and LockKey only checks that a transaction is present.
func LockKey(ctx context.Context, conn Connection, key string) error {
	tx, ok := TxFromContext(ctx)
	if !ok {
		return ErrNoTransaction
	}

	switch conn.Driver() {
	case DriverPostgres:
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended(?, 0))`, key); err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
		return nil
	case DriverSQLite:
		return nil
	default:
		return fmt.Errorf("lock %s: unsupported driver %q", key, conn.Driver())
	}
}
