package database

import (
	"context"
	"errors"
)

// ErrNoTransaction is returned by Commit and Rollback when ctx carries no
// transaction.
var ErrNoTransaction = errors.New("no transaction in context")

type txKey struct{}

// txScope is what a unit of work stores in the context. Only the scope
// that opened tx may finish it.
type txScope struct {
	tx    Transaction
	owner bool
}

func scopeFrom(ctx context.Context) (txScope, bool) {
	scope, ok := ctx.Value(txKey{}).(txScope)
	return scope, ok && scope.tx != nil
}

// TxFromContext returns the transaction of the enclosing unit of work.
func TxFromContext(ctx context.Context) (Transaction, bool) {
	scope, ok := scopeFrom(ctx)
	return scope.tx, ok
}

// InTransaction reports whether ctx carries a transaction.
func InTransaction(ctx context.Context) bool {
	_, ok := scopeFrom(ctx)
	return ok
}

// ExecutorFromContext returns the enclosing transaction, or conn outside a
// unit of work. Repositories call it per statement. On SQLite, using conn
// while a transaction is open deadlocks on the single connection.
func ExecutorFromContext(ctx context.Context, conn Connection) Executor {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return conn
}

// UnitOfWork opens one transaction per outermost Begin. An inner Begin
// joins it, and its Commit and Rollback do nothing, so the booking engine
// can call repositories that open their own unit.
type UnitOfWork struct {
	conn Connection
}

// NewUnitOfWork creates a UnitOfWork over conn.
func NewUnitOfWork(conn Connection) *UnitOfWork {
	return &UnitOfWork{conn: conn}
}

// Begin returns a context carrying the transaction.
func (u *UnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if tx, ok := TxFromContext(ctx); ok {
		return context.WithValue(ctx, txKey{}, txScope{tx: tx}), nil
	}
	tx, err := u.conn.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return context.WithValue(ctx, txKey{}, txScope{tx: tx, owner: true}), nil
}

// Commit commits when ctx came from the outermost Begin.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	return u.finish(ctx, Transaction.Commit)
}

// Rollback rolls back when ctx came from the outermost Begin.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	return u.finish(ctx, Transaction.Rollback)
}

func (u *UnitOfWork) finish(ctx context.Context, end func(Transaction, context.Context) error) error {
	scope, ok := scopeFrom(ctx)
	if !ok {
		return ErrNoTransaction
	}
	if !scope.owner {
		return nil
	}
	return end(scope.tx, ctx)
}
