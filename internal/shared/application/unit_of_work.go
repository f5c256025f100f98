package application

import (
	"context"
	"errors"
)

// UnitOfWork scopes a set of repository calls to one transaction. Begin
// returns the context the repositories must be called with.
type UnitOfWork interface {
	Begin(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UnitOfWorkFunc runs inside a unit of work.
type UnitOfWorkFunc func(ctx context.Context) error

// WithUnitOfWork runs fn in a unit of work and commits it. An error or
// panic from fn rolls back instead; a failed rollback is joined to fn's
// error, which stays matchable with errors.Is.
func WithUnitOfWork(ctx context.Context, uow UnitOfWork, fn UnitOfWorkFunc) error {
	txCtx, err := uow.Begin(ctx)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if p := recover(); p != nil {
				_ = uow.Rollback(txCtx)
				panic(p)
			}
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := uow.Rollback(txCtx); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	committed = true
	return uow.Commit(txCtx)
}
