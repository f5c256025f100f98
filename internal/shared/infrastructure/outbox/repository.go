package outbox

import (
	"context"
	"time"
)

// Writer appends messages. The booking engine calls it inside the unit of
// work that changes the class, so events commit with the state they
// describe.
type Writer interface {
	Save(ctx context.Context, msg *Message) error
	// SaveBatch joins the transaction in ctx when there is one and opens
	// its own otherwise.
	SaveBatch(ctx context.Context, msgs []*Message) error
}

// Repository is the full outbox store: the Writer side plus what the
// Processor and the operator commands need.
type Repository interface {
	Writer

	// GetUnpublished returns due messages that are neither published nor
	// dead-lettered, oldest first.
	GetUnpublished(ctx context.Context, limit int) ([]*Message, error)
	MarkPublished(ctx context.Context, id int64) error
	// MarkFailed bumps the retry count and schedules the next attempt.
	MarkFailed(ctx context.Context, id int64, err string, nextRetryAt time.Time) error
	MarkDead(ctx context.Context, id int64, reason string) error

	// GetFailed returns due messages that failed at least once and have
	// fewer than maxRetries attempts.
	GetFailed(ctx context.Context, maxRetries, limit int) ([]*Message, error)
	// DeleteOld purges messages published more than olderThanDays ago.
	DeleteOld(ctx context.Context, olderThanDays int) (int64, error)
}
