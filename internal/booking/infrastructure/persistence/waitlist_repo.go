package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/database"
)

const waitlistColumns = `id, user_id, class_id, position, created_at`

// WaitlistRepository implements domain.WaitlistRepository on any database.Connection.
type WaitlistRepository struct {
	conn database.Connection
}

// NewWaitlistRepository creates a waitlist repository.
func NewWaitlistRepository(conn database.Connection) *WaitlistRepository {
	return &WaitlistRepository{conn: conn}
}

// Save inserts an entry.
func (r *WaitlistRepository) Save(ctx context.Context, entry *domain.WaitlistEntry) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO waitlist_entries (`+waitlistColumns+`)
		VALUES (?, ?, ?, ?, ?)
	`,
		entry.ID(),
		entry.UserID(),
		entry.ClassID(),
		entry.Position(),
		database.TimeArg(entry.CreatedAt()),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrAlreadyWaitlisted
		}
		return fmt.Errorf("insert waitlist entry %s: %w", entry.ID(), err)
	}
	return nil
}

// Find returns the user's entry for a class.
func (r *WaitlistRepository) Find(ctx context.Context, classID, userID uuid.UUID) (*domain.WaitlistEntry, error) {
	return r.one(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist_entries
		WHERE class_id = ? AND user_id = ?
	`, classID, userID)
}

// Head returns the entry at the front of the queue.
func (r *WaitlistRepository) Head(ctx context.Context, classID uuid.UUID) (*domain.WaitlistEntry, error) {
	return r.one(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist_entries
		WHERE class_id = ?
		ORDER BY position
		LIMIT 1
	`, classID)
}

// Count returns the waitlist length.
func (r *WaitlistRepository) Count(ctx context.Context, classID uuid.UUID) (int, error) {
	var n int
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT COUNT(*) FROM waitlist_entries WHERE class_id = ?`, classID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count waitlist: %w", err)
	}
	return n, nil
}

// MaxPosition returns the last occupied position, 0 for an empty list.
func (r *WaitlistRepository) MaxPosition(ctx context.Context, classID uuid.UUID) (int, error) {
	var n int
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM waitlist_entries WHERE class_id = ?`, classID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("max waitlist position: %w", err)
	}
	return n, nil
}

// Remove deletes the entry and closes the gap it leaves.
func (r *WaitlistRepository) Remove(ctx context.Context, entry *domain.WaitlistEntry) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	res, err := exec.Exec(ctx, `DELETE FROM waitlist_entries WHERE id = ?`, entry.ID())
	if err != nil {
		return fmt.Errorf("delete waitlist entry %s: %w", entry.ID(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete waitlist entry %s: %w", entry.ID(), err)
	}
	if n == 0 {
		return domain.ErrWaitlistEntryNotFound
	}

	_, err = exec.Exec(ctx, `
		UPDATE waitlist_entries
		SET position = position - 1
		WHERE class_id = ? AND position > ?
	`, entry.ClassID(), entry.Position())
	if err != nil {
		return fmt.Errorf("shift waitlist positions: %w", err)
	}
	return nil
}

// ListByClass returns a class's queue in order.
func (r *WaitlistRepository) ListByClass(ctx context.Context, classID uuid.UUID) ([]*domain.WaitlistEntry, error) {
	return r.list(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist_entries
		WHERE class_id = ?
		ORDER BY position
	`, classID)
}

// ListByUser returns the user's entries, most recently joined first.
func (r *WaitlistRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.WaitlistEntry, error) {
	return r.list(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist_entries
		WHERE user_id = ?
		ORDER BY created_at DESC, position, id
	`, userID)
}

// RemoveAll clears a class's waitlist.
func (r *WaitlistRepository) RemoveAll(ctx context.Context, classID uuid.UUID) ([]uuid.UUID, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	rows, err := exec.Query(ctx,
		`SELECT user_id FROM waitlist_entries WHERE class_id = ? ORDER BY position`, classID)
	if err != nil {
		return nil, fmt.Errorf("list waitlisted users: %w", err)
	}
	users, err := collectUUIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("list waitlisted users: %w", err)
	}

	if _, err := exec.Exec(ctx, `DELETE FROM waitlist_entries WHERE class_id = ?`, classID); err != nil {
		return nil, fmt.Errorf("clear waitlist: %w", err)
	}
	return users, nil
}

func (r *WaitlistRepository) one(ctx context.Context, query string, args ...any) (*domain.WaitlistEntry, error) {
	entry, err := scanEntry(database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx, query, args...))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrWaitlistEntryNotFound
		}
		return nil, fmt.Errorf("find waitlist entry: %w", err)
	}
	return entry, nil
}

func (r *WaitlistRepository) list(ctx context.Context, query string, args ...any) ([]*domain.WaitlistEntry, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.WaitlistEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan waitlist entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(row database.Row) (*domain.WaitlistEntry, error) {
	var (
		id, userID, classID uuid.UUID
		position            int
		createdAt           database.Timestamp
	)
	if err := row.Scan(&id, &userID, &classID, &position, &createdAt); err != nil {
		return nil, err
	}
	return domain.RehydrateWaitlistEntry(id, userID, classID, position, createdAt.Time), nil
}
