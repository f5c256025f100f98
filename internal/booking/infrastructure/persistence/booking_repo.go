package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/database"
)

const bookingColumns = `id, user_id, class_id, status, booked_at, cancelled_at, version, created_at, updated_at`

// BookingRepository implements domain.BookingRepository on any database.Connection.
type BookingRepository struct {
	conn database.Connection
}

// NewBookingRepository creates a booking repository.
func NewBookingRepository(conn database.Connection) *BookingRepository {
	return &BookingRepository{conn: conn}
}

// Save inserts a booking.
func (r *BookingRepository) Save(ctx context.Context, b *domain.Booking) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID(),
		b.UserID(),
		b.ClassID(),
		string(b.Status()),
		database.TimeArg(b.BookedAt()),
		database.NullTimeArg(b.CancelledAt()),
		b.Version(),
		database.TimeArg(b.CreatedAt()),
		database.TimeArg(b.UpdatedAt()),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrAlreadyBooked
		}
		return fmt.Errorf("insert booking %s: %w", b.ID(), err)
	}
	return nil
}

// Update writes the booking state guarded by its version.
func (r *BookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	res, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		UPDATE bookings
		SET status = ?, cancelled_at = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`,
		string(b.Status()),
		database.NullTimeArg(b.CancelledAt()),
		database.TimeArg(b.UpdatedAt()),
		b.ID(),
		b.Version(),
	)
	if err != nil {
		return fmt.Errorf("update booking %s: %w", b.ID(), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update booking %s: %w", b.ID(), err)
	}
	if n == 0 {
		return fmt.Errorf("booking %s at version %d: %w", b.ID(), b.Version(), domain.ErrConcurrentModification)
	}

	b.IncrementVersion()
	return nil
}

// FindConfirmed returns the user's confirmed booking for a class.
func (r *BookingRepository) FindConfirmed(ctx context.Context, classID, userID uuid.UUID) (*domain.Booking, error) {
	row := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE class_id = ? AND user_id = ? AND status = ?
	`, classID, userID, string(domain.BookingStatusConfirmed))

	b, err := scanBooking(row)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return b, nil
}

// ListByClass returns every booking of a class, confirmed first, oldest first.
func (r *BookingRepository) ListByClass(ctx context.Context, classID uuid.UUID) ([]*domain.Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE class_id = ?
		ORDER BY CASE status WHEN 'CONFIRMED' THEN 0 ELSE 1 END, booked_at, id
	`, classID)
}

// ListByUser returns the user's bookings, most recent first.
func (r *BookingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_id = ?
		ORDER BY booked_at DESC, id
	`, userID)
}

// CountConfirmed counts the confirmed bookings of a class.
func (r *BookingRepository) CountConfirmed(ctx context.Context, classID uuid.UUID) (int, error) {
	var n int
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx, `
		SELECT COUNT(*) FROM bookings WHERE class_id = ? AND status = ?
	`, classID, string(domain.BookingStatusConfirmed)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return n, nil
}

// LockUser holds a per-user lock for the rest of the transaction in ctx.
func (r *BookingRepository) LockUser(ctx context.Context, userID uuid.UUID) error {
	return database.LockKey(ctx, r.conn, "classbook.user:"+userID.String())
}

// HasOverlap reports whether the user has a confirmed seat in a class that
// intersects [start, end).
func (r *BookingRepository) HasOverlap(ctx context.Context, userID uuid.UUID, start, end time.Time) (bool, error) {
	var n int
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx, `
		SELECT COUNT(*)
		FROM bookings b
		JOIN fitness_classes c ON c.id = b.class_id
		WHERE b.user_id = ?
		  AND b.status = ?
		  AND c.start_time < ?
		  AND c.end_time > ?
	`, userID, string(domain.BookingStatusConfirmed), database.TimeArg(end), database.TimeArg(start)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check overlap: %w", err)
	}
	return n > 0, nil
}

// CountConfirmedStartingBetween counts confirmed seats in classes starting in [from, to).
func (r *BookingRepository) CountConfirmedStartingBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	var n int
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx, `
		SELECT COUNT(*)
		FROM bookings b
		JOIN fitness_classes c ON c.id = b.class_id
		WHERE b.user_id = ?
		  AND b.status = ?
		  AND c.start_time >= ?
		  AND c.start_time < ?
	`, userID, string(domain.BookingStatusConfirmed), database.TimeArg(from), database.TimeArg(to)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count daily bookings: %w", err)
	}
	return n, nil
}

// CancelAllConfirmed cancels the class's confirmed bookings and returns their users.
func (r *BookingRepository) CancelAllConfirmed(ctx context.Context, classID uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	rows, err := exec.Query(ctx, `
		SELECT user_id FROM bookings
		WHERE class_id = ? AND status = ?
		ORDER BY booked_at, id
	`, classID, string(domain.BookingStatusConfirmed))
	if err != nil {
		return nil, fmt.Errorf("list confirmed users: %w", err)
	}
	users, err := collectUUIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("list confirmed users: %w", err)
	}
	if len(users) == 0 {
		return users, nil
	}

	at := database.TimeArg(now)
	_, err = exec.Exec(ctx, `
		UPDATE bookings
		SET status = ?, cancelled_at = ?, updated_at = ?, version = version + 1
		WHERE class_id = ? AND status = ?
	`, string(domain.BookingStatusCancelled), at, at, classID, string(domain.BookingStatusConfirmed))
	if err != nil {
		return nil, fmt.Errorf("cancel class bookings: %w", err)
	}
	return users, nil
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Booking, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(row database.Row) (*domain.Booking, error) {
	var (
		id, userID, classID  uuid.UUID
		status               string
		bookedAt, cancelled  database.Timestamp
		version              int
		createdAt, updatedAt database.Timestamp
	)
	if err := row.Scan(&id, &userID, &classID, &status, &bookedAt, &cancelled, &version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return domain.RehydrateBooking(
		id, userID, classID,
		domain.BookingStatus(status),
		bookedAt.Time,
		cancelled.Ptr(),
		version,
		createdAt.Time,
		updatedAt.Time,
	), nil
}
