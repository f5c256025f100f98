package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ClassRepository defines persistence operations for classes.
type ClassRepository interface {
	Save(ctx context.Context, class *FitnessClass) error

	// FindByID returns ErrClassNotFound when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*FitnessClass, error)

	// UpdateVersioned writes the class status and bumps its version if the
	// stored version still equals class.Version(); otherwise it returns
	// ErrConcurrentModification. Every change to a class's bookings or
	// waitlist ends with this call in the same transaction.
	UpdateVersioned(ctx context.Context, class *FitnessClass) error

	// List returns classes starting in [from, to), ordered by start time.
	List(ctx context.Context, from, to time.Time) ([]*FitnessClass, error)
}

// BookingRepository defines persistence operations for bookings.
type BookingRepository interface {
	// Save inserts a booking. A second confirmed booking for the same user
	// and class fails with ErrAlreadyBooked.
	Save(ctx context.Context, booking *Booking) error

	// Update writes status and cancellation time guarded by the booking
	// version; a stale version returns ErrConcurrentModification.
	Update(ctx context.Context, booking *Booking) error

	// FindConfirmed returns ErrBookingNotFound unless the user holds a
	// confirmed booking for the class.
	FindConfirmed(ctx context.Context, classID, userID uuid.UUID) (*Booking, error)

	ListByClass(ctx context.Context, classID uuid.UUID) ([]*Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Booking, error)

	// LockUser serializes the user's booking decisions until the surrounding
	// transaction ends. Overlap and daily-limit checks read bookings of other
	// classes, which the class version does not guard.
	LockUser(ctx context.Context, userID uuid.UUID) error

	// CountConfirmed returns the authoritative enrolled count.
	CountConfirmed(ctx context.Context, classID uuid.UUID) (int, error)

	// HasOverlap reports whether the user holds a confirmed booking for a
	// class whose window intersects [start, end).
	HasOverlap(ctx context.Context, userID uuid.UUID, start, end time.Time) (bool, error)

	// CountConfirmedStartingBetween counts the user's confirmed bookings for
	// classes starting in [from, to).
	CountConfirmedStartingBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error)

	// CancelAllConfirmed cancels every confirmed booking of a class and
	// returns the affected users.
	CancelAllConfirmed(ctx context.Context, classID uuid.UUID, now time.Time) ([]uuid.UUID, error)
}

// WaitlistRepository defines persistence operations for waitlist entries.
// Callers hold the class version for the whole unit of work, which is what
// keeps positions dense.
type WaitlistRepository interface {
	// Save inserts an entry. A second entry for the same user and class fails
	// with ErrAlreadyWaitlisted.
	Save(ctx context.Context, entry *WaitlistEntry) error

	// Find returns ErrWaitlistEntryNotFound when the user is not waiting.
	Find(ctx context.Context, classID, userID uuid.UUID) (*WaitlistEntry, error)

	// Head returns the entry at position 1, or ErrWaitlistEntryNotFound.
	Head(ctx context.Context, classID uuid.UUID) (*WaitlistEntry, error)

	Count(ctx context.Context, classID uuid.UUID) (int, error)
	MaxPosition(ctx context.Context, classID uuid.UUID) (int, error)

	// Remove deletes the entry and moves every later entry up by one.
	Remove(ctx context.Context, entry *WaitlistEntry) error

	// ListByClass returns entries ordered by position.
	ListByClass(ctx context.Context, classID uuid.UUID) ([]*WaitlistEntry, error)

	// ListByUser returns the user's entries, most recent first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*WaitlistEntry, error)

	// RemoveAll deletes a class's waitlist and returns the users it held.
	RemoveAll(ctx context.Context, classID uuid.UUID) ([]uuid.UUID, error)
}
