package domain

import (
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/felixgeelhaar/classbook/internal/shared/domain"
)

// BookingStatus is the state of a booking record.
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Booking holds one seat of a class for a user. CANCELLED is terminal for
// the record; booking again creates a new record.
type Booking struct {
	sharedDomain.BaseEntity
	userID      uuid.UUID
	classID     uuid.UUID
	status      BookingStatus
	bookedAt    time.Time
	cancelledAt *time.Time
	version     int
}

// NewBooking creates a confirmed booking.
func NewBooking(userID, classID uuid.UUID, now time.Time) *Booking {
	entity := sharedDomain.NewBaseEntityAt(now)
	return &Booking{
		BaseEntity: entity,
		userID:     userID,
		classID:    classID,
		status:     BookingStatusConfirmed,
		bookedAt:   entity.CreatedAt(),
	}
}

// RehydrateBooking recreates a booking from persisted state.
func RehydrateBooking(
	id, userID, classID uuid.UUID,
	status BookingStatus,
	bookedAt time.Time,
	cancelledAt *time.Time,
	version int,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		BaseEntity:  sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		userID:      userID,
		classID:     classID,
		status:      status,
		bookedAt:    bookedAt,
		cancelledAt: cancelledAt,
		version:     version,
	}
}

func (b *Booking) UserID() uuid.UUID       { return b.userID }
func (b *Booking) ClassID() uuid.UUID      { return b.classID }
func (b *Booking) Status() BookingStatus   { return b.status }
func (b *Booking) BookedAt() time.Time     { return b.bookedAt }
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }
func (b *Booking) Version() int            { return b.version }
func (b *Booking) IsConfirmed() bool       { return b.status == BookingStatusConfirmed }

// Cancel moves a confirmed booking to CANCELLED. Cancelling twice reports
// the booking as not found, so a repeated request is a no-op for the caller.
func (b *Booking) Cancel(now time.Time) error {
	if b.status != BookingStatusConfirmed {
		return ErrBookingNotFound
	}
	at := sharedDomain.NormalizeTime(now)
	b.status = BookingStatusCancelled
	b.cancelledAt = &at
	b.Touch(at)
	return nil
}

// IncrementVersion is called by the repository after a successful conditional write.
func (b *Booking) IncrementVersion() {
	b.version++
}
