package domain

import (
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/felixgeelhaar/classbook/internal/shared/domain"
)

// ClassStatus is the lifecycle state of a class.
type ClassStatus string

const (
	ClassStatusActive    ClassStatus = "ACTIVE"
	ClassStatusCancelled ClassStatus = "CANCELLED"
)

// ClassDetails are the descriptive attributes of a class, set by admin tooling.
type ClassDetails struct {
	LocationID uuid.UUID
	CoachID    uuid.UUID
	Name       string
	ClassType  string
	Room       string
	StartTime  time.Time
	EndTime    time.Time
	Capacity   int
}

// FitnessClass is a time-boxed class with a fixed number of seats. It is the
// aggregate whose version guards every change to its bookings and waitlist.
type FitnessClass struct {
	sharedDomain.BaseAggregateRoot
	details ClassDetails
	status  ClassStatus
}

// NewFitnessClass creates an active class.
func NewFitnessClass(details ClassDetails, now time.Time) (*FitnessClass, error) {
	details.StartTime = sharedDomain.NormalizeTime(details.StartTime)
	details.EndTime = sharedDomain.NormalizeTime(details.EndTime)

	if !details.EndTime.After(details.StartTime) {
		return nil, ErrInvalidTimeRange
	}
	if details.Capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	return &FitnessClass{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(sharedDomain.NewBaseEntityAt(now)),
		details:           details,
		status:            ClassStatusActive,
	}, nil
}

// RehydrateFitnessClass recreates a class from persisted state.
func RehydrateFitnessClass(
	id uuid.UUID,
	details ClassDetails,
	status ClassStatus,
	version int,
	createdAt, updatedAt time.Time,
) *FitnessClass {
	return &FitnessClass{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
			version,
		),
		details: details,
		status:  status,
	}
}

func (c *FitnessClass) Details() ClassDetails   { return c.details }
func (c *FitnessClass) LocationID() uuid.UUID   { return c.details.LocationID }
func (c *FitnessClass) CoachID() uuid.UUID      { return c.details.CoachID }
func (c *FitnessClass) Name() string            { return c.details.Name }
func (c *FitnessClass) StartTime() time.Time    { return c.details.StartTime }
func (c *FitnessClass) EndTime() time.Time      { return c.details.EndTime }
func (c *FitnessClass) Capacity() int           { return c.details.Capacity }
func (c *FitnessClass) Status() ClassStatus     { return c.status }
func (c *FitnessClass) IsCancelled() bool       { return c.status == ClassStatusCancelled }
func (c *FitnessClass) Duration() time.Duration { return c.details.EndTime.Sub(c.details.StartTime) }

// CheckBookable returns ErrNotBookable (or ErrClassAlreadyCancelled) unless
// the class is active and has not started.
func (c *FitnessClass) CheckBookable(now time.Time) error {
	if c.status == ClassStatusCancelled {
		return ErrClassAlreadyCancelled
	}
	if c.status != ClassStatusActive || !c.details.StartTime.After(now) {
		return ErrNotBookable
	}
	return nil
}

// CheckCancellable returns ErrCancellationWindowClosed unless now is more
// than window before the start.
func (c *FitnessClass) CheckCancellable(now time.Time, window time.Duration) error {
	if c.details.StartTime.Sub(now) <= window {
		return ErrCancellationWindowClosed
	}
	return nil
}

// BookingDay returns the UTC calendar day the class starts on, as [from, to).
func (c *FitnessClass) BookingDay() (time.Time, time.Time) {
	start := c.details.StartTime.UTC()
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 0, 1)
}

// Cancel moves the class to CANCELLED. The caller cascades to bookings and
// the waitlist and passes the affected users for the event.
func (c *FitnessClass) Cancel(now time.Time, affectedUsers, waitlistedUsers []uuid.UUID) error {
	if c.status == ClassStatusCancelled {
		return ErrClassAlreadyCancelled
	}
	c.status = ClassStatusCancelled
	c.Touch(now)
	c.AddDomainEvent(NewClassCancelled(c, affectedUsers, waitlistedUsers, now))
	return nil
}

// RecordBooked records a confirmed seat. confirmed is the seat count after
// the booking; filling the last seat also records ClassFull.
func (c *FitnessClass) RecordBooked(b *Booking, confirmed, waitlistSize int, now time.Time) {
	c.AddDomainEvent(NewClassBooked(c, b, now))
	if confirmed >= c.details.Capacity {
		c.AddDomainEvent(NewClassFull(c, waitlistSize, now))
	}
}

// RecordCancelled records a user cancellation.
func (c *FitnessClass) RecordCancelled(b *Booking, now time.Time) {
	c.AddDomainEvent(NewBookingCancelled(c, b, now))
}

// RecordPromoted records the promotion of a waitlisted user into a freed seat.
func (c *FitnessClass) RecordPromoted(b *Booking, from *WaitlistEntry, now time.Time) {
	c.AddDomainEvent(NewWaitlistPromoted(c, b, from, now))
}
