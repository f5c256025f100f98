package domain

import (
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/felixgeelhaar/classbook/internal/shared/domain"
)

const (
	AggregateType = "FitnessClass"

	RoutingKeyClassBooked      = "booking.class.booked"
	RoutingKeyBookingCancelled = "booking.booking.cancelled"
	RoutingKeyWaitlistPromoted = "booking.waitlist.promoted"
	RoutingKeyClassFull        = "booking.class.full"
	RoutingKeyClassCancelled   = "booking.class.cancelled"
)

// ClassBooked is emitted when a user gets a seat.
type ClassBooked struct {
	sharedDomain.BaseEvent
	BookingID  uuid.UUID `json:"booking_id"`
	UserID     uuid.UUID `json:"user_id"`
	LocationID uuid.UUID `json:"location_id"`
	ClassName  string    `json:"class_name"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}

// NewClassBooked creates a ClassBooked event.
func NewClassBooked(class *FitnessClass, b *Booking, now time.Time) *ClassBooked {
	return &ClassBooked{
		BaseEvent:  sharedDomain.NewBaseEvent(class.ID(), AggregateType, RoutingKeyClassBooked, now),
		BookingID:  b.ID(),
		UserID:     b.UserID(),
		LocationID: class.LocationID(),
		ClassName:  class.Name(),
		StartTime:  class.StartTime(),
		EndTime:    class.EndTime(),
	}
}

// BookingCancelled is emitted when a user gives up a seat.
type BookingCancelled struct {
	sharedDomain.BaseEvent
	BookingID   uuid.UUID `json:"booking_id"`
	UserID      uuid.UUID `json:"user_id"`
	ClassName   string    `json:"class_name"`
	StartTime   time.Time `json:"start_time"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// NewBookingCancelled creates a BookingCancelled event.
func NewBookingCancelled(class *FitnessClass, b *Booking, now time.Time) *BookingCancelled {
	cancelledAt := sharedDomain.NormalizeTime(now)
	if b.CancelledAt() != nil {
		cancelledAt = *b.CancelledAt()
	}
	return &BookingCancelled{
		BaseEvent:   sharedDomain.NewBaseEvent(class.ID(), AggregateType, RoutingKeyBookingCancelled, now),
		BookingID:   b.ID(),
		UserID:      b.UserID(),
		ClassName:   class.Name(),
		StartTime:   class.StartTime(),
		CancelledAt: cancelledAt,
	}
}

// WaitlistPromoted is emitted when the head of the waitlist takes a freed seat.
type WaitlistPromoted struct {
	sharedDomain.BaseEvent
	BookingID    uuid.UUID `json:"booking_id"`
	UserID       uuid.UUID `json:"user_id"`
	EntryID      uuid.UUID `json:"waitlist_entry_id"`
	FromPosition int       `json:"from_position"`
	ClassName    string    `json:"class_name"`
	StartTime    time.Time `json:"start_time"`
}

// NewWaitlistPromoted creates a WaitlistPromoted event.
func NewWaitlistPromoted(class *FitnessClass, b *Booking, from *WaitlistEntry, now time.Time) *WaitlistPromoted {
	return &WaitlistPromoted{
		BaseEvent:    sharedDomain.NewBaseEvent(class.ID(), AggregateType, RoutingKeyWaitlistPromoted, now),
		BookingID:    b.ID(),
		UserID:       b.UserID(),
		EntryID:      from.ID(),
		FromPosition: from.Position(),
		ClassName:    class.Name(),
		StartTime:    class.StartTime(),
	}
}

// ClassFull is emitted when the last seat of a class is taken.
type ClassFull struct {
	sharedDomain.BaseEvent
	ClassName    string    `json:"class_name"`
	Capacity     int       `json:"capacity"`
	WaitlistSize int       `json:"waitlist_size"`
	StartTime    time.Time `json:"start_time"`
}

// NewClassFull creates a ClassFull event.
func NewClassFull(class *FitnessClass, waitlistSize int, now time.Time) *ClassFull {
	return &ClassFull{
		BaseEvent:    sharedDomain.NewBaseEvent(class.ID(), AggregateType, RoutingKeyClassFull, now),
		ClassName:    class.Name(),
		Capacity:     class.Capacity(),
		WaitlistSize: waitlistSize,
		StartTime:    class.StartTime(),
	}
}

// ClassCancelled is emitted when a class is called off. It lists every user
// whose booking or waitlist place was dropped.
type ClassCancelled struct {
	sharedDomain.BaseEvent
	ClassName       string      `json:"class_name"`
	StartTime       time.Time   `json:"start_time"`
	AffectedUsers   []uuid.UUID `json:"affected_users"`
	WaitlistedUsers []uuid.UUID `json:"waitlisted_users"`
}

// NewClassCancelled creates a ClassCancelled event.
func NewClassCancelled(class *FitnessClass, affectedUsers, waitlistedUsers []uuid.UUID, now time.Time) *ClassCancelled {
	if affectedUsers == nil {
		affectedUsers = []uuid.UUID{}
	}
	if waitlistedUsers == nil {
		waitlistedUsers = []uuid.UUID{}
	}
	return &ClassCancelled{
		BaseEvent:       sharedDomain.NewBaseEvent(class.ID(), AggregateType, RoutingKeyClassCancelled, now),
		ClassName:       class.Name(),
		StartTime:       class.StartTime(),
		AffectedUsers:   affectedUsers,
		WaitlistedUsers: waitlistedUsers,
	}
}
