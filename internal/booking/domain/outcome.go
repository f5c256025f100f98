package domain

// OutcomeKind tells a booked seat from a waitlist place.
type OutcomeKind string

const (
	OutcomeBooked     OutcomeKind = "BOOKED"
	OutcomeWaitlisted OutcomeKind = "WAITLISTED"
)

// BookingOutcome is the result of a booking request. Exactly one of Booking
// and Entry is set, matching Kind.
type BookingOutcome struct {
	Kind    OutcomeKind
	Booking *Booking
	Entry   *WaitlistEntry
}

// Booked returns the outcome for a granted seat.
func Booked(b *Booking) *BookingOutcome {
	return &BookingOutcome{Kind: OutcomeBooked, Booking: b}
}

// Waitlisted returns the outcome for a waitlist place.
func Waitlisted(e *WaitlistEntry) *BookingOutcome {
	return &BookingOutcome{Kind: OutcomeWaitlisted, Entry: e}
}

// IsBooked reports whether a seat was granted.
func (o *BookingOutcome) IsBooked() bool {
	return o.Kind == OutcomeBooked
}
