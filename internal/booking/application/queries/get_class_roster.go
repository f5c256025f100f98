package queries

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
)

// ClassRosterDTO is a class's availability with the users behind it.
type ClassRosterDTO struct {
	*ClassAvailabilityDTO
	Seats    []*domain.Booking
	Waitlist []*domain.WaitlistEntry
}

// GetClassRosterQuery contains the parameters for reading a roster.
type GetClassRosterQuery struct {
	ClassID uuid.UUID
}

// GetClassRosterHandler handles the GetClassRosterQuery.
type GetClassRosterHandler struct {
	availability *GetClassAvailabilityHandler
	bookingRepo  domain.BookingRepository
	waitlistRepo domain.WaitlistRepository
}

// NewGetClassRosterHandler creates a new GetClassRosterHandler.
func NewGetClassRosterHandler(
	availability *GetClassAvailabilityHandler,
	bookingRepo domain.BookingRepository,
	waitlistRepo domain.WaitlistRepository,
) *GetClassRosterHandler {
	return &GetClassRosterHandler{
		availability: availability,
		bookingRepo:  bookingRepo,
		waitlistRepo: waitlistRepo,
	}
}

// Handle returns confirmed seats in booking order and the waitlist by position.
func (h *GetClassRosterHandler) Handle(ctx context.Context, query GetClassRosterQuery) (*ClassRosterDTO, error) {
	dto, err := h.availability.Handle(ctx, GetClassAvailabilityQuery(query))
	if err != nil {
		return nil, err
	}

	bookings, err := h.bookingRepo.ListByClass(ctx, query.ClassID)
	if err != nil {
		return nil, err
	}
	seats := make([]*domain.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.IsConfirmed() {
			seats = append(seats, b)
		}
	}

	waitlist, err := h.waitlistRepo.ListByClass(ctx, query.ClassID)
	if err != nil {
		return nil, err
	}

	return &ClassRosterDTO{ClassAvailabilityDTO: dto, Seats: seats, Waitlist: waitlist}, nil
}
