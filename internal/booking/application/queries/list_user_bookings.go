package queries

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
)

// ListUserBookingsQuery lists a user's bookings. Cancelled ones are left out
// unless IncludeCancelled is set.
type ListUserBookingsQuery struct {
	UserID           uuid.UUID
	IncludeCancelled bool
}

// ListUserBookingsHandler handles the ListUserBookingsQuery.
type ListUserBookingsHandler struct {
	bookingRepo domain.BookingRepository
}

// NewListUserBookingsHandler creates a new ListUserBookingsHandler.
func NewListUserBookingsHandler(bookingRepo domain.BookingRepository) *ListUserBookingsHandler {
	return &ListUserBookingsHandler{bookingRepo: bookingRepo}
}

// Handle returns the user's bookings, most recent first.
func (h *ListUserBookingsHandler) Handle(ctx context.Context, query ListUserBookingsQuery) ([]*domain.Booking, error) {
	bookings, err := h.bookingRepo.ListByUser(ctx, query.UserID)
	if err != nil || query.IncludeCancelled {
		return bookings, err
	}

	confirmed := bookings[:0]
	for _, b := range bookings {
		if b.IsConfirmed() {
			confirmed = append(confirmed, b)
		}
	}
	return confirmed, nil
}
