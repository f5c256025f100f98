package queries

import (
	"context"
	"time"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
)

// ListClassesQuery lists classes starting in [From, To).
type ListClassesQuery struct {
	From time.Time
	To   time.Time
}

// ListClassesHandler handles the ListClassesQuery.
type ListClassesHandler struct {
	classRepo    domain.ClassRepository
	bookingRepo  domain.BookingRepository
	waitlistRepo domain.WaitlistRepository
}

// NewListClassesHandler creates a new ListClassesHandler.
func NewListClassesHandler(
	classRepo domain.ClassRepository,
	bookingRepo domain.BookingRepository,
	waitlistRepo domain.WaitlistRepository,
) *ListClassesHandler {
	return &ListClassesHandler{
		classRepo:    classRepo,
		bookingRepo:  bookingRepo,
		waitlistRepo: waitlistRepo,
	}
}

// Handle executes the ListClassesQuery.
func (h *ListClassesHandler) Handle(ctx context.Context, query ListClassesQuery) ([]ClassAvailabilityDTO, error) {
	classes, err := h.classRepo.List(ctx, query.From, query.To)
	if err != nil {
		return nil, err
	}

	dtos := make([]ClassAvailabilityDTO, 0, len(classes))
	for _, class := range classes {
		confirmed, err := h.bookingRepo.CountConfirmed(ctx, class.ID())
		if err != nil {
			return nil, err
		}
		waiting, err := h.waitlistRepo.Count(ctx, class.ID())
		if err != nil {
			return nil, err
		}
		dtos = append(dtos, *toAvailabilityDTO(class, confirmed, waiting))
	}
	return dtos, nil
}
