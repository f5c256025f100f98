package queries

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
)

// ClassAvailabilityDTO is a point-in-time view of a class's seats.
type ClassAvailabilityDTO struct {
	ClassID      uuid.UUID
	Name         string
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	Status       string
	Capacity     int
	Confirmed    int
	WaitlistSize int
	SeatsLeft    int
}

// GetClassAvailabilityQuery contains the parameters for reading availability.
type GetClassAvailabilityQuery struct {
	ClassID uuid.UUID
}

// GetClassAvailabilityHandler handles the GetClassAvailabilityQuery.
type GetClassAvailabilityHandler struct {
	classRepo    domain.ClassRepository
	bookingRepo  domain.BookingRepository
	waitlistRepo domain.WaitlistRepository
}

// NewGetClassAvailabilityHandler creates a new GetClassAvailabilityHandler.
func NewGetClassAvailabilityHandler(
	classRepo domain.ClassRepository,
	bookingRepo domain.BookingRepository,
	waitlistRepo domain.WaitlistRepository,
) *GetClassAvailabilityHandler {
	return &GetClassAvailabilityHandler{
		classRepo:    classRepo,
		bookingRepo:  bookingRepo,
		waitlistRepo: waitlistRepo,
	}
}

// Handle executes the GetClassAvailabilityQuery.
func (h *GetClassAvailabilityHandler) Handle(ctx context.Context, query GetClassAvailabilityQuery) (*ClassAvailabilityDTO, error) {
	class, err := h.classRepo.FindByID(ctx, query.ClassID)
	if err != nil {
		return nil, err
	}

	confirmed, err := h.bookingRepo.CountConfirmed(ctx, class.ID())
	if err != nil {
		return nil, err
	}
	waiting, err := h.waitlistRepo.Count(ctx, class.ID())
	if err != nil {
		return nil, err
	}

	return toAvailabilityDTO(class, confirmed, waiting), nil
}

func toAvailabilityDTO(class *domain.FitnessClass, confirmed, waiting int) *ClassAvailabilityDTO {
	left := class.Capacity() - confirmed
	if left < 0 || class.IsCancelled() {
		left = 0
	}
	return &ClassAvailabilityDTO{
		ClassID:      class.ID(),
		Name:         class.Name(),
		StartTime:    class.StartTime(),
		EndTime:      class.EndTime(),
		Duration:     class.Duration(),
		Status:       string(class.Status()),
		Capacity:     class.Capacity(),
		Confirmed:    confirmed,
		WaitlistSize: waiting,
		SeatsLeft:    left,
	}
}
