package queries

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
)

// ListWaitlistEntriesQuery lists the classes a user is waiting for.
type ListWaitlistEntriesQuery struct {
	UserID uuid.UUID
}

// ListWaitlistEntriesHandler handles the ListWaitlistEntriesQuery.
type ListWaitlistEntriesHandler struct {
	waitlistRepo domain.WaitlistRepository
}

// NewListWaitlistEntriesHandler creates a new ListWaitlistEntriesHandler.
func NewListWaitlistEntriesHandler(waitlistRepo domain.WaitlistRepository) *ListWaitlistEntriesHandler {
	return &ListWaitlistEntriesHandler{waitlistRepo: waitlistRepo}
}

// Handle returns the user's entries, most recent first.
func (h *ListWaitlistEntriesHandler) Handle(ctx context.Context, query ListWaitlistEntriesQuery) ([]*domain.WaitlistEntry, error) {
	return h.waitlistRepo.ListByUser(ctx, query.UserID)
}
