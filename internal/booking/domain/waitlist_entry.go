package domain

import (
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/felixgeelhaar/classbook/internal/shared/domain"
)

// WaitlistEntry is a user's place in a full class's queue. The row exists
// while the user waits; promotion and withdrawal both delete it.
type WaitlistEntry struct {
	sharedDomain.BaseEntity
	userID   uuid.UUID
	classID  uuid.UUID
	position int
}

// NewWaitlistEntry creates an entry at a 1-based position.
func NewWaitlistEntry(userID, classID uuid.UUID, position int, now time.Time) (*WaitlistEntry, error) {
	if position <= 0 {
		return nil, ErrInvalidPosition
	}
	return &WaitlistEntry{
		BaseEntity: sharedDomain.NewBaseEntityAt(now),
		userID:     userID,
		classID:    classID,
		position:   position,
	}, nil
}

// RehydrateWaitlistEntry recreates an entry from persisted state.
func RehydrateWaitlistEntry(id, userID, classID uuid.UUID, position int, createdAt time.Time) *WaitlistEntry {
	return &WaitlistEntry{
		BaseEntity: sharedDomain.RehydrateBaseEntity(id, createdAt, createdAt),
		userID:     userID,
		classID:    classID,
		position:   position,
	}
}

func (w *WaitlistEntry) UserID() uuid.UUID  { return w.userID }
func (w *WaitlistEntry) ClassID() uuid.UUID { return w.classID }
func (w *WaitlistEntry) Position() int      { return w.position }
