package domain

import (
	"errors"
	"fmt"
)

// Not found.
var (
	ErrClassNotFound         = errors.New("class not found")
	ErrBookingNotFound       = errors.New("booking not found")
	ErrWaitlistEntryNotFound = errors.New("waitlist entry not found")
)

// Business-rule rejections. They are returned to the caller as is and never retried.
var (
	ErrAlreadyBooked            = errors.New("user already has a confirmed booking for this class")
	ErrAlreadyWaitlisted        = fmt.Errorf("%w: user is already on the waitlist", ErrAlreadyBooked)
	ErrScheduleConflict         = errors.New("user has a confirmed booking that overlaps this class")
	ErrDailyLimitExceeded       = errors.New("daily booking limit reached")
	ErrWaitlistFull             = errors.New("waitlist is full")
	ErrNotBookable              = errors.New("class is not open for booking")
	ErrClassAlreadyCancelled    = fmt.Errorf("%w: class is cancelled", ErrNotBookable)
	ErrCancellationWindowClosed = errors.New("cancellation window has closed")
)

// Class validation.
var (
	ErrInvalidTimeRange = errors.New("class end time must be after start time")
	ErrInvalidCapacity  = errors.New("class capacity must be positive")
	ErrInvalidPosition  = errors.New("waitlist position must be positive")
)

// Rules.
var (
	ErrInvalidRuleValue = errors.New("invalid rule value")
	ErrUnknownRuleKey   = errors.New("unknown rule key")
)

// Concurrency.
var (
	// ErrConcurrentModification is returned by a compare-and-swap write whose
	// expected version no longer matches. The engine retries on it.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrTransientConflict is returned once the engine gives up retrying.
	// The whole operation is safe to retry.
	ErrTransientConflict = errors.New("transient conflict, retry the request")
)

var notFoundErrors = []error{
	ErrClassNotFound,
	ErrBookingNotFound,
	ErrWaitlistEntryNotFound,
}

var rejectionErrors = []error{
	ErrAlreadyBooked,
	ErrScheduleConflict,
	ErrDailyLimitExceeded,
	ErrWaitlistFull,
	ErrNotBookable,
	ErrCancellationWindowClosed,
}

// IsNotFound reports whether err is one of the not-found kinds.
func IsNotFound(err error) bool {
	return isAny(err, notFoundErrors)
}

// IsRejection reports whether err is a business-rule rejection.
func IsRejection(err error) bool {
	return isAny(err, rejectionErrors)
}

// IsRetryable reports whether the caller may retry the whole operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientConflict) || errors.Is(err, ErrConcurrentModification)
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
