package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// RuleKey names a business rule that can be changed at runtime.
type RuleKey string

const (
	RuleCancellationWindowHours RuleKey = "cancellation_window_hours"
	RuleMaxWaitlistSize         RuleKey = "max_waitlist_size"
	RuleMaxBookingsPerDay       RuleKey = "max_bookings_per_user_per_day"
)

// RuleKeys lists every known rule in display order.
var RuleKeys = []RuleKey{
	RuleCancellationWindowHours,
	RuleMaxWaitlistSize,
	RuleMaxBookingsPerDay,
}

// ParseRuleKey validates a rule name.
func ParseRuleKey(raw string) (RuleKey, error) {
	key := RuleKey(strings.TrimSpace(raw))
	for _, known := range RuleKeys {
		if key == known {
			return key, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRuleKey, raw)
}

// Rules is a snapshot of the rule values one decision is made with.
type Rules struct {
	CancellationWindow time.Duration
	MaxWaitlistSize    int
	MaxBookingsPerDay  int
}

// DefaultRules returns the values used until a rule is configured.
func DefaultRules() Rules {
	return Rules{
		CancellationWindow: 24 * time.Hour,
		MaxWaitlistSize:    20,
		MaxBookingsPerDay:  3,
	}
}

// With returns a copy of r with key set from raw. On error r is unchanged and
// the error wraps ErrInvalidRuleValue.
func (r Rules) With(key RuleKey, raw string) (Rules, error) {
	value := strings.TrimSpace(raw)
	switch key {
	case RuleCancellationWindowHours:
		window, err := parseWindow(value)
		if err != nil {
			return r, fmt.Errorf("%w: %s=%q: %v", ErrInvalidRuleValue, key, raw, err)
		}
		r.CancellationWindow = window
	case RuleMaxWaitlistSize, RuleMaxBookingsPerDay:
		n, err := strconv.Atoi(value)
		if err != nil {
			return r, fmt.Errorf("%w: %s=%q: not an integer", ErrInvalidRuleValue, key, raw)
		}
		if n < 0 {
			return r, fmt.Errorf("%w: %s=%q: must not be negative", ErrInvalidRuleValue, key, raw)
		}
		if key == RuleMaxWaitlistSize {
			r.MaxWaitlistSize = n
		} else {
			r.MaxBookingsPerDay = n
		}
	default:
		return r, fmt.Errorf("%w: %q", ErrUnknownRuleKey, key)
	}
	return r, nil
}

// Value formats the current value of key the way it is stored.
func (r Rules) Value(key RuleKey) string {
	switch key {
	case RuleCancellationWindowHours:
		if r.CancellationWindow%time.Hour == 0 {
			return strconv.FormatInt(int64(r.CancellationWindow/time.Hour), 10)
		}
		return r.CancellationWindow.String()
	case RuleMaxWaitlistSize:
		return strconv.Itoa(r.MaxWaitlistSize)
	case RuleMaxBookingsPerDay:
		return strconv.Itoa(r.MaxBookingsPerDay)
	default:
		return ""
	}
}

// parseWindow accepts a whole number of hours or a duration such as "90m".
func parseWindow(value string) (time.Duration, error) {
	var window time.Duration
	if hours, err := strconv.ParseInt(value, 10, 64); err == nil {
		if hours < 0 {
			return 0, errors.New("must not be negative")
		}
		if hours > math.MaxInt64/int64(time.Hour) {
			return 0, errors.New("out of range")
		}
		window = time.Duration(hours) * time.Hour
	} else if errors.Is(err, strconv.ErrRange) {
		return 0, errors.New("out of range")
	} else {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, errors.New("want hours or a duration")
		}
		window = d
	}
	if window < 0 {
		return 0, errors.New("must not be negative")
	}
	return window, nil
}

// RuleReader hands out rule snapshots. The engine takes one per attempt.
type RuleReader interface {
	Get(ctx context.Context) Rules
}

// RuleRepository persists accepted rule values.
type RuleRepository interface {
	// Load returns every stored value keyed by rule.
	Load(ctx context.Context) (map[RuleKey]string, error)

	// Save stores one value.
	Save(ctx context.Context, key RuleKey, value string, updatedAt time.Time) error
}
