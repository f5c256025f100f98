package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
)

// Store holds the current rule values. Readers get a copy, so one booking
// decision never sees a half-applied update.
type Store struct {
	mu     sync.RWMutex
	rules  domain.Rules
	repo   domain.RuleRepository
	logger *slog.Logger
	now    func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithInitialRules replaces the built-in defaults.
func WithInitialRules(r domain.Rules) StoreOption {
	return func(s *Store) {
		s.rules = r
	}
}

// WithClock sets the clock used to stamp updates.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a store seeded with the default rules.
func NewStore(repo domain.RuleRepository, logger *slog.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		rules:  domain.DefaultRules(),
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load applies the persisted values on top of the current ones. Values that
// no longer parse are logged and skipped.
func (s *Store) Load(ctx context.Context) error {
	values, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.rules
	for _, key := range domain.RuleKeys {
		raw, ok := values[key]
		if !ok {
			continue
		}
		applied, err := next.With(key, raw)
		if err != nil {
			s.logger.Error("ignoring stored rule value",
				"rule_key", key,
				"value", raw,
				"error", err,
			)
			continue
		}
		next = applied
	}
	s.rules = next
	return nil
}

// Get returns the current snapshot.
func (s *Store) Get(_ context.Context) domain.Rules {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// Set validates, persists and applies a single rule. On any error the old
// value stays in effect.
func (s *Store) Set(ctx context.Context, key domain.RuleKey, raw string) error {
	key, err := domain.ParseRuleKey(string(key))
	if err != nil {
		return err
	}

	// Parse against the current snapshot to validate before touching storage.
	s.mu.RLock()
	candidate, err := s.rules.With(key, raw)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	value := candidate.Value(key)
	if err := s.repo.Save(ctx, key, value, s.now()); err != nil {
		return fmt.Errorf("persist rule %s: %w", key, err)
	}

	s.mu.Lock()
	// Only the updated key is taken from the candidate; concurrent Sets of
	// other keys are preserved.
	s.rules, _ = s.rules.With(key, value)
	s.mu.Unlock()

	s.logger.Info("business rule updated", "rule_key", key, "value", value)
	return nil
}

// Values returns the formatted value of every rule.
func (s *Store) Values(ctx context.Context) map[domain.RuleKey]string {
	current := s.Get(ctx)
	out := make(map[domain.RuleKey]string, len(domain.RuleKeys))
	for _, key := range domain.RuleKeys {
		out[key] = current.Value(key)
	}
	return out
}
