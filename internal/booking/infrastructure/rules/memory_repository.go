package rules

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
)

// InMemoryRepository keeps rule values in process memory.
type InMemoryRepository struct {
	mu     sync.Mutex
	values map[domain.RuleKey]string
	err    error
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{values: make(map[domain.RuleKey]string)}
}

// Load returns a copy of the stored values.
func (r *InMemoryRepository) Load(_ context.Context) (map[domain.RuleKey]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[domain.RuleKey]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out, nil
}

// Save stores a value.
func (r *InMemoryRepository) Save(_ context.Context, key domain.RuleKey, value string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.values[key] = value
	return nil
}

// FailWith makes every later call return err. Pass nil to recover.
func (r *InMemoryRepository) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}
