package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
)

const (
	// DefaultRedisKey is the hash holding rule values.
	DefaultRedisKey = "classbook:rules"

	updatedAtSuffix = ":updated_at"
)

// RedisRepository stores rules in a Redis hash, field per rule key. Update
// times go to a sibling hash so Load can read values with one HGETALL.
type RedisRepository struct {
	client *redis.Client
	key    string
}

// NewRedisRepository creates a repository on the given hash key. An empty
// key uses DefaultRedisKey.
func NewRedisRepository(client *redis.Client, key string) *RedisRepository {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisRepository{client: client, key: key}
}

// Load reads every rule field.
func (r *RedisRepository) Load(ctx context.Context) (map[domain.RuleKey]string, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", r.key, err)
	}
	values := make(map[domain.RuleKey]string, len(fields))
	for field, value := range fields {
		values[domain.RuleKey(field)] = value
	}
	return values, nil
}

// Save writes the value and its update time in one MULTI/EXEC.
func (r *RedisRepository) Save(ctx context.Context, key domain.RuleKey, value string, updatedAt time.Time) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key, string(key), value)
		pipe.HSet(ctx, r.key+updatedAtSuffix, string(key), updatedAt.UTC().Format(time.RFC3339Nano))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save rule %s: %w", key, err)
	}
	return nil
}

// UpdatedAt returns when a rule was last written, or false if never.
func (r *RedisRepository) UpdatedAt(ctx context.Context, key domain.RuleKey) (time.Time, bool, error) {
	raw, err := r.client.HGet(ctx, r.key+updatedAtSuffix, string(key)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse rule timestamp %q: %w", raw, err)
	}
	return at, true, nil
}
