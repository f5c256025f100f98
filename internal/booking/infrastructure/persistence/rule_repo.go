package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/database"
)

// RuleRepository implements domain.RuleRepository on the business_rules table.
type RuleRepository struct {
	conn database.Connection
}

// NewRuleRepository creates a rule repository.
func NewRuleRepository(conn database.Connection) *RuleRepository {
	return &RuleRepository{conn: conn}
}

// Load returns every stored rule value.
func (r *RuleRepository) Load(ctx context.Context) (map[domain.RuleKey]string, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx,
		`SELECT rule_key, rule_value FROM business_rules`)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	defer rows.Close()

	values := make(map[domain.RuleKey]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		values[domain.RuleKey(key)] = value
	}
	return values, rows.Err()
}

// Save upserts one rule value.
func (r *RuleRepository) Save(ctx context.Context, key domain.RuleKey, value string, updatedAt time.Time) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO business_rules (rule_key, rule_value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (rule_key) DO UPDATE
		SET rule_value = excluded.rule_value, updated_at = excluded.updated_at
	`, string(key), value, database.TimeArg(updatedAt))
	if err != nil {
		return fmt.Errorf("save rule %s: %w", key, err)
	}
	return nil
}
