package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
)

func TestRuleRepository_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := NewRuleRepository(setupTestDB(t))

	values, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, values)

	require.NoError(t, repo.Save(ctx, domain.RuleMaxWaitlistSize, "5", testNow))
	require.NoError(t, repo.Save(ctx, domain.RuleMaxWaitlistSize, "8", testNow))
	require.NoError(t, repo.Save(ctx, domain.RuleCancellationWindowHours, "12", testNow))

	values, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.RuleKey]string{
		domain.RuleMaxWaitlistSize:         "8",
		domain.RuleCancellationWindowHours: "12",
	}, values)
}
