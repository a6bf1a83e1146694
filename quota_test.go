package accounts_test

import (
	"context"
	"errors"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterStub struct {
	count int
	err   error
}

func (c counterStub) CountPersonalProjects(context.Context, uuid.UUID) (int, error) {
	return c.count, c.err
}

func TestApplyDefaultLimit(t *testing.T) {
	enforcer := accounts.NewQuotaEnforcer(counterStub{}, testConfig{projectsLimit: 10})

	t.Run("nil explicit uses the config default", func(t *testing.T) {
		account := &accounts.Account{}
		require.NoError(t, enforcer.ApplyDefaultLimit(account, nil))
		assert.Equal(t, 10, account.ProjectsLimit)
	})

	t.Run("explicit value wins over the default", func(t *testing.T) {
		account := &accounts.Account{}
		limit := 3
		require.NoError(t, enforcer.ApplyDefaultLimit(account, &limit))
		assert.Equal(t, 3, account.ProjectsLimit)
	})

	t.Run("explicit zero is allowed", func(t *testing.T) {
		account := &accounts.Account{}
		limit := 0
		require.NoError(t, enforcer.ApplyDefaultLimit(account, &limit))
		assert.Equal(t, 0, account.ProjectsLimit)
	})

	t.Run("negative value rejected", func(t *testing.T) {
		account := &accounts.Account{}
		limit := -1
		err := enforcer.ApplyDefaultLimit(account, &limit)
		require.Error(t, err)
		assert.Equal(t, "PROJECTS_LIMIT_INVALID", textCode(t, err))
	})
}

func TestCanCreateProject(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		limit    int
		count    int
		expected bool
	}{
		{"under the limit", 10, 9, true},
		{"at the limit", 10, 10, false},
		{"over the limit after an admin lowered it", 5, 10, false},
		{"zero limit always denies", 0, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			enforcer := accounts.NewQuotaEnforcer(counterStub{count: tc.count}, nil)
			account := &accounts.Account{ID: uuid.New(), ProjectsLimit: tc.limit}

			ok, err := enforcer.CanCreateProject(ctx, account)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ok)
		})
	}

	t.Run("nil account denies without a store call", func(t *testing.T) {
		enforcer := accounts.NewQuotaEnforcer(counterStub{err: errors.New("never called")}, nil)
		ok, err := enforcer.CanCreateProject(ctx, nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("counter failure surfaces", func(t *testing.T) {
		enforcer := accounts.NewQuotaEnforcer(counterStub{err: errors.New("boom")}, nil)
		_, err := enforcer.CanCreateProject(ctx, &accounts.Account{ID: uuid.New(), ProjectsLimit: 1})
		require.Error(t, err)
	})
}

func TestLimitRemainingPercent(t *testing.T) {
	ctx := context.Background()

	t.Run("zero limit reports full headroom", func(t *testing.T) {
		// CanCreateProject treats zero as no quota at all; the display
		// percentage treats it as unlimited. Both behaviors are load-bearing.
		enforcer := accounts.NewQuotaEnforcer(counterStub{count: 42}, nil)
		pct, err := enforcer.LimitRemainingPercent(ctx, &accounts.Account{ID: uuid.New(), ProjectsLimit: 0})
		require.NoError(t, err)
		assert.Equal(t, 100, pct)
	})

	t.Run("usage percentage of the limit", func(t *testing.T) {
		enforcer := accounts.NewQuotaEnforcer(counterStub{count: 5}, nil)
		pct, err := enforcer.LimitRemainingPercent(ctx, &accounts.Account{ID: uuid.New(), ProjectsLimit: 10})
		require.NoError(t, err)
		assert.Equal(t, 50, pct)
	})

	t.Run("nil account reports full headroom", func(t *testing.T) {
		enforcer := accounts.NewQuotaEnforcer(counterStub{}, nil)
		pct, err := enforcer.LimitRemainingPercent(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 100, pct)
	})
}
