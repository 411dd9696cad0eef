//go:build integration

package quota

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikal-platform/vikal/internal/database"
)

func TestRepository_Lifecycle(t *testing.T) {
	pool := database.StartTestPostgres(t)
	l := NewLedger(NewRepository(pool), 3)
	ctx := context.Background()

	rec, err := l.EnsureUser(ctx, "pg-user", "pg@example.com")
	require.NoError(t, err)
	assert.False(t, rec.IsPro)
	assert.Equal(t, 0, rec.ChatCount)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.RecordConsumption(ctx, "pg-user"))
		}()
	}
	wg.Wait()

	rec, err = l.EnsureUser(ctx, "pg-user", "")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.ChatCount)
	assert.False(t, l.CheckAllowed(rec))
	assert.Equal(t, "pg@example.com", rec.Email)

	require.NoError(t, l.Upgrade(ctx, "pg-user"))
	rec, err = l.EnsureUser(ctx, "pg-user", "")
	require.NoError(t, err)
	assert.True(t, rec.IsPro)
	assert.Equal(t, 0, rec.ChatCount)

	require.NoError(t, l.RecordConsumption(ctx, "pg-user"))
	rec, err = l.EnsureUser(ctx, "pg-user", "")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.ChatCount)
}

func TestRepository_UpgradeBeforeFirstRequest(t *testing.T) {
	pool := database.StartTestPostgres(t)
	l := NewLedger(NewRepository(pool), 3)
	ctx := context.Background()

	require.NoError(t, l.Upgrade(ctx, "early-payer"))

	rec, err := l.EnsureUser(ctx, "early-payer", "x@example.com")
	require.NoError(t, err)
	assert.True(t, rec.IsPro)
}
