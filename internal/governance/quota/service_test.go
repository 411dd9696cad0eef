package quota

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *redis.Client {
	t.Helper()
	s := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: s.Addr()})
}

// stores returns every Store implementation that can run without Docker.
func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(setupMiniredis(t)),
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, store Store)) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) { fn(t, store) })
	}
}

func TestLedger_EnsureUserCreatesFreeRecord(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		l := NewLedger(store, 0)
		ctx := context.Background()

		rec, err := l.EnsureUser(ctx, "u-new", "new@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u-new", rec.UserID)
		assert.Equal(t, "new@example.com", rec.Email)
		assert.False(t, rec.IsPro)
		assert.Equal(t, 0, rec.ChatCount)
		assert.False(t, rec.CreatedAt.IsZero())

		// A second call does not overwrite the stored email.
		again, err := l.EnsureUser(ctx, "u-new", "other@example.com")
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", again.Email)
	})
}

func TestLedger_FreeUserBlockedAfterLimit(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		l := NewLedger(store, DefaultFreeLimit)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			rec, err := l.EnsureUser(ctx, "u1", "")
			require.NoError(t, err)
			require.True(t, l.CheckAllowed(rec), "action %d should be allowed", i+1)
			require.NoError(t, l.RecordConsumption(ctx, "u1"))
		}

		rec, err := l.EnsureUser(ctx, "u1", "")
		require.NoError(t, err)
		assert.Equal(t, 3, rec.ChatCount)
		assert.False(t, l.CheckAllowed(rec))

		// Charging past the cap leaves the count alone.
		require.NoError(t, l.RecordConsumption(ctx, "u1"))
		rec, err = l.EnsureUser(ctx, "u1", "")
		require.NoError(t, err)
		assert.Equal(t, 3, rec.ChatCount)
	})
}

func TestLedger_UpgradeResetsAndUnblocks(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		l := NewLedger(store, 3)
		ctx := context.Background()

		_, err := l.EnsureUser(ctx, "u2", "")
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			require.NoError(t, l.RecordConsumption(ctx, "u2"))
		}

		require.NoError(t, l.Upgrade(ctx, "u2"))
		require.NoError(t, l.Upgrade(ctx, "u2"))

		rec, err := l.EnsureUser(ctx, "u2", "")
		require.NoError(t, err)
		assert.True(t, rec.IsPro)
		assert.Equal(t, 0, rec.ChatCount)
		assert.True(t, l.CheckAllowed(rec))

		// Pro users are never charged.
		for i := 0; i < 5; i++ {
			require.NoError(t, l.RecordConsumption(ctx, "u2"))
		}
		rec, err = l.EnsureUser(ctx, "u2", "")
		require.NoError(t, err)
		assert.Equal(t, 0, rec.ChatCount)
		assert.True(t, l.CheckAllowed(rec))
	})
}

func TestLedger_UpgradeUnknownUserCreatesProRecord(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		l := NewLedger(store, 3)
		ctx := context.Background()

		require.NoError(t, l.Upgrade(ctx, "u-unseen"))

		rec, err := l.EnsureUser(ctx, "u-unseen", "late@example.com")
		require.NoError(t, err)
		assert.True(t, rec.IsPro)
		assert.Equal(t, 0, rec.ChatCount)
	})
}

func TestLedger_ConcurrentConsumptionNeverOvershoots(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		l := NewLedger(store, 3)
		ctx := context.Background()

		_, err := l.EnsureUser(ctx, "u3", "")
		require.NoError(t, err)

		var wg sync.WaitGroup
		var failures atomic.Int32
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := l.RecordConsumption(ctx, "u3"); err != nil {
					failures.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Zero(t, failures.Load())
		rec, err := l.EnsureUser(ctx, "u3", "")
		require.NoError(t, err)
		assert.Equal(t, 3, rec.ChatCount)
	})
}

func TestLedger_CheckAllowed(t *testing.T) {
	l := NewLedger(NewMemoryStore(), 3)

	tests := []struct {
		name string
		rec  Record
		want bool
	}{
		{"fresh", Record{ChatCount: 0}, true},
		{"one left", Record{ChatCount: 2}, true},
		{"at limit", Record{ChatCount: 3}, false},
		{"over limit", Record{ChatCount: 7}, false},
		{"pro at limit", Record{IsPro: true, ChatCount: 3}, true},
		{"pro over limit", Record{IsPro: true, ChatCount: 99}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.CheckAllowed(&tt.rec))
		})
	}
}

func TestLedger_Status(t *testing.T) {
	l := NewLedger(NewMemoryStore(), 3)
	ctx := context.Background()

	st, err := l.Status(ctx, "u4", "")
	require.NoError(t, err)
	assert.Equal(t, 3, st.Remaining)
	assert.False(t, st.Unlimited)

	require.NoError(t, l.RecordConsumption(ctx, "u4"))
	st, err = l.Status(ctx, "u4", "")
	require.NoError(t, err)
	assert.Equal(t, 1, st.ChatCount)
	assert.Equal(t, 2, st.Remaining)

	require.NoError(t, l.Upgrade(ctx, "u4"))
	st, err = l.Status(ctx, "u4", "")
	require.NoError(t, err)
	assert.True(t, st.IsPro)
	assert.True(t, st.Unlimited)
	assert.Equal(t, 0, st.Remaining)
	assert.Equal(t, 3, st.FreeLimit)
}

func TestLedger_DefaultsFreeLimit(t *testing.T) {
	assert.Equal(t, DefaultFreeLimit, NewLedger(NewMemoryStore(), 0).FreeLimit())
	assert.Equal(t, 10, NewLedger(NewMemoryStore(), 10).FreeLimit())
}

func TestRedisStore_StoreErrorsAreWrapped(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	l := NewLedger(NewRedisStore(rdb), 3)
	s.Close()

	_, err := l.EnsureUser(context.Background(), "u5", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensuring user")
}
