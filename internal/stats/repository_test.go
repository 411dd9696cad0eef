//go:build integration

package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikal-platform/vikal/internal/database"
	inats "github.com/vikal-platform/vikal/internal/nats"
)

func TestRepository_RecordAndGet(t *testing.T) {
	pool := database.StartTestPostgres(t)
	svc := NewService(NewRepository(pool))
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	for _, e := range []inats.UsageEvent{
		{UserID: "u1", Kind: "solution", OccurredAt: at},
		{UserID: "u1", Kind: "solution", OccurredAt: at},
		{UserID: "u2", Kind: "explanation", OccurredAt: at},
		{UserID: "u2", Kind: "chat", OccurredAt: at},
	} {
		require.NoError(t, svc.Record(ctx, e))
	}

	daily, err := svc.Daily(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, daily.ActiveUserIDs)
	assert.Equal(t, 2, daily.SolveCount)
	assert.Equal(t, 1, daily.ExplainCount)
	assert.Equal(t, 1, daily.ChatCount)
	assert.Equal(t, 0, daily.SummarizeCount)

	_, err = svc.Daily(ctx, at.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_IncrementCounterOncePerEvent(t *testing.T) {
	pool := database.StartTestPostgres(t)
	svc := NewService(NewRepository(pool))
	ctx := context.Background()
	at := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)

	event := inats.UsageEvent{ID: "evt-1", UserID: "u1", Kind: "summary", OccurredAt: at}
	require.NoError(t, svc.Record(ctx, event))
	require.NoError(t, svc.Record(ctx, event))
	require.NoError(t, svc.Record(ctx, inats.UsageEvent{ID: "evt-2", UserID: "u1", Kind: "summary", OccurredAt: at}))

	daily, err := svc.Daily(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, 2, daily.SummarizeCount)
}
