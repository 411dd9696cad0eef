//go:build integration

package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inats "github.com/vikal-platform/vikal/internal/nats"
	"github.com/vikal-platform/vikal/internal/study"
)

func TestAsyncRecorder_EndToEnd(t *testing.T) {
	client := inats.StartTestNATS(t)
	svc := NewService(NewMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := NewConsumer(svc, inats.NewConsumerManager(client.JetStream()))
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	recorder := NewAsyncRecorder(inats.NewPublisher(client.JetStream()))
	require.NoError(t, recorder.RecordUsage(ctx, "u1", study.KindSolution))
	require.NoError(t, recorder.RecordUsage(ctx, "u2", study.KindChat))

	require.Eventually(t, func() bool {
		d, err := svc.Daily(ctx, time.Now())
		return err == nil && d.ActiveUsers == 2
	}, 15*time.Second, 200*time.Millisecond)

	d, err := svc.Daily(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, d.SolveCount)
	assert.Equal(t, 1, d.ChatCount)

	cancel()
	assert.NoError(t, <-done)
}
