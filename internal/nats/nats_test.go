//go:build integration

package nats

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishUsageEvent_Deduplicates(t *testing.T) {
	client := StartTestNATS(t)
	ctx := context.Background()

	pub := NewPublisher(client.JetStream())
	event := UsageEvent{ID: "evt-1", UserID: "u1", Kind: "solution", OccurredAt: time.Now().UTC()}

	require.NoError(t, pub.PublishUsageEvent(ctx, event))
	require.NoError(t, pub.PublishUsageEvent(ctx, event))

	consumer, err := NewConsumerManager(client.JetStream()).EnsureConsumer(ctx, StreamEvents, "test-consumer", SubjectUsageEvent)
	require.NoError(t, err)

	msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(3*time.Second))
	require.NoError(t, err)

	var received []UsageEvent
	for m := range msgs.Messages() {
		var got UsageEvent
		require.NoError(t, json.Unmarshal(m.Data(), &got))
		received = append(received, got)
		require.NoError(t, m.Ack())
	}

	require.Len(t, received, 1)
	assert.Equal(t, "evt-1", received[0].ID)
	assert.Equal(t, "solution", received[0].Kind)
	assert.True(t, client.Healthy())
}
