package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// MaxDeliver bounds redelivery of an event that keeps failing.
const MaxDeliver = 5

// retryDelays is indexed by the number of failed deliveries so far.
var retryDelays = []time.Duration{time.Second, 5 * time.Second, 30 * time.Second, 2 * time.Minute}

// ConsumerManager creates the durable pull consumers the service reads from.
type ConsumerManager struct {
	js jetstream.JetStream
}

func NewConsumerManager(js jetstream.JetStream) *ConsumerManager {
	return &ConsumerManager{js: js}
}

// EnsureConsumer creates or updates the durable consumer name on stream,
// filtered to one subject. Every message must be acked explicitly.
func (cm *ConsumerManager) EnsureConsumer(ctx context.Context, stream, name, filterSubject string) (jetstream.Consumer, error) {
	consumer, err := cm.js.CreateOrUpdateConsumer(ctx, stream, jetstream.ConsumerConfig{
		Durable:       name,
		FilterSubject: filterSubject,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    MaxDeliver,
		MaxAckPending: 256,
	})
	if err != nil {
		return nil, fmt.Errorf("ensuring consumer %s on %s: %w", name, stream, err)
	}
	return consumer, nil
}

// RetryDelay is how long to wait before redelivering a message that has
// been delivered numDelivered times and failed.
func RetryDelay(numDelivered uint64) time.Duration {
	if numDelivered == 0 {
		return retryDelays[0]
	}
	i := int(numDelivered) - 1
	if i >= len(retryDelays) {
		i = len(retryDelays) - 1
	}
	return retryDelays[i]
}

// LastDelivery reports whether the server will not redeliver again.
func LastDelivery(numDelivered uint64) bool {
	return numDelivered >= MaxDeliver
}
