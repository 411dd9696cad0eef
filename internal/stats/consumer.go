package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/vikal-platform/vikal/internal/nats"
)

// ConsumerName is the durable consumer that applies usage events.
const ConsumerName = "stats-recorder"

// Consumer listens on the usage event subject and applies events to the store.
type Consumer struct {
	svc         *Service
	consumerMgr *inats.ConsumerManager
}

// NewConsumer creates a new usage event Consumer.
func NewConsumer(svc *Service, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		svc:         svc,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamEvents, ConsumerName, inats.SubjectUsageEvent)
	if err != nil {
		return err
	}

	slog.Info("stats: consumer started", "consumer", ConsumerName)

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("stats consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handle(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// ackable is the part of jetstream.Msg the handler needs.
type ackable interface {
	Data() []byte
	Metadata() (*jetstream.MsgMetadata, error)
	Ack() error
	NakWithDelay(delay time.Duration) error
	Term() error
}

func (c *Consumer) handle(ctx context.Context, msg ackable) {
	var event inats.UsageEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		slog.Error("stats consumer: unmarshaling event", "error", err)
		_ = msg.Term()
		return
	}

	if err := c.svc.Record(ctx, event); err != nil {
		var delivered uint64 = 1
		if md, mdErr := msg.Metadata(); mdErr == nil {
			delivered = md.NumDelivered
		}
		if inats.LastDelivery(delivered) {
			slog.Error("stats consumer: dropping event after final attempt",
				"error", err, "event_id", event.ID, "kind", event.Kind, "attempts", delivered)
			_ = msg.Term()
			return
		}
		slog.Warn("stats consumer: recording event, will retry",
			"error", err, "event_id", event.ID, "kind", event.Kind, "attempt", delivered)
		_ = msg.NakWithDelay(inats.RetryDelay(delivered))
		return
	}

	_ = msg.Ack()

	slog.Debug("stats consumer: recorded event",
		"event_id", event.ID,
		"user_id", event.UserID,
		"kind", event.Kind,
	)
}
