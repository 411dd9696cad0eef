package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	inats "github.com/vikal-platform/vikal/internal/nats"
	"github.com/vikal-platform/vikal/internal/study"
)

// Service applies usage events to the daily record.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a new stats Service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Record touches the event's day, marks the user active and bumps the
// counter for the event's kind.
func (s *Service) Record(ctx context.Context, event inats.UsageEvent) error {
	counter, ok := CounterFor(study.Kind(event.Kind))
	if !ok {
		return fmt.Errorf("recording usage: unknown kind %q", event.Kind)
	}

	day := Day(event.OccurredAt)
	if err := s.store.TouchDailyRecord(ctx, day); err != nil {
		return fmt.Errorf("recording usage: %w", err)
	}
	if err := s.store.AddActiveUser(ctx, day, event.UserID); err != nil {
		return fmt.Errorf("recording usage: %w", err)
	}
	if err := s.store.IncrementCounter(ctx, day, counter, event.ID); err != nil {
		return fmt.Errorf("recording usage: %w", err)
	}
	return nil
}

// RecordUsage records a completed action synchronously.
func (s *Service) RecordUsage(ctx context.Context, userID string, kind study.Kind) error {
	return s.Record(ctx, newEvent(userID, kind, s.now()))
}

// Daily returns the record for the day containing date.
func (s *Service) Daily(ctx context.Context, date time.Time) (*Daily, error) {
	return s.store.Get(ctx, Day(date))
}

// EventPublisher is satisfied by *nats.Publisher.
type EventPublisher interface {
	PublishUsageEvent(ctx context.Context, event inats.UsageEvent) error
}

// AsyncRecorder publishes usage to NATS; the Consumer applies it later.
type AsyncRecorder struct {
	pub EventPublisher
	now func() time.Time
}

// NewAsyncRecorder creates an AsyncRecorder.
func NewAsyncRecorder(pub EventPublisher) *AsyncRecorder {
	return &AsyncRecorder{pub: pub, now: time.Now}
}

func (r *AsyncRecorder) RecordUsage(ctx context.Context, userID string, kind study.Kind) error {
	if err := r.pub.PublishUsageEvent(ctx, newEvent(userID, kind, r.now())); err != nil {
		return fmt.Errorf("publishing usage: %w", err)
	}
	return nil
}

func newEvent(userID string, kind study.Kind, at time.Time) inats.UsageEvent {
	return inats.UsageEvent{
		ID:         uuid.NewString(),
		UserID:     userID,
		Kind:       string(kind),
		OccurredAt: at.UTC(),
	}
}
