package nats

import (
	"time"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamEvents = "VIKAL_EVENTS"
)

// Subject constants.
const (
	SubjectEventsAll  = "vikal.events.>"
	SubjectUsageEvent = "vikal.events.usage"
)

// UsageEvent is published after a paid study action completes.
type UsageEvent struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Kind       string    `json:"kind"` // explanation, solution, summary, chat
	OccurredAt time.Time `json:"occurred_at"`
}
