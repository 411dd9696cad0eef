// Package stats keeps one usage record per UTC day: the set of active users
// and a counter per paid action kind.
package stats

import (
	"context"
	"errors"
	"time"

	"github.com/vikal-platform/vikal/internal/study"
)

// ErrNotFound is returned when no record exists for the requested day.
var ErrNotFound = errors.New("no usage recorded for that day")

// Counter names a per-day counter column.
type Counter string

const (
	CounterSolve     Counter = "solve_count"
	CounterExplain   Counter = "explain_count"
	CounterSummarize Counter = "summarize_count"
	CounterChat      Counter = "chat_count"
)

// Valid reports whether c is a known counter.
func (c Counter) Valid() bool {
	switch c {
	case CounterSolve, CounterExplain, CounterSummarize, CounterChat:
		return true
	}
	return false
}

// CounterFor maps a study kind to its counter.
func CounterFor(kind study.Kind) (Counter, bool) {
	switch kind {
	case study.KindSolution:
		return CounterSolve, true
	case study.KindExplanation:
		return CounterExplain, true
	case study.KindSummary:
		return CounterSummarize, true
	case study.KindChat:
		return CounterChat, true
	}
	return "", false
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Daily matches the daily_usage_stats table plus its active users.
type Daily struct {
	Date           time.Time `json:"date"`
	ActiveUserIDs  []string  `json:"active_user_ids"`
	ActiveUsers    int       `json:"active_users"`
	SolveCount     int       `json:"solve_count"`
	ExplainCount   int       `json:"explain_count"`
	SummarizeCount int       `json:"summarize_count"`
	ChatCount      int       `json:"chat_count"`
}

// Store persists daily records. date is always midnight UTC.
//
// IncrementCounter applies each non-empty eventID at most once, so a
// redelivered event does not count twice. An empty eventID always counts.
type Store interface {
	TouchDailyRecord(ctx context.Context, date time.Time) error
	AddActiveUser(ctx context.Context, date time.Time, userID string) error
	IncrementCounter(ctx context.Context, date time.Time, counter Counter, eventID string) error
	Get(ctx context.Context, date time.Time) (*Daily, error)
}
