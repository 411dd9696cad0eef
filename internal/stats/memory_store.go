package stats

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memoryDay struct {
	users    map[string]struct{}
	counters map[Counter]int
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	days    map[time.Time]*memoryDay
	applied map[string]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		days:    make(map[time.Time]*memoryDay),
		applied: make(map[string]struct{}),
	}
}

func (s *MemoryStore) day(date time.Time) *memoryDay {
	d, ok := s.days[date]
	if !ok {
		d = &memoryDay{users: make(map[string]struct{}), counters: make(map[Counter]int)}
		s.days[date] = d
	}
	return d
}

func (s *MemoryStore) TouchDailyRecord(_ context.Context, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.day(date)
	return nil
}

func (s *MemoryStore) AddActiveUser(_ context.Context, date time.Time, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.day(date).users[userID] = struct{}{}
	return nil
}

func (s *MemoryStore) IncrementCounter(_ context.Context, date time.Time, counter Counter, eventID string) error {
	if !counter.Valid() {
		return fmt.Errorf("unknown counter %q", counter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if eventID != "" {
		if _, dup := s.applied[eventID]; dup {
			return nil
		}
		s.applied[eventID] = struct{}{}
	}
	s.day(date).counters[counter]++
	return nil
}

func (s *MemoryStore) Get(_ context.Context, date time.Time) (*Daily, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.days[date]
	if !ok {
		return nil, ErrNotFound
	}

	ids := make([]string, 0, len(d.users))
	for id := range d.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &Daily{
		Date:           date,
		ActiveUserIDs:  ids,
		ActiveUsers:    len(ids),
		SolveCount:     d.counters[CounterSolve],
		ExplainCount:   d.counters[CounterExplain],
		SummarizeCount: d.counters[CounterSummarize],
		ChatCount:      d.counters[CounterChat],
	}, nil
}
