package quota

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store, used in tests and single-instance setups.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record), now: time.Now}
}

func (s *MemoryStore) FindOrCreate(_ context.Context, userID, email string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		now := s.now().UTC()
		rec = Record{UserID: userID, Email: email, CreatedAt: now, UpdatedAt: now}
		s.records[userID] = rec
	}
	return &rec, nil
}

func (s *MemoryStore) IncrementIfNotPro(_ context.Context, userID string, limit int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok || rec.IsPro || rec.ChatCount >= limit {
		return false, nil
	}
	rec.ChatCount++
	rec.UpdatedAt = s.now().UTC()
	s.records[userID] = rec
	return true, nil
}

func (s *MemoryStore) SetPro(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	rec, ok := s.records[userID]
	if !ok {
		rec = Record{UserID: userID, CreatedAt: now}
	}
	rec.IsPro = true
	rec.ChatCount = 0
	rec.UpdatedAt = now
	s.records[userID] = rec
	return nil
}
