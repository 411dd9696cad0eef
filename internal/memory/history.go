// Package memory keeps recent chat turns per user and video in Redis.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vikal-platform/vikal/internal/study"
)

// Default history bounds.
const (
	DefaultMaxTurns = 10
	DefaultTTL      = 24 * time.Hour
)

// HistoryStore manages chat history in Redis lists.
type HistoryStore struct {
	client   *redis.Client
	maxTurns int
	ttl      time.Duration
}

// NewHistoryStore creates a new chat history store. Non-positive bounds use
// the defaults.
func NewHistoryStore(client *redis.Client, maxTurns int, ttl time.Duration) *HistoryStore {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &HistoryStore{client: client, maxTurns: maxTurns, ttl: ttl}
}

// An empty videoID groups general questions into one conversation.
func historyKey(userID, videoID string) string {
	if videoID == "" {
		videoID = "general"
	}
	return fmt.Sprintf("chat:%s:%s", userID, videoID)
}

// Recent returns up to maxTurns turns, oldest first.
func (s *HistoryStore) Recent(ctx context.Context, userID, videoID string) ([]study.Turn, error) {
	key := historyKey(userID, videoID)

	// LRANGE key -n -1 returns the last n elements
	vals, err := s.client.LRange(ctx, key, int64(-s.maxTurns), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}

	turns := make([]study.Turn, 0, len(vals))
	for _, v := range vals {
		var turn study.Turn
		if err := json.Unmarshal([]byte(v), &turn); err != nil {
			continue // skip malformed entries
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Append adds turns in order, trims the list to maxTurns and refreshes its TTL.
func (s *HistoryStore) Append(ctx context.Context, userID, videoID string, turns ...study.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	key := historyKey(userID, videoID)

	values := make([]any, 0, len(turns))
	for _, t := range turns {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshaling turn: %w", err)
		}
		values = append(values, string(data))
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec for %s: %w", key, err)
	}
	return nil
}

// Clear deletes the conversation for the given user and video.
func (s *HistoryStore) Clear(ctx context.Context, userID, videoID string) error {
	return s.client.Del(ctx, historyKey(userID, videoID)).Err()
}
