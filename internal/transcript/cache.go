package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "transcript:"

// CachedFetcher serves transcripts from Redis and falls through to the
// wrapped Fetcher on a miss. Redis failures never fail a fetch.
type CachedFetcher struct {
	next Fetcher
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedFetcher wraps next with a Redis cache. A zero ttl means 24 hours.
func NewCachedFetcher(next Fetcher, rdb *redis.Client, ttl time.Duration) *CachedFetcher {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedFetcher{next: next, rdb: rdb, ttl: ttl}
}

func (c *CachedFetcher) FetchTranscript(ctx context.Context, videoID string) ([]Segment, error) {
	key := cacheKeyPrefix + videoID

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var segments []Segment
		if err := json.Unmarshal(data, &segments); err == nil {
			return segments, nil
		}
		slog.Warn("transcript: discarding corrupt cache entry", "video_id", videoID)
	case !errors.Is(err, redis.Nil):
		slog.Warn("transcript: cache read failed", "video_id", videoID, "error", err)
	}

	segments, err := c.next.FetchTranscript(ctx, videoID)
	if err != nil {
		return nil, err
	}

	// Empty transcripts are not cached; captions may be added later.
	if len(segments) > 0 {
		if err := c.store(ctx, key, segments); err != nil {
			slog.Warn("transcript: cache write failed", "video_id", videoID, "error", err)
		}
	}
	return segments, nil
}

func (c *CachedFetcher) store(ctx context.Context, key string, segments []Segment) error {
	data, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("marshaling transcript: %w", err)
	}
	return c.rdb.Set(ctx, key, data, c.ttl).Err()
}
