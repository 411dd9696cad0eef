package quota

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "quota:user:"

var (
	findOrCreateScript = redis.NewScript(`
		if redis.call('EXISTS', KEYS[1]) == 0 then
			redis.call('HSET', KEYS[1],
				'email', ARGV[1], 'is_pro', '0', 'chat_count', '0',
				'created_at', ARGV[2], 'updated_at', ARGV[2])
		end
		return redis.call('HMGET', KEYS[1], 'email', 'is_pro', 'chat_count', 'created_at', 'updated_at')
	`)

	incrementScript = redis.NewScript(`
		if redis.call('EXISTS', KEYS[1]) == 0 then
			return 0
		end
		if tonumber(redis.call('HGET', KEYS[1], 'is_pro')) == 1 then
			return 0
		end
		local count = tonumber(redis.call('HGET', KEYS[1], 'chat_count'))
		if count >= tonumber(ARGV[1]) then
			return 0
		end
		redis.call('HSET', KEYS[1], 'chat_count', tostring(count + 1), 'updated_at', ARGV[2])
		return 1
	`)

	setProScript = redis.NewScript(`
		if redis.call('EXISTS', KEYS[1]) == 0 then
			redis.call('HSET', KEYS[1], 'email', '', 'created_at', ARGV[1])
		end
		redis.call('HSET', KEYS[1], 'is_pro', '1', 'chat_count', '0', 'updated_at', ARGV[1])
		return 1
	`)
)

// RedisStore keeps quota records in Redis hashes. Each operation runs as a
// single Lua script, so concurrent requests see a consistent count.
type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

func (s *RedisStore) key(userID string) string {
	return redisKeyPrefix + userID
}

func (s *RedisStore) FindOrCreate(ctx context.Context, userID, email string) (*Record, error) {
	now := s.now().UTC().Format(time.RFC3339Nano)
	vals, err := findOrCreateScript.Run(ctx, s.rdb, []string{s.key(userID)}, email, now).Slice()
	if err != nil {
		return nil, fmt.Errorf("ensuring user quota: %w", err)
	}
	if len(vals) != 5 {
		return nil, fmt.Errorf("ensuring user quota: unexpected reply of %d fields", len(vals))
	}

	rec := &Record{UserID: userID}
	rec.Email, _ = vals[0].(string)
	if rec.IsPro, err = redisBool(vals[1]); err != nil {
		return nil, fmt.Errorf("decoding is_pro: %w", err)
	}
	if rec.ChatCount, err = redisInt(vals[2]); err != nil {
		return nil, fmt.Errorf("decoding chat_count: %w", err)
	}
	rec.CreatedAt = redisTime(vals[3])
	rec.UpdatedAt = redisTime(vals[4])
	return rec, nil
}

func (s *RedisStore) IncrementIfNotPro(ctx context.Context, userID string, limit int) (bool, error) {
	now := s.now().UTC().Format(time.RFC3339Nano)
	n, err := incrementScript.Run(ctx, s.rdb, []string{s.key(userID)}, limit, now).Int()
	if err != nil {
		return false, fmt.Errorf("incrementing chat count: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStore) SetPro(ctx context.Context, userID string) error {
	now := s.now().UTC().Format(time.RFC3339Nano)
	if err := setProScript.Run(ctx, s.rdb, []string{s.key(userID)}, now).Err(); err != nil {
		return fmt.Errorf("upgrading user: %w", err)
	}
	return nil
}

func redisInt(v any) (int, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected type %T", v)
	}
	return strconv.Atoi(s)
}

func redisBool(v any) (bool, error) {
	n, err := redisInt(v)
	return n == 1, err
}

func redisTime(v any) time.Time {
	s, _ := v.(string)
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
