package redisStore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func (s *Store) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	count, err := s.client.Exists(ctx, key).Result()
	return count > 0, err
}

// ListAppend pushes values to the tail of the list, keeps only the newest maxLen entries and
// refreshes the TTL, all in one round trip.
func (s *Store) ListAppend(ctx context.Context, key string, maxLen int64, ttl time.Duration, values ...interface{}) error {
	if len(values) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	if maxLen > 0 {
		pipe.LTrim(ctx, key, -maxLen, -1)
	}
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// ListTail returns the newest n entries, oldest first.
func (s *Store) ListTail(ctx context.Context, key string, n int64) ([]string, error) {
	if n <= 0 {
		return s.client.LRange(ctx, key, 0, -1).Result()
	}
	return s.client.LRange(ctx, key, -n, -1).Result()
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// slidingWindowScript keeps one sorted set per key, scored by request time in milliseconds.
// It returns {1, 0} when the hit is recorded and {0, wait_ms} when the window is full.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	return {0, tonumber(oldest[2]) + window - now}
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, 0}
`)

// SlidingWindowHit records one request for key unless limit requests already fall within the window ending at now.
// When the window is full it reports how long until the oldest request leaves it.
func (s *Store) SlidingWindowHit(ctx context.Context, key string, now time.Time, window time.Duration, limit int, member string) (bool, time.Duration, error) {
	res, err := slidingWindowScript.Run(ctx, s.client, []string{key},
		now.UnixMilli(), window.Milliseconds(), limit, member).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("sliding window %s: unexpected reply %v", key, res)
	}
	return res[0] == 1, time.Duration(res[1]) * time.Millisecond, nil
}
