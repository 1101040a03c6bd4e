package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementScript bumps the counter, restarting the window when it has
// elapsed, and keeps the key alive until the window ends.
var incrementScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])

	local state = redis.call('HMGET', key, 'count', 'first_ms')
	local count = tonumber(state[1])
	local first = tonumber(state[2])

	if count == nil or first == nil or now_ms >= first + window_ms then
		count = 0
		first = now_ms
	end

	count = count + 1
	redis.call('HSET', key, 'count', count, 'first_ms', first)
	redis.call('PEXPIRE', key, first + window_ms - now_ms)

	return { count, first }
`)

// RedisStore shares attempts between server instances
type RedisStore struct {
	client *redis.Client
	window time.Duration
}

// NewRedisStore creates a store on client. window is used to derive the
// expiry of windows read back with Get.
func NewRedisStore(client *redis.Client, window time.Duration) *RedisStore {
	return &RedisStore{client: client, window: window}
}

func (s *RedisStore) Get(ctx context.Context, key string) (Attempts, error) {
	vals, err := s.client.HMGet(ctx, key, "count", "first_ms").Result()
	if err != nil {
		return Attempts{}, err
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return Attempts{}, nil
	}

	count, err := strconv.Atoi(fmt.Sprint(vals[0]))
	if err != nil {
		return Attempts{}, fmt.Errorf("ratelimit: bad count for %s: %w", key, err)
	}
	firstMs, err := strconv.ParseInt(fmt.Sprint(vals[1]), 10, 64)
	if err != nil {
		return Attempts{}, fmt.Errorf("ratelimit: bad timestamp for %s: %w", key, err)
	}

	first := time.UnixMilli(firstMs)
	return Attempts{Count: count, FirstAt: first, ExpiresAt: first.Add(s.window)}, nil
}

func (s *RedisStore) Increment(ctx context.Context, key string, now time.Time, window time.Duration) (Attempts, error) {
	res, err := incrementScript.Run(ctx, s.client, []string{key}, now.UnixMilli(), window.Milliseconds()).Int64Slice()
	if err != nil {
		return Attempts{}, err
	}
	if len(res) != 2 {
		return Attempts{}, fmt.Errorf("ratelimit: unexpected script result %v", res)
	}

	first := time.UnixMilli(res[1])
	return Attempts{Count: int(res[0]), FirstAt: first, ExpiresAt: first.Add(window)}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
