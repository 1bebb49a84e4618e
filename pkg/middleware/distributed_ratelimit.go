package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/civicbase/pkg/storage/postgres"
)

// DistributedRateLimiter counts requests in a fixed window per key in
// Redis, so every instance shares the same budget. The window starts with
// the first request of a key and is never extended by later ones.
type DistributedRateLimiter struct {
	redis  *postgres.RedisClient
	window time.Duration
	limit  int64
	prefix string
}

// NewDistributedRateLimiter creates a new Redis-backed rate limiter
func NewDistributedRateLimiter(redis *postgres.RedisClient, config *RateLimitConfig, prefix string) *DistributedRateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &DistributedRateLimiter{
		redis:  redis,
		window: config.WindowDuration,
		limit:  int64(config.RequestsPerWindow + config.BurstSize),
		prefix: prefix,
	}
}

func (rl *DistributedRateLimiter) key(k string) string {
	return rl.prefix + ":" + k
}

// Allow counts the request and reports whether it fits the window. On a
// Redis failure it allows the request and returns the error.
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := rl.key(key)

	count, err := rl.redis.Incr(ctx, k)
	if err != nil {
		return true, fmt.Errorf("rate limit count: %w", err)
	}
	// A key without expiry is a fresh window, or one whose Expire was lost.
	ttl, err := rl.redis.TTL(ctx, k)
	if err != nil {
		return true, fmt.Errorf("rate limit window: %w", err)
	}
	if ttl < 0 {
		if err := rl.redis.Expire(ctx, k, rl.window); err != nil {
			return true, fmt.Errorf("rate limit window: %w", err)
		}
	}
	return count <= rl.limit, nil
}

// Remaining returns how many requests key may still make in its window
func (rl *DistributedRateLimiter) Remaining(ctx context.Context, key string) (int, error) {
	count, err := rl.redis.Counter(ctx, rl.key(key))
	if err != nil {
		return 0, err
	}
	return int(max(rl.limit-count, 0)), nil
}

// TTL returns the time until the window of key resets
func (rl *DistributedRateLimiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return rl.redis.TTL(ctx, rl.key(key))
}

// RetryAfter is TTL clamped to at least one second, for the Retry-After
// header.
func (rl *DistributedRateLimiter) RetryAfter(ctx context.Context, key string) time.Duration {
	ttl, err := rl.TTL(ctx, key)
	if err != nil || ttl <= 0 {
		return rl.window
	}
	return max(ttl.Round(time.Second), time.Second)
}

// Reset clears the window of key
func (rl *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, rl.key(key))
}
