package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/platinummonkey/civicbase/pkg/audit"
	"github.com/platinummonkey/civicbase/pkg/httputil"
	"github.com/platinummonkey/civicbase/pkg/observability"
	"github.com/platinummonkey/civicbase/pkg/storage/postgres"
	"golang.org/x/time/rate"
)

// MessageTooManyRequests is sent with every 429
const MessageTooManyRequests = "Too many requests, please try again later"

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate
	BurstSize int
}

// DefaultRateLimitConfig returns default rate limit settings
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 100,
		WindowDuration:    time.Minute,
		BurstSize:         10,
	}
}

// LoginRateLimitConfig returns the settings of the login route: limit
// attempts per window and client address, without burst.
func LoginRateLimitConfig(limit int, window time.Duration) *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: limit,
		WindowDuration:    window,
	}
}

// Limiter decides whether one more request for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// retryAfterer is implemented by limiters that know when a key's window
// resets.
type retryAfterer interface {
	RetryAfter(ctx context.Context, key string) time.Duration
}

// NewLimiter returns a Redis-backed limiter shared by every instance, or an
// in-process one when redis is nil.
func NewLimiter(redis *postgres.RedisClient, config *RateLimitConfig, prefix string) Limiter {
	if redis == nil {
		return NewRateLimiter(config)
	}
	return NewDistributedRateLimiter(redis, config, prefix)
}

// RateLimiter is an in-process token bucket per key
type RateLimiter struct {
	config  *RateLimitConfig
	limit   rate.Limit
	buckets map[string]*bucket
	mu      sync.Mutex
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if config.RequestsPerWindow < 1 {
		config.RequestsPerWindow = 1
	}

	return &RateLimiter{
		config:  config,
		limit:   rate.Every(config.WindowDuration / time.Duration(config.RequestsPerWindow)),
		buckets: make(map[string]*bucket),
	}
}

func (rl *RateLimiter) get(key string) *bucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.config.RequestsPerWindow+rl.config.BurstSize)}
		rl.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b
}

// Allow checks if a request is allowed for the given key
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	return rl.get(key).limiter.Allow(), nil
}

// Remaining returns the number of whole tokens left for a key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	b, exists := rl.buckets[key]
	rl.mu.Unlock()

	if !exists {
		return rl.config.RequestsPerWindow + rl.config.BurstSize
	}
	tokens := int(b.limiter.Tokens())
	if tokens < 0 {
		tokens = 0
	}
	return tokens
}

// Cleanup removes buckets idle for two windows
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.config.WindowDuration*2 {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanup starts a background goroutine to cleanup old buckets
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.config.WindowDuration)
	go func() {
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}

// RateLimitMiddleware limits requests per client address
type RateLimitMiddleware struct {
	limiter Limiter
	config  *RateLimitConfig
	log     *observability.Logger
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(limiter Limiter, config *RateLimitConfig, log *observability.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		config:  config,
		log:     log,
	}
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + audit.ClientIP(r)

		allowed, err := m.limiter.Allow(r.Context(), key)
		if err != nil {
			// Fail open on Redis errors
			m.log.WithError(err).WithField("key", key).Warn("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			m.rateLimitExceeded(w, m.retryAfter(r.Context(), key))
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", m.config.RequestsPerWindow))
		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) retryAfter(ctx context.Context, key string) time.Duration {
	if ra, ok := m.limiter.(retryAfterer); ok {
		return ra.RetryAfter(ctx, key)
	}
	return m.config.WindowDuration
}

func (m *RateLimitMiddleware) rateLimitExceeded(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", m.config.RequestsPerWindow))
	w.Header().Set("X-RateLimit-Remaining", "0")
	httputil.WriteTooManyRequests(w, MessageTooManyRequests)
}
