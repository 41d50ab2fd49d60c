package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimiter defines an interface for rate limiting functionality
type RateLimiter interface {
	// Allow checks if the request should be allowed based on the key
	Allow(ctx context.Context, key string) (bool, int, time.Time, error)
}

// RedisRateLimiter implements fixed window rate limiting shared by every
// instance through Redis.
type RedisRateLimiter struct {
	client      *redis.Client
	prefix      string
	window      time.Duration
	maxAttempts int64
}

// NewRedisRateLimiter creates a new rate limiter using Redis
func NewRedisRateLimiter(client *redis.Client, window time.Duration, maxAttempts int64) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:      client,
		prefix:      "meetup:ratelimit:",
		window:      window,
		maxAttempts: maxAttempts,
	}
}

// Allow checks if the request should be allowed based on the key
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	redisKey := fmt.Sprintf("%s%s", rl.prefix, key)
	windowStart := time.Now().Truncate(rl.window)
	resetTime := windowStart.Add(rl.window)

	pipe := rl.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireAt(ctx, redisKey, resetTime)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limiter error: %w", err)
	}

	return decide(incr.Val(), rl.maxAttempts, resetTime)
}

// MemoryRateLimiter is the single instance fallback used when Redis is
// disabled.
type MemoryRateLimiter struct {
	mu          sync.Mutex
	window      time.Duration
	maxAttempts int64
	counters    map[string]*windowCounter
	now         func() time.Time
}

type windowCounter struct {
	start time.Time
	count int64
}

func NewMemoryRateLimiter(window time.Duration, maxAttempts int64) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		window:      window,
		maxAttempts: maxAttempts,
		counters:    make(map[string]*windowCounter),
		now:         time.Now,
	}
}

func (rl *MemoryRateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	windowStart := rl.now().Truncate(rl.window)
	c, ok := rl.counters[key]
	if !ok || !c.start.Equal(windowStart) {
		if len(rl.counters) > 10000 {
			rl.evict(windowStart)
		}
		c = &windowCounter{start: windowStart}
		rl.counters[key] = c
	}
	c.count++

	return decide(c.count, rl.maxAttempts, windowStart.Add(rl.window))
}

func (rl *MemoryRateLimiter) evict(current time.Time) {
	for k, c := range rl.counters {
		if c.start.Before(current) {
			delete(rl.counters, k)
		}
	}
}

func decide(count, maxAttempts int64, resetTime time.Time) (bool, int, time.Time, error) {
	remaining := maxAttempts - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= maxAttempts, int(remaining), resetTime, nil
}
