package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig defines the limit for a specific route or group.
type RateLimitConfig struct {
	Name   string                   // Namespaces keys when counters are shared
	Max    int                      // Maximum requests allowed in the window
	Window time.Duration            // Time window for the limit
	KeyFn  func(c fiber.Ctx) string // Returns the key to rate limit on (IP, userID, etc.)
}

// Counter increments the hit count for key within a fixed window.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
}

// entry tracks request count and window start for a single key.
type entry struct {
	count     int
	windowEnd time.Time
}

// memoryCounter keeps windows in process memory.
type memoryCounter struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func newMemoryCounter() *memoryCounter {
	mc := &memoryCounter{entries: make(map[string]*entry)}
	go mc.cleanup()
	return mc
}

func (mc *memoryCounter) Incr(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	e, exists := mc.entries[key]
	if !exists || now.After(e.windowEnd) {
		e = &entry{windowEnd: now.Add(window)}
		mc.entries[key] = e
	}
	e.count++
	return e.count, e.windowEnd, nil
}

func (mc *memoryCounter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	for range ticker.C {
		mc.mu.Lock()
		now := time.Now()
		for key, e := range mc.entries {
			if now.After(e.windowEnd) {
				delete(mc.entries, key)
			}
		}
		mc.mu.Unlock()
	}
}

// RedisCounter shares windows across server instances.
type RedisCounter struct {
	rdb *redis.Client
}

func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func (rc *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	key = "ratelimit:" + key
	pipe := rc.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, err
	}

	remaining := ttl.Val()
	if remaining <= 0 {
		remaining = window
	}
	return int(incr.Val()), time.Now().Add(remaining), nil
}

// RateLimiter is a fixed-window rate limiter.
type RateLimiter struct {
	counter Counter
	config  RateLimitConfig
}

// NewRateLimiter creates an in-memory rate limiter with the given config.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{counter: newMemoryCounter(), config: cfg}
}

// NewSharedRateLimiter creates a rate limiter backed by the given counter.
func NewSharedRateLimiter(cfg RateLimitConfig, counter Counter) *RateLimiter {
	if counter == nil {
		return NewRateLimiter(cfg)
	}
	return &RateLimiter{counter: counter, config: cfg}
}

func (rl *RateLimiter) key(k string) string {
	if rl.config.Name == "" {
		return k
	}
	return rl.config.Name + ":" + k
}

// Handler returns a Fiber middleware handler that enforces the rate limit.
// Counter failures let the request through.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		count, resetAt, err := rl.counter.Incr(c.Context(), rl.key(rl.config.KeyFn(c)), rl.config.Window)
		if err != nil {
			Logger.Warn().Err(err).Str("limiter", rl.config.Name).Msg("rate limit counter unavailable")
			return c.Next()
		}

		remaining := rl.config.Max - count
		setRateLimitHeaders(c, rl.config.Max, remaining, resetAt)

		if remaining < 0 {
			retryAfter := int(time.Until(resetAt).Seconds()) + 1
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": fiber.Map{
					"code":       "RATE_LIMITED",
					"message":    fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter),
					"retryAfter": retryAfter,
				},
			})
		}

		return c.Next()
	}
}

// Allow checks if a request with the given key is allowed.
func (rl *RateLimiter) Allow(key string) bool {
	count, _, err := rl.counter.Incr(context.Background(), rl.key(key), rl.config.Window)
	if err != nil {
		return true
	}
	return count <= rl.config.Max
}

func setRateLimitHeaders(c fiber.Ctx, limit, remaining int, resetAt time.Time) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// KeyByIP returns the client IP as the rate limit key.
func KeyByIP(c fiber.Ctx) string {
	return "ip:" + c.IP()
}

// KeyByUserID keys on the authenticated user. Falls back to IP for
// anonymous requests.
func KeyByUserID(c fiber.Ctx) string {
	if uid := UserID(c); uid != "" {
		return "user:" + uid
	}
	return "ip:" + c.IP()
}

// --- Pre-configured rate limiters matching the API contract ---

// NewFeedRateLimiter: 100 req/min per IP
func NewFeedRateLimiter(counter Counter) *RateLimiter {
	return NewSharedRateLimiter(RateLimitConfig{
		Name:   "feed",
		Max:    100,
		Window: time.Minute,
		KeyFn:  KeyByIP,
	}, counter)
}

// NewModerationRateLimiter: 20 req/min per user
func NewModerationRateLimiter(counter Counter) *RateLimiter {
	return NewSharedRateLimiter(RateLimitConfig{
		Name:   "moderation",
		Max:    20,
		Window: time.Minute,
		KeyFn:  KeyByUserID,
	}, counter)
}

// NewRatingRateLimiter: 30 req/min per user
func NewRatingRateLimiter(counter Counter) *RateLimiter {
	return NewSharedRateLimiter(RateLimitConfig{
		Name:   "rating",
		Max:    30,
		Window: time.Minute,
		KeyFn:  KeyByUserID,
	}, counter)
}

// NewHistoryRateLimiter: 6 req/min per user
func NewHistoryRateLimiter(counter Counter) *RateLimiter {
	return NewSharedRateLimiter(RateLimitConfig{
		Name:   "history",
		Max:    6,
		Window: time.Minute,
		KeyFn:  KeyByUserID,
	}, counter)
}

// NewStatsRateLimiter: 10 req/min per IP
func NewStatsRateLimiter(counter Counter) *RateLimiter {
	return NewSharedRateLimiter(RateLimitConfig{
		Name:   "stats",
		Max:    10,
		Window: time.Minute,
		KeyFn:  KeyByIP,
	}, counter)
}
