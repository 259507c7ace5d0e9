package main

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const rateLimiterIdleTTL = 10 * time.Minute

// ipRateLimiter applies a token bucket per client address and periodically
// evicts idle entries.
type ipRateLimiter struct {
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	byKey   map[string]*ipRateLimitEntry
	hits    uint64
	idleTTL time.Duration
}

type ipRateLimitEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newIPRateLimiter returns nil, meaning unlimited, when rps or burst is not
// positive.
func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return &ipRateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		byKey:   make(map[string]*ipRateLimitEntry),
		idleTTL: rateLimiterIdleTTL,
	}
}

func (l *ipRateLimiter) allow(key string, now time.Time) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byKey[key]
	if !ok {
		e = &ipRateLimitEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(l.byKey, k)
			}
		}
	}

	return allowed
}

func (l *ipRateLimiter) middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.allow(c.IP(), time.Now()) {
			return c.Status(http.StatusTooManyRequests).JSON(map[string]any{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
