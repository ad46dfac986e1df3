package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const purgeInterval = 5 * time.Minute

// rateEntry tracks request counts per key within a fixed window.
type rateEntry struct {
	count     int
	windowEnd time.Time
}

// RateLimiter allows limit requests per window per tenant, falling back to
// the client IP on routes without a tenant.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	entries   map[string]*rateEntry
	lastPurge time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*rateEntry),
	}
}

func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := GetTenant(c).String()
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		ok, retryAt := rl.allow(key)
		if !ok {
			c.Header("Retry-After", retryAt.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("too many requests, try again shortly"))
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(key string) (bool, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastPurge) >= purgeInterval {
		rl.purgeLocked(now)
	}

	entry, ok := rl.entries[key]
	if !ok || now.After(entry.windowEnd) {
		entry = &rateEntry{windowEnd: now.Add(rl.window)}
		rl.entries[key] = entry
	}
	entry.count++
	return entry.count <= rl.limit, entry.windowEnd
}

// purgeLocked drops expired windows so keys that never return do not leak.
func (rl *RateLimiter) purgeLocked(now time.Time) {
	purged := 0
	for k, e := range rl.entries {
		if now.After(e.windowEnd) {
			delete(rl.entries, k)
			purged++
		}
	}
	rl.lastPurge = now
	if purged > 0 {
		log.Debug().Int("purged", purged).Int("remaining", len(rl.entries)).Msg("rate limiter entries purged")
	}
}
