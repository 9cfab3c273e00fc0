package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// staleAfter is how long an idle client keeps its bucket before it is
// pruned. Webhook traffic comes from a small set of transport IPs, so the
// map stays tiny in practice.
const staleAfter = 10 * time.Minute

// RateLimiter is an in-memory per-client token bucket guarding the webhook
// endpoint. State is process-local; with multiple replicas each enforces
// its own share of the limit.
type RateLimiter struct {
	capacity  int
	perMinute int

	mu      sync.Mutex
	buckets map[string]*bucket
	swept   time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter allows perMinute requests per client with bursts up to
// capacity.
func NewRateLimiter(capacity, perMinute int) *RateLimiter {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &RateLimiter{
		capacity:  capacity,
		perMinute: perMinute,
		buckets:   make(map[string]*bucket),
		swept:     time.Now(),
	}
}

// Middleware returns a gin handler enforcing the per-client limit, keyed by
// client IP.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if key == "" {
			key = "unknown"
		}
		if !l.allow(key, time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit"})
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > staleAfter {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > staleAfter {
				delete(l.buckets, k)
			}
		}
		l.swept = now
	}

	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{tokens: float64(l.capacity) - 1, seen: now}
		return true
	}

	refill := now.Sub(b.seen).Minutes() * float64(l.perMinute)
	b.tokens += refill
	if b.tokens > float64(l.capacity) {
		b.tokens = float64(l.capacity)
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
