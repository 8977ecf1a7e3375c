package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────────────────
// Per-IP token bucket rate limiter
// ──────────────────────────────────────────────────────────────────────────────

// ipBucket tracks the remaining allowance for a single client IP.
type ipBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// ipLimiter maps client IPs to their buckets. Buckets refill continuously at
// rate tokens per second up to burst capacity.
type ipLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*ipBucket
	rate    float64
	burst   float64
}

func newIPLimiter(rps int) *ipLimiter {
	// Burst absorbs short spikes; never below 10 so low-rate limiters do not
	// trip on a single page load.
	burst := float64(rps)
	if burst < 10 {
		burst = 10
	}
	return &ipLimiter{
		buckets: make(map[string]*ipBucket),
		rate:    float64(rps),
		burst:   burst,
	}
}

func (l *ipLimiter) bucketFor(ip string) *ipBucket {
	l.mu.RLock()
	b, ok := l.buckets[ip]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok = l.buckets[ip]; !ok {
		b = &ipBucket{tokens: l.burst, lastRefill: time.Now()}
		l.buckets[ip] = b
	}
	return b
}

// allow deducts one token from the IP's bucket, refilling based on elapsed
// time first. Returns false when the bucket is empty.
func (l *ipLimiter) allow(ip string) bool {
	b := l.bucketFor(ip)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastRefill).Seconds() * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.lastRefill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// evictIdle drops buckets not touched since the cutoff so the map does not
// grow without bound.
func (l *ipLimiter) evictIdle(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, b := range l.buckets {
		b.mu.Lock()
		idle := b.lastRefill.Before(cutoff)
		b.mu.Unlock()
		if idle {
			delete(l.buckets, ip)
		}
	}
}

// RateLimitMiddleware enforces a per-IP token bucket limit of rps requests
// per second. Clients over the limit receive 429 Too Many Requests.
func RateLimitMiddleware(rps int) gin.HandlerFunc {
	l := newIPLimiter(rps)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			l.evictIdle(time.Now().Add(-10 * time.Minute))
		}
	}()

	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
			})
			return
		}
		c.Next()
	}
}
