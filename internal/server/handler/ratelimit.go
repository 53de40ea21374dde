package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiters tracks one token bucket per client IP. Stale buckets are
// pruned inline every pruneEvery admissions instead of from a background
// goroutine, so the middleware owns no lifecycle.
type clientLimiters struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	rps     rate.Limit
	burst   int
	seen    int
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const (
	pruneEvery = 1024
	staleAfter = 10 * time.Minute
)

func (cl *clientLimiters) allow(ip string) bool {
	cl.mu.Lock()
	b, ok := cl.buckets[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(cl.rps, cl.burst)}
		cl.buckets[ip] = b
	}
	b.lastSeen = time.Now()

	cl.seen++
	if cl.seen >= pruneEvery {
		cl.seen = 0
		for addr, bucket := range cl.buckets {
			if time.Since(bucket.lastSeen) > staleAfter {
				delete(cl.buckets, addr)
			}
		}
	}
	cl.mu.Unlock()

	return b.limiter.Allow()
}

// RateLimiter returns a Gin middleware enforcing per-IP token-bucket rate
// limiting. rps is the steady-state requests per second; burst is the maximum
// burst size.
func RateLimiter(rps, burst int) gin.HandlerFunc {
	cl := &clientLimiters{
		buckets: make(map[string]*clientBucket),
		rps:     rate.Limit(rps),
		burst:   burst,
	}

	return func(c *gin.Context) {
		if !cl.allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
