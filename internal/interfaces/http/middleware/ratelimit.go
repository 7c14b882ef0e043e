package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/coopmarket/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ErrCodeRateLimited is returned when a caller exceeds its request budget
const ErrCodeRateLimited = "RATE_LIMITED"

// RateLimiter hands out one token bucket per key (buyer id or client IP)
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per key with the given burst
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// Allow takes a token from the bucket of key
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		if now.Sub(rl.lastSweep) > rl.idleTTL {
			rl.evictIdle(now)
			rl.lastSweep = now
		}
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// evictIdle drops buckets unused for idleTTL. Called with mu held.
func (rl *RateLimiter) evictIdle(now time.Time) {
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.idleTTL {
			delete(rl.buckets, key)
		}
	}
}

// Middleware limits per buyer when Auth ran before it, per client IP otherwise
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if buyerID, ok := GetBuyerID(c); ok {
			key = buyerID.String()
		}
		if !rl.Allow(key) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				ErrCodeRateLimited, "Too many requests, please slow down", GetRequestID(c)))
			return
		}
		c.Next()
	}
}
