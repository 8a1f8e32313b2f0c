package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// IPRateLimiter hands out one token bucket per client IP. Buckets unused for
// idle are dropped; by then they would have refilled anyway.
type IPRateLimiter struct {
	limiters *cache.Cache
	mu       sync.Mutex
	r        rate.Limit
	b        int
}

// NewIPRateLimiter creates an IPRateLimiter.
func NewIPRateLimiter(r rate.Limit, b int, idle time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: cache.New(idle, idle),
		r:        r,
		b:        b,
	}
}

// GetLimiter returns the bucket for ip and pushes back its expiry.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, found := i.limiters.Get(ip)
	if !found {
		limiter = rate.NewLimiter(i.r, i.b)
	}
	i.limiters.SetDefault(ip, limiter)
	return limiter.(*rate.Limiter)
}

// Len reports how many client buckets are held.
func (i *IPRateLimiter) Len() int {
	return i.limiters.ItemCount()
}

// idleFor is how long a drained bucket takes to refill, with a floor.
func idleFor(r rate.Limit, b int) time.Duration {
	idle := time.Minute
	if r > 0 {
		if refill := time.Duration(float64(b) / float64(r) * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return idle
}

// RateLimiter rejects clients that exceed r requests per second with bursts
// of b. message is returned in the 429 body.
func RateLimiter(r rate.Limit, b int, message string) gin.HandlerFunc {
	return rateLimit(NewIPRateLimiter(r, b, idleFor(r, b)), message)
}

func rateLimit(limiter *IPRateLimiter, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := limiter.GetLimiter(c.ClientIP())
		if !l.Allow() {
			if l.Limit() > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(1/float64(l.Limit())))))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": message})
			return
		}
		c.Next()
	}
}
