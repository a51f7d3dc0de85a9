package router

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cuongbtq/media-gateway/internal/api/dto"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig allows Requests per Window for each client IP
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter hands out one token bucket per client IP. Buckets idle for a
// full window are dropped on the next prune.
type ipLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	interval  time.Duration
	burst     int
	window    time.Duration
	lastPrune time.Time
	now       func() time.Time
}

func newIPLimiter(cfg RateLimitConfig) *ipLimiter {
	if cfg.Requests <= 0 {
		cfg.Requests = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.Requests
	}
	return &ipLimiter{
		visitors: make(map[string]*visitor),
		interval: cfg.Window / time.Duration(cfg.Requests),
		burst:    burst,
		window:   cfg.Window,
		now:      time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) > l.window {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.window {
				delete(l.visitors, key)
			}
		}
		l.lastPrune = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(l.interval), l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// retryAfter is the time until one more token is available
func (l *ipLimiter) retryAfter() string {
	seconds := math.Ceil(l.interval.Seconds())
	return strconv.Itoa(int(seconds))
}

// RateLimitMiddleware rejects clients that exceed their per-IP budget with 429
func RateLimitMiddleware(cfg RateLimitConfig) gin.HandlerFunc {
	limiter := newIPLimiter(cfg)

	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.Header("Retry-After", limiter.retryAfter())
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.Failure(dto.CodeRateLimited, "too many requests, try again later"))
			return
		}
		c.Next()
	}
}
