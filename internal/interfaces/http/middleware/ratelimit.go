package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/erp/mason/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window in-memory limiter keyed by client.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int
	window  time.Duration
	now     func() time.Time
}

type window struct {
	remaining int
	start     time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window per key.
// Expired keys are swept until ctx is done.
func NewRateLimiter(ctx context.Context, limit int, every time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		window:  every,
		now:     time.Now,
	}
	go rl.sweep(ctx)
	return rl
}

func (rl *RateLimiter) sweep(ctx context.Context) {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, w := range rl.clients {
				if now.Sub(w.start) > rl.window*2 {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Allow consumes one request for key and reports whether it fits the window,
// along with what is left.
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[key]
	if !ok || now.Sub(w.start) >= rl.window {
		w = &window{remaining: rl.limit, start: now}
		rl.clients[key] = w
	}
	if w.remaining == 0 {
		return false, 0
	}
	w.remaining--
	return true, w.remaining
}

// Limit returns the per-window request limit.
func (rl *RateLimiter) Limit() int { return rl.limit }

// RateLimit limits by client IP.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string { return c.ClientIP() })
}

// RateLimitByUser limits authenticated requests per user and falls back to the client IP.
func RateLimitByUser(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string {
		if claims := ClaimsFrom(c); claims != nil {
			return "user:" + claims.UserID
		}
		return "ip:" + c.ClientIP()
	})
}

// RateLimitByKey limits with a custom key extractor.
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, remaining := limiter.Allow(keyFunc(c))
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(limiter.window.Seconds())))
			abort(c, dto.ErrCodeRateLimited, "Too many requests. Please try again later.")
			return
		}
		c.Next()
	}
}
