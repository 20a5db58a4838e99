package mw

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// ClientRateLimiter keeps one rate limiter per client. Limiters of clients
// that stay quiet for the idle period are dropped.
type ClientRateLimiter struct {
	clients *cache.Cache
	r       rate.Limit
	b       int
}

// NewClientRateLimiter creates a new ClientRateLimiter.
func NewClientRateLimiter(r rate.Limit, b int, idle time.Duration) *ClientRateLimiter {
	return &ClientRateLimiter{
		clients: cache.New(idle, idle),
		r:       r,
		b:       b,
	}
}

// GetLimiter returns the rate limiter for a client key.
func (l *ClientRateLimiter) GetLimiter(key string) *rate.Limiter {
	if limiter, ok := l.clients.Get(key); ok {
		l.clients.SetDefault(key, limiter)
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(l.r, l.b)
	// Add fails when another request created the limiter first.
	if err := l.clients.Add(key, limiter, cache.DefaultExpiration); err != nil {
		if existing, ok := l.clients.Get(key); ok {
			return existing.(*rate.Limiter)
		}
	}
	return limiter
}

// ClientKey identifies the caller by the first address in header, or by
// gin's client IP when the header is unset or missing.
func ClientKey(c *gin.Context, header string) string {
	if header != "" {
		if v := c.GetHeader(header); v != "" {
			first, _, _ := strings.Cut(v, ",")
			return strings.TrimSpace(first)
		}
	}
	return c.ClientIP()
}

// RateLimiter is a middleware for per-client rate limiting.
func RateLimiter(r rate.Limit, b int, header string) gin.HandlerFunc {
	limiter := NewClientRateLimiter(r, b, 10*time.Minute)
	return func(c *gin.Context) {
		if !limiter.GetLimiter(ClientKey(c, header)).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
