// Package middleware provides the dashboard's HTTP middleware: rate
// limiting and JWT authentication for the read-only exploration dashboard.
package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures a token-bucket limiter.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// RateLimiter holds rate limiting configuration and per-key state.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	config   RateLimitConfig
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		config:   config,
	}
}

// getLimiter gets or creates a rate limiter for a client.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[key]; exists {
		return limiter
	}

	limiter := rate.NewLimiter(
		rate.Limit(rl.config.RequestsPerMinute)/60,
		rl.config.Burst,
	)
	rl.limiters[key] = limiter

	go func() {
		time.Sleep(10 * time.Minute)
		rl.mu.Lock()
		delete(rl.limiters, key)
		rl.mu.Unlock()
	}()

	return limiter
}

// RateLimit applies rate limiting per client IP.
func RateLimit(config RateLimitConfig) gin.HandlerFunc {
	rl := NewRateLimiter(config)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		limiter := rl.getLimiter(clientIP)

		if !limiter.Allow() {
			retryAfter := time.Second
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.Header("X-Rate-Limit-Limit", strconv.Itoa(config.RequestsPerMinute))
			c.Header("X-Rate-Limit-Remaining", "0")
			c.Header("X-Rate-Limit-Reset", strconv.FormatInt(time.Now().Add(retryAfter).Unix(), 10))

			c.JSON(http.StatusTooManyRequests, errEnvelope(
				"RATE_LIMIT_EXCEEDED",
				fmt.Sprintf("rate limit exceeded: %d requests per minute", config.RequestsPerMinute),
			))
			c.Abort()
			return
		}

		c.Header("X-Rate-Limit-Limit", strconv.Itoa(config.RequestsPerMinute))
		c.Header("X-Rate-Limit-Remaining", strconv.Itoa(config.Burst-1))
		c.Header("X-Rate-Limit-Reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))

		c.Next()
	}
}

// EndpointRateLimit applies a separate limiter per (method, route) pair,
// independent of the per-IP limiter installed globally.
func EndpointRateLimit(requestsPerMinute, burst int) gin.HandlerFunc {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerMinute: requestsPerMinute, Burst: burst})

	return func(c *gin.Context) {
		key := fmt.Sprintf("endpoint:%s:%s", c.Request.Method, c.FullPath())
		limiter := rl.getLimiter(key)

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, errEnvelope("ENDPOINT_RATE_LIMIT_EXCEEDED", "endpoint rate limit exceeded"))
			c.Abort()
			return
		}

		c.Next()
	}
}
