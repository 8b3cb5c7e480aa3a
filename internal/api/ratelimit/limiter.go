// Package ratelimit throttles requests that end up calling the upstream
// metadata provider, whose free tier has a daily quota.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// DefaultWindow is the bucket length used by NewLimiter.
const DefaultWindow = time.Minute

type ipBucket struct {
	count     int
	resetTime time.Time
}

// Limiter is a fixed-window request counter per client IP.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*ipBucket
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewLimiter allows limit requests per IP per minute.
func NewLimiter(limit int) *Limiter {
	return NewLimiterWithWindow(limit, DefaultWindow)
}

// NewLimiterWithWindow allows limit requests per IP per window.
func NewLimiterWithWindow(limit int, window time.Duration) *Limiter {
	return &Limiter{
		buckets: make(map[string]*ipBucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Middleware rejects requests over the limit with 429 and a Retry-After
// header. A non-positive limit disables it.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l.limit <= 0 {
				return next(c)
			}
			ok, retryAfter := l.Allow(c.RealIP())
			if !ok {
				secs := int(retryAfter.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, try again later")
			}
			return next(c)
		}
	}
}

// Allow counts one request from ip. When the limit is reached it returns
// false and the time until the window resets.
func (l *Limiter) Allow(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	bucket, exists := l.buckets[ip]
	if !exists || !now.Before(bucket.resetTime) {
		l.buckets[ip] = &ipBucket{
			count:     1,
			resetTime: now.Add(l.window),
		}
		return true, 0
	}

	if bucket.count >= l.limit {
		return false, bucket.resetTime.Sub(now)
	}

	bucket.count++
	return true, 0
}

// Cleanup drops buckets whose window has passed.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for ip, bucket := range l.buckets {
		if !now.Before(bucket.resetTime) {
			delete(l.buckets, ip)
		}
	}
}

// Len returns the number of tracked IPs.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
