package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a per-key token bucket. Buckets idle longer than the
// cleanup interval are dropped.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     int           // tokens added per interval
	interval time.Duration // refill interval
	burst    int           // bucket capacity
	cleanup  time.Duration
	now      func() time.Time
}

type bucket struct {
	tokens    int
	lastCheck time.Time
}

// NewRateLimiter allows rate requests per interval per key, with bursts of
// up to burst requests.
func NewRateLimiter(rate int, interval time.Duration, burst int) *RateLimiter {
	rl := &RateLimiter{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		interval: interval,
		burst:    burst,
		cleanup:  5 * time.Minute,
		now:      time.Now,
	}
	go rl.cleanupLoop()
	return rl
}

// Allow takes a token for key and reports whether one was available.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		rl.buckets[key] = &bucket{tokens: rl.burst - 1, lastCheck: now}
		return rl.burst > 0
	}

	// Whole intervals only; the remainder carries over to the next call.
	if intervals := int(now.Sub(b.lastCheck) / rl.interval); intervals > 0 {
		b.tokens = min(b.tokens+intervals*rl.rate, rl.burst)
		b.lastCheck = b.lastCheck.Add(time.Duration(intervals) * rl.interval)
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Remaining returns the tokens left for key.
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if b, ok := rl.buckets[key]; ok {
		return max(b.tokens, 0)
	}
	return rl.burst
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		cutoff := rl.now().Add(-rl.cleanup)
		for key, b := range rl.buckets {
			if b.lastCheck.Before(cutoff) {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimitConfig configures the rate limiting middleware
type RateLimitConfig struct {
	// Requests per minute per client for all endpoints
	RequestsPerMinute int
	// Requests per minute per user for LLM-backed endpoints
	ExpensiveRequestsPerMinute int
	// Burst size multiplier (burst = rate * multiplier)
	BurstMultiplier int
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute:          120,
		ExpensiveRequestsPerMinute: 10,
		BurstMultiplier:            3,
	}
}

// RateLimitMiddleware limits every request by client IP
func RateLimitMiddleware(config RateLimitConfig) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(
		config.RequestsPerMinute,
		time.Minute,
		config.RequestsPerMinute*config.BurstMultiplier,
	)
	return limit(limiter, getClientIP, "too many requests, please try again later")
}

// ExpensiveRateLimitMiddleware limits LLM-backed requests per user. It must
// run after Auth; unauthenticated requests fall back to the client IP.
func ExpensiveRateLimitMiddleware(config RateLimitConfig) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(
		config.ExpensiveRequestsPerMinute,
		time.Minute,
		config.ExpensiveRequestsPerMinute*config.BurstMultiplier,
	)
	key := func(r *http.Request) string {
		if id, ok := GetUserID(r.Context()); ok {
			return "user:" + id.String()
		}
		return getClientIP(r)
	}
	return limit(limiter, key, "too many AI requests, please wait before trying again")
}

func limit(limiter *RateLimiter, key func(*http.Request) string, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if !limiter.Allow(k) {
				slog.Warn("rate limit exceeded",
					"key", k,
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
				)
				w.Header().Set("Retry-After", "60")
				w.Header().Set("X-RateLimit-Remaining", "0")
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", message)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(k)))
			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
