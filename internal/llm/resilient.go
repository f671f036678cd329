package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"
)

// ErrRateLimited is returned when the local request budget for a provider
// is spent.
var ErrRateLimited = errors.New("llm rate limit exceeded")

// ResilientProvider wraps an LLM provider with circuit breaking, retries,
// a concurrency bulkhead and a local rate limit.
type ResilientProvider struct {
	provider       Provider
	circuitBreaker circuitbreaker.CircuitBreaker[*Response]
	retrier        retry.Retry[*Response]
	bulkhead       bulkhead.Bulkhead[*Response]
	rateLimit      ratelimit.RateLimiter
	logger         *slog.Logger
}

// ResilientConfig holds configuration for resilient provider wrapper
type ResilientConfig struct {
	MaxAttempts   int
	MaxConcurrent int
	RatePerSecond int
	Logger        *slog.Logger
}

// DefaultResilientConfig returns defaults for hint and chat traffic.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		MaxAttempts:   3,
		MaxConcurrent: 8,
		RatePerSecond: 4,
		Logger:        slog.Default(),
	}
}

// NewResilientProvider wraps a provider with resilience patterns using fortify
func NewResilientProvider(provider Provider, cfg ResilientConfig) *ResilientProvider {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 4
	}

	rp := &ResilientProvider{provider: provider, logger: cfg.Logger}

	rp.circuitBreaker = circuitbreaker.New[*Response](circuitbreaker.Config{
		MaxRequests: 2,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			rp.logger.Warn("circuit breaker state change",
				"provider", provider.Name(),
				"from", from.String(),
				"to", to.String())
		},
	})

	rp.retrier = retry.New[*Response](retry.Config{
		MaxAttempts:   cfg.MaxAttempts,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable:   isRetryable,
	})

	rp.bulkhead = bulkhead.New[*Response](bulkhead.Config{
		MaxConcurrent: cfg.MaxConcurrent,
		MaxQueue:      cfg.MaxConcurrent * 2,
		QueueTimeout:  30 * time.Second,
	})

	rp.rateLimit = ratelimit.New(&ratelimit.Config{
		Rate:     cfg.RatePerSecond,
		Burst:    cfg.RatePerSecond * 3,
		Interval: time.Second,
	})

	return rp
}

func (p *ResilientProvider) Name() string {
	return p.provider.Name()
}

func (p *ResilientProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	if !p.rateLimit.Allow(ctx, p.provider.Name()) {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, p.provider.Name())
	}

	limited := func(ctx context.Context) (*Response, error) {
		return p.bulkhead.Execute(ctx, func(ctx context.Context) (*Response, error) {
			return p.provider.Generate(ctx, req)
		})
	}

	return p.circuitBreaker.Execute(ctx, func(ctx context.Context) (*Response, error) {
		return p.retrier.Do(ctx, limited)
	})
}

// Close releases resources held by the resilient provider
func (p *ResilientProvider) Close() error {
	return p.rateLimit.Close()
}

// isRetryable retries throttling and server-side failures only.
func isRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
