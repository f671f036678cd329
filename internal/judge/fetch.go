// Package judge talks to the external judge: the aggregator JSON API for
// bulk contest, problem and submission data, and the judge's own HTML pages
// for statements, editorials and profiles.
package judge

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

const userAgent = "solvehelper/1.0 (+https://github.com/felixgeelhaar/solvehelper)"

// maxBody caps how much of a response is read into memory.
const maxBody = 64 << 20

// StatusError is a non-2xx response from the judge or aggregator.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

// Unwrap lets errors.Is(err, domain.ErrNotFound) match a 404.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return nil
}

// Options configures outbound calls.
type Options struct {
	BaseURL     string
	Pause       time.Duration // minimum spacing between consecutive calls
	MaxAttempts int
	RetryDelay  time.Duration
	HTTPClient  *http.Client
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 2 * time.Second
	}
	if o.HTTPClient == nil {
		o.HTTPClient = newHTTPClient()
	}
	return o
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 2,
		},
	}
}

// Pacer spaces calls at least interval apart. It is safe for concurrent use;
// callers queue up behind each other.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewPacer creates a pacer; an interval of zero disables waiting.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Wait blocks until the interval since the previous call has passed.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.interval > 0 && !p.last.IsZero() {
		if d := time.Until(p.last.Add(p.interval)); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	p.last = time.Now()
	return nil
}

// fetcher performs paced, retried GET requests.
type fetcher struct {
	client  *http.Client
	pacer   *Pacer
	retrier retry.Retry[[]byte]
}

func newFetcher(opts Options) *fetcher {
	return &fetcher{
		client: opts.HTTPClient,
		pacer:  NewPacer(opts.Pause),
		retrier: retry.New[[]byte](retry.Config{
			MaxAttempts:   opts.MaxAttempts,
			InitialDelay:  opts.RetryDelay,
			MaxDelay:      30 * time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable:   isRetryable,
		}),
	}
}

func (f *fetcher) get(ctx context.Context, url, accept string) ([]byte, error) {
	return f.retrier.Do(ctx, func(ctx context.Context) ([]byte, error) {
		if err := f.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", accept)
		// aggregator requires gzip-capable clients
		req.Header.Set("Accept-Encoding", "gzip")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return nil, &StatusError{Code: resp.StatusCode, URL: url}
		}

		body, err := readBody(resp)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	})
}

// isRetryable retries throttling, server failures and transport errors.
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}
	return true
}

// readBody decodes gzip itself because an explicit Accept-Encoding header
// turns off the transport's transparent decompression.
func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(io.LimitReader(r, maxBody))
}
