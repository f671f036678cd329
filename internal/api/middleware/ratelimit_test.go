package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func fakeClock(rl *RateLimiter) *time.Time {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return &now
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(5, time.Second, 5)
	fakeClock(rl)

	for i := 0; i < 5; i++ {
		if !rl.Allow("client") {
			t.Errorf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("client") {
		t.Error("6th request should be denied")
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	rl := NewRateLimiter(1, time.Second, 2)
	now := fakeClock(rl)

	rl.Allow("c")
	rl.Allow("c")
	if rl.Allow("c") {
		t.Fatal("should be denied after burst exhausted")
	}

	*now = now.Add(1500 * time.Millisecond)
	if !rl.Allow("c") {
		t.Fatal("should be allowed after one interval")
	}
	if rl.Allow("c") {
		t.Fatal("only one token refilled")
	}

	// The half interval left over counts toward the next token.
	*now = now.Add(500 * time.Millisecond)
	if !rl.Allow("c") {
		t.Error("carried-over remainder should complete an interval")
	}
}

func TestRateLimiter_MultipleClients(t *testing.T) {
	rl := NewRateLimiter(2, time.Second, 2)
	fakeClock(rl)

	rl.Allow("client-1")
	rl.Allow("client-1")
	if rl.Allow("client-1") {
		t.Error("client 1 should be denied")
	}
	if !rl.Allow("client-2") {
		t.Error("client 2 should be allowed")
	}
}

func TestRateLimiter_Remaining(t *testing.T) {
	rl := NewRateLimiter(5, time.Second, 5)
	fakeClock(rl)

	if got := rl.Remaining("k"); got != 5 {
		t.Errorf("Remaining = %d; want 5", got)
	}
	rl.Allow("k")
	if got := rl.Remaining("k"); got != 4 {
		t.Errorf("Remaining = %d; want 4", got)
	}
}

func TestExpensiveRateLimit_KeysByUser(t *testing.T) {
	mw := ExpensiveRateLimitMiddleware(RateLimitConfig{ExpensiveRequestsPerMinute: 1, BurstMultiplier: 1})
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(user uuid.UUID) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/problems/1A/hints", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		req = req.WithContext(WithUserID(req.Context(), user))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	alice, bob := uuid.New(), uuid.New()
	if code := call(alice); code != http.StatusOK {
		t.Fatalf("first call = %d", code)
	}
	if code := call(alice); code != http.StatusTooManyRequests {
		t.Errorf("second call = %d; want 429", code)
	}
	if code := call(bob); code != http.StatusOK {
		t.Errorf("other user from same IP = %d; want 200", code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "10.0.0.2:1", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "5.6.7.8"}, "10.0.0.2:1", "5.6.7.8"},
		{"remote addr", nil, "9.9.9.9:4242", "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q; want %q", got, tt.want)
			}
		})
	}
}
