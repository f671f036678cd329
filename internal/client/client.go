// Package client is a small JSON client for the solvehelperd API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

// ErrNotLoggedIn is returned when a call needs a token and none is set.
var ErrNotLoggedIn = errors.New("not logged in (run 'solvehelper login')")

// Error is an error response from the API
type Error struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
}

// Unwrap maps the status onto the matching domain error.
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusTooManyRequests:
		return domain.ErrQuotaExceeded
	}
	if e.Code == "NO_HINT_AVAILABLE" {
		return domain.ErrNoHintAvailable
	}
	return nil
}

// Client calls the API with a bearer token
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client. token may be empty for login and health calls.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// HasToken reports whether authenticated calls can be made.
func (c *Client) HasToken() bool {
	return c.token != ""
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &Error{Status: resp.StatusCode, Code: "HTTP_ERROR", Message: resp.Status}
		var envelope struct {
			Error *Error `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&envelope) == nil && envelope.Error != nil {
			apiErr.Code, apiErr.Message = envelope.Error.Code, envelope.Error.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) authed(ctx context.Context, method, path string, in, out any) error {
	if c.token == "" {
		return ErrNotLoggedIn
	}
	return c.do(ctx, method, path, in, out)
}

// Health checks that the daemon is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Login is a successful login
type Login struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (*Login, error) {
	var out Login
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the logged-in user.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var out struct {
		User domain.User `json:"user"`
	}
	if err := c.authed(ctx, http.MethodGet, "/api/v1/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Problem loads a problem with its statement.
func (c *Client) Problem(ctx context.Context, id string) (*domain.Problem, error) {
	var out struct {
		Problem domain.Problem `json:"problem"`
	}
	if err := c.authed(ctx, http.MethodGet, "/api/v1/problems/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out.Problem, nil
}

// Session is a practice session with its server-side timer state
type Session struct {
	domain.PracticeSession
	TimeLimitSeconds  int64  `json:"time_limit_seconds"`
	ElapsedSeconds    int64  `json:"elapsed_seconds"`
	RemainingSeconds  int64  `json:"remaining_seconds"`
	UnlockedHints     int    `json:"unlocked_hints"`
	TotalHints        int    `json:"total_hints"`
	NextUnlockSeconds *int64 `json:"next_unlock_seconds,omitempty"`
	// Praise is filled by Check when the check found a new solve.
	Praise string `json:"-"`
}

type sessionEnvelope struct {
	Session Session `json:"session"`
}

// StartPractice opens a server session; a zero limit is untimed.
func (c *Client) StartPractice(ctx context.Context, problemID string, limit time.Duration) (*Session, error) {
	var out sessionEnvelope
	err := c.authed(ctx, http.MethodPost, "/api/v1/practice", map[string]any{
		"problem_id":         problemID,
		"time_limit_seconds": int(limit / time.Second),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Session, nil
}

// Progress is client timer state reported to the server
type Progress struct {
	Elapsed   time.Duration
	HintsUsed int
	Paused    bool
}

// SavePractice reports timer progress.
func (c *Client) SavePractice(ctx context.Context, id uuid.UUID, p Progress) (*Session, error) {
	var out sessionEnvelope
	err := c.authed(ctx, http.MethodPut, "/api/v1/practice/"+id.String(), map[string]any{
		"elapsed_seconds": int(p.Elapsed / time.Second),
		"hints_used":      p.HintsUsed,
		"paused":          p.Paused,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Session, nil
}

// Hint is a revealed practice hint
type Hint struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	Remaining int    `json:"remaining"`
}

// RevealHint consumes the next unlocked hint.
func (c *Client) RevealHint(ctx context.Context, id uuid.UUID) (*Hint, *Session, error) {
	var out struct {
		Hint    Hint    `json:"hint"`
		Session Session `json:"session"`
	}
	if err := c.authed(ctx, http.MethodPost, "/api/v1/practice/"+id.String()+"/hints", nil, &out); err != nil {
		return nil, nil, err
	}
	return &out.Hint, &out.Session, nil
}

// Check asks the server to look for an accepted submission.
func (c *Client) Check(ctx context.Context, id uuid.UUID) (bool, *Session, error) {
	var out struct {
		Solved  bool    `json:"solved"`
		Session Session `json:"session"`
		Praise  *struct {
			Text string `json:"text"`
		} `json:"praise"`
	}
	if err := c.authed(ctx, http.MethodPost, "/api/v1/practice/"+id.String()+"/check", nil, &out); err != nil {
		return false, nil, err
	}
	if out.Praise != nil {
		out.Session.Praise = out.Praise.Text
	}
	return out.Solved, &out.Session, nil
}
