package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// mockProvider is a test implementation of Provider
type mockProvider struct {
	name     string
	response *Response
	err      error
	calls    atomic.Int32
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func TestRegistry_SetDefault(t *testing.T) {
	r := NewRegistry()
	p := &mockProvider{name: "test"}

	if err := r.SetDefault("test"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("SetDefault() before Register err = %v; want ErrProviderNotFound", err)
	}

	r.Register("test", p)
	if err := r.SetDefault("test"); err != nil {
		t.Fatalf("SetDefault() error = %v", err)
	}

	got, err := r.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if got != p {
		t.Error("Default() returned wrong provider")
	}
}

func TestRegistry_DefaultFallsBackToFirstByName(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Default(); !errors.Is(err, ErrNoDefaultProvider) {
		t.Fatalf("Default() on empty registry err = %v", err)
	}

	zeta := &mockProvider{name: "zeta"}
	alpha := &mockProvider{name: "alpha"}
	r.Register("zeta", zeta)
	r.Register("alpha", alpha)

	for i := 0; i < 5; i++ {
		got, err := r.Default()
		if err != nil {
			t.Fatalf("Default() error = %v", err)
		}
		if got != alpha {
			t.Fatalf("Default() = %s; want alpha", got.Name())
		}
	}

	names := r.List()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("List() = %v; want [alpha zeta]", names)
	}
}

func TestComplete(t *testing.T) {
	tests := []struct {
		name    string
		resp    *Response
		err     error
		want    string
		wantErr error
	}{
		{"trims output", &Response{Content: "  hello \n"}, nil, "hello", nil},
		{"empty output", &Response{Content: "   "}, nil, "", ErrEmptyCompletion},
		{"provider failure", nil, errors.New("boom"), "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProvider{name: "m", response: tt.resp, err: tt.err}
			got, _, err := Complete(context.Background(), p, "sys", "prompt", 100)
			if tt.err != nil {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v; want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Complete() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestUsage_Total(t *testing.T) {
	u := Usage{InputTokens: 120, OutputTokens: 30}
	if u.Total() != 150 {
		t.Errorf("Total() = %d; want 150", u.Total())
	}
}

func TestClaudeProvider_Generate_HTTPSuccess(t *testing.T) {
	var got claudeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s; want /v1/messages", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "key" {
			t.Errorf("missing api key header")
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"Think about parity."}],"stop_reason":"end_turn","usage":{"input_tokens":12,"output_tokens":5}}`))
	}))
	defer server.Close()

	p := NewClaudeProvider(ClaudeConfig{APIKey: "key", BaseURL: server.URL})
	resp, err := p.Generate(context.Background(), &Request{
		System:   "tutor",
		Messages: []Message{{Role: RoleUser, Content: "help"}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Content != "Think about parity." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.Total() != 17 {
		t.Errorf("Usage.Total() = %d; want 17", resp.Usage.Total())
	}
	if got.System != "tutor" || got.MaxTokens != 1024 || len(got.Messages) != 1 {
		t.Errorf("unexpected request body: %+v", got)
	}
}

func TestOpenAIProvider_Generate_SystemMessageFirst(t *testing.T) {
	var got openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":1}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "key", BaseURL: server.URL})
	resp, err := p.Generate(context.Background(), &Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q; want ok", resp.Content)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("messages = %+v; want system first", got.Messages)
	}
}

func TestOpenAIProvider_Generate_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{BaseURL: server.URL})
	if _, err := p.Generate(context.Background(), &Request{}); !errors.Is(err, ErrEmptyCompletion) {
		t.Errorf("err = %v; want ErrEmptyCompletion", err)
	}
}

func TestOllamaProvider_Generate_HTTPSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s; want /api/chat", r.URL.Path)
		}
		w.Write([]byte(`{"message":{"role":"assistant","content":"local"},"done_reason":"stop","prompt_eval_count":4,"eval_count":2}`))
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: server.URL})
	resp, err := p.Generate(context.Background(), &Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Content != "local" || resp.Usage.Total() != 6 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestProvider_HTTPErrorIsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad"}`))
	}))
	defer server.Close()

	p := NewClaudeProvider(ClaudeConfig{BaseURL: server.URL})
	_, err := p.Generate(context.Background(), &Request{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v; want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d; want 400", apiErr.StatusCode)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("dial tcp: refused"), false},
		{"429", &APIError{StatusCode: 429}, true},
		{"503", &APIError{StatusCode: 503}, true},
		{"400", &APIError{StatusCode: 400}, false},
		{"401", &APIError{StatusCode: 401}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %v; want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestResilientProvider_Generate_Success(t *testing.T) {
	inner := &mockProvider{name: "inner", response: &Response{Content: "ok"}}
	rp := NewResilientProvider(inner, DefaultResilientConfig())
	defer rp.Close()

	resp, err := rp.Generate(context.Background(), &Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q; want ok", resp.Content)
	}
	if rp.Name() != "inner" {
		t.Errorf("Name() = %q; want inner", rp.Name())
	}
}

func TestResilientProvider_DoesNotRetryClientErrors(t *testing.T) {
	inner := &mockProvider{name: "inner", err: &APIError{StatusCode: http.StatusUnauthorized}}
	rp := NewResilientProvider(inner, DefaultResilientConfig())
	defer rp.Close()

	if _, err := rp.Generate(context.Background(), &Request{}); err == nil {
		t.Fatal("expected error")
	}
	if n := inner.calls.Load(); n != 1 {
		t.Errorf("provider called %d times; want 1", n)
	}
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry()
	rp := NewResilientProvider(&mockProvider{name: "a"}, DefaultResilientConfig())
	r.Register("a", rp)
	r.Register("b", &mockProvider{name: "b"})
	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
