package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
	"github.com/felixgeelhaar/solvehelper/internal/llm"
)

// mockStore scopes reads by owner like the database does.
type mockStore struct {
	chats map[uuid.UUID]domain.ChatSession
	saves int
}

func newMockStore() *mockStore {
	return &mockStore{chats: map[uuid.UUID]domain.ChatSession{}}
}

func (m *mockStore) Save(ctx context.Context, c *domain.ChatSession) error {
	if existing, ok := m.chats[c.ID]; ok && existing.UserID != c.UserID {
		return domain.ErrForbidden
	}
	cp := *c
	cp.Messages = append([]domain.ChatMessage(nil), c.Messages...)
	m.chats[c.ID] = cp
	m.saves++
	return nil
}

func (m *mockStore) Get(ctx context.Context, userID, id uuid.UUID) (*domain.ChatSession, error) {
	c, ok := m.chats[id]
	if !ok || c.UserID != userID {
		return nil, domain.ErrNotFound
	}
	c.Messages = append([]domain.ChatMessage(nil), c.Messages...)
	return &c, nil
}

func (m *mockStore) List(ctx context.Context, userID uuid.UUID) ([]domain.ChatSession, error) {
	var out []domain.ChatSession
	for _, c := range m.chats {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	c, ok := m.chats[id]
	if !ok || c.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.chats, id)
	return nil
}

type mockProblems struct{}

func (mockProblems) Problem(ctx context.Context, id string) (*domain.Problem, error) {
	if id != "abc300_c" {
		return nil, domain.ErrNotFound
	}
	return &domain.Problem{ID: id, Title: "C - Range Sum", Statement: "Answer Q range sum queries."}, nil
}

type mockMeter struct {
	deny     error
	recorded map[domain.UsageKind]int
}

func (m *mockMeter) Allow(ctx context.Context, userID uuid.UUID) error { return m.deny }

func (m *mockMeter) Record(ctx context.Context, userID uuid.UUID, kind domain.UsageKind, tokens int) {
	if m.recorded == nil {
		m.recorded = map[domain.UsageKind]int{}
	}
	m.recorded[kind] += tokens
}

// mockLLM answers chat turns with reply and summary requests with summary.
type mockLLM struct {
	reply      string
	summary    string
	err        error
	summaryErr error
	requests   []*llm.Request
}

func (m *mockLLM) Name() string { return "mock" }

func (m *mockLLM) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	m.requests = append(m.requests, req)
	usage := llm.Usage{InputTokens: 10, OutputTokens: 5}
	if req.System == summarySystem {
		if m.summaryErr != nil {
			return nil, m.summaryErr
		}
		return &llm.Response{Content: m.summary, Usage: usage}, nil
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llm.Response{Content: m.reply, Usage: usage}, nil
}

func TestService_CreateAndOwnership(t *testing.T) {
	store := newMockStore()
	s := NewService(store, mockProblems{}, &mockMeter{}, &mockLLM{}, Config{})
	ctx := context.Background()
	owner, stranger := uuid.New(), uuid.New()
	problem := "abc300_c"

	c, err := s.Create(ctx, owner, CreateRequest{ProblemID: &problem})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.Title != "C - Range Sum" {
		t.Errorf("Title = %q; want problem title", c.Title)
	}

	if _, err := s.Get(ctx, stranger, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("stranger Get() err = %v; want ErrNotFound", err)
	}
	if _, _, err := s.Send(ctx, stranger, c.ID, "hi"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("stranger Send() err = %v; want ErrNotFound", err)
	}
	if err := s.Delete(ctx, stranger, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("stranger Delete() err = %v; want ErrNotFound", err)
	}
	if list, _ := s.List(ctx, stranger); len(list) != 0 {
		t.Errorf("stranger List() = %d chats; want 0", len(list))
	}

	if err := s.Delete(ctx, owner, c.ID); err != nil {
		t.Errorf("owner Delete() err = %v", err)
	}
}

func TestService_Create_Validation(t *testing.T) {
	s := NewService(newMockStore(), mockProblems{}, &mockMeter{}, &mockLLM{}, Config{})
	missing := "zzz"

	if _, err := s.Create(context.Background(), uuid.New(), CreateRequest{ProblemID: &missing}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown problem err = %v; want ErrNotFound", err)
	}

	c, err := s.Create(context.Background(), uuid.New(), CreateRequest{Title: strings.Repeat("t", 500)})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len([]rune(c.Title)) != maxTitleRunes {
		t.Errorf("title length = %d; want %d", len([]rune(c.Title)), maxTitleRunes)
	}
}

func TestService_Send(t *testing.T) {
	store := newMockStore()
	meter := &mockMeter{}
	model := &mockLLM{reply: "What does a prefix sum give you?"}
	s := NewService(store, mockProblems{}, meter, model, Config{})
	ctx := context.Background()
	user := uuid.New()
	problem := "abc300_c"

	c, _ := s.Create(ctx, user, CreateRequest{ProblemID: &problem, Hints: []string{"Think about prefixes."}})

	msg, updated, err := s.Send(ctx, user, c.ID, "  I am stuck  ")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if msg.Role != domain.ChatRoleAssistant || msg.Content != model.reply {
		t.Errorf("reply = %+v", msg)
	}
	if len(updated.Messages) != 2 || updated.Messages[0].Content != "I am stuck" {
		t.Errorf("messages = %+v", updated.Messages)
	}
	if updated.TokenCount != updated.CountTokens() {
		t.Errorf("TokenCount = %d; want %d", updated.TokenCount, updated.CountTokens())
	}

	sys := model.requests[0].System
	for _, want := range []string{"Range Sum", "Think about prefixes."} {
		if !strings.Contains(sys, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	if meter.recorded[domain.UsageChat] != 15 {
		t.Errorf("chat tokens = %d; want 15", meter.recorded[domain.UsageChat])
	}

	stored, _ := store.Get(ctx, user, c.ID)
	if len(stored.Messages) != 2 {
		t.Errorf("stored messages = %d; want 2", len(stored.Messages))
	}
}

func TestService_Send_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		meter   *mockMeter
		model   *mockLLM
		wantErr error
	}{
		{"empty message", "   ", &mockMeter{}, &mockLLM{reply: "x"}, domain.ErrInvalidInput},
		{"too long", strings.Repeat("a", maxContentRunes+1), &mockMeter{}, &mockLLM{reply: "x"}, domain.ErrInvalidInput},
		{"quota", "hi", &mockMeter{deny: domain.ErrQuotaExceeded}, &mockLLM{reply: "x"}, domain.ErrQuotaExceeded},
		{"llm down", "hi", &mockMeter{}, &mockLLM{err: llm.ErrRateLimited}, llm.ErrRateLimited},
		{"empty reply", "hi", &mockMeter{}, &mockLLM{reply: " "}, llm.ErrEmptyCompletion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			s := NewService(store, mockProblems{}, tt.meter, tt.model, Config{})
			user := uuid.New()
			c, _ := s.Create(context.Background(), user, CreateRequest{Title: "t"})
			saves := store.saves

			_, _, err := s.Send(context.Background(), user, c.ID, tt.content)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v; want %v", err, tt.wantErr)
			}
			if store.saves != saves {
				t.Error("failed send must not save")
			}
		})
	}
}

func TestService_Send_Summarizes(t *testing.T) {
	store := newMockStore()
	meter := &mockMeter{}
	model := &mockLLM{reply: strings.Repeat("r", 400), summary: "Student knows prefix sums."}
	s := NewService(store, mockProblems{}, meter, model, Config{TokenThreshold: 500, KeepRecent: 4})
	ctx := context.Background()
	user := uuid.New()
	c, _ := s.Create(ctx, user, CreateRequest{Title: "t"})

	// Each turn adds 100 + 100 tokens; the third turn crosses 500.
	var updated *domain.ChatSession
	for i := 0; i < 3; i++ {
		var err error
		_, updated, err = s.Send(ctx, user, c.ID, strings.Repeat("q", 400))
		if err != nil {
			t.Fatalf("Send() turn %d error = %v", i, err)
		}
	}

	if updated.Summary != "Student knows prefix sums." {
		t.Errorf("Summary = %q", updated.Summary)
	}
	if len(updated.Messages) != 4 {
		t.Errorf("kept %d messages; want 4", len(updated.Messages))
	}
	want := 4*100 + domain.EstimateTokens(updated.Summary)
	if updated.TokenCount != want {
		t.Errorf("TokenCount = %d; want %d", updated.TokenCount, want)
	}
	if meter.recorded[domain.UsageSummary] == 0 {
		t.Error("summary tokens were not recorded")
	}

	// The next turn resends the summary instead of the dropped messages.
	model.requests = nil
	s.Send(ctx, user, c.ID, "next")
	last := model.requests[0]
	if !strings.Contains(last.System, "Student knows prefix sums.") {
		t.Error("summary missing from system prompt")
	}
	if len(last.Messages) != 5 {
		t.Errorf("resent %d messages; want 5", len(last.Messages))
	}
}

func TestService_Send_SummaryFailureKeepsHistory(t *testing.T) {
	store := newMockStore()
	model := &mockLLM{reply: strings.Repeat("r", 400), summaryErr: errors.New("boom")}
	s := NewService(store, mockProblems{}, &mockMeter{}, model, Config{TokenThreshold: 100, KeepRecent: 2})
	user := uuid.New()
	c, _ := s.Create(context.Background(), user, CreateRequest{Title: "t"})

	s.Send(context.Background(), user, c.ID, strings.Repeat("q", 400))
	_, updated, err := s.Send(context.Background(), user, c.ID, strings.Repeat("q", 400))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(updated.Messages) != 4 || updated.Summary != "" {
		t.Errorf("messages = %d, summary = %q; want history untouched", len(updated.Messages), updated.Summary)
	}
}

func TestSummaryPrompt(t *testing.T) {
	got := summaryPrompt("old", []domain.ChatMessage{{Role: domain.ChatRoleUser, Content: "hello"}})
	if !strings.Contains(got, "Existing summary:\nold") || !strings.Contains(got, "user: hello") {
		t.Errorf("summaryPrompt() = %q", got)
	}
}
