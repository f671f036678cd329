// Package chat runs tutoring conversations and keeps them inside a token
// budget by folding older turns into a rolling summary.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
	"github.com/felixgeelhaar/solvehelper/internal/llm"
)

const (
	// DefaultTokenThreshold triggers summarization.
	DefaultTokenThreshold = 3000
	// DefaultKeepRecent is the number of messages kept verbatim.
	DefaultKeepRecent = 6

	maxTitleRunes   = 120
	maxContentRunes = 8000
	problemRunes    = 4000
)

// Store persists chat sessions. Reads and deletes are scoped to the owner.
type Store interface {
	Save(ctx context.Context, c *domain.ChatSession) error
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.ChatSession, error)
	List(ctx context.Context, userID uuid.UUID) ([]domain.ChatSession, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// ProblemSource loads the problem a chat is about.
type ProblemSource interface {
	Problem(ctx context.Context, id string) (*domain.Problem, error)
}

// Meter gates and records per-user AI usage.
type Meter interface {
	Allow(ctx context.Context, userID uuid.UUID) error
	Record(ctx context.Context, userID uuid.UUID, kind domain.UsageKind, tokens int)
}

// Config tunes summarization.
type Config struct {
	TokenThreshold int
	KeepRecent     int
}

// Service manages chat sessions.
type Service struct {
	store    Store
	problems ProblemSource
	meter    Meter
	llm      llm.Provider
	cfg      Config
	now      func() time.Time
}

// NewService creates a chat service.
func NewService(store Store, problems ProblemSource, meter Meter, provider llm.Provider, cfg Config) *Service {
	if cfg.TokenThreshold <= 0 {
		cfg.TokenThreshold = DefaultTokenThreshold
	}
	if cfg.KeepRecent <= 0 {
		cfg.KeepRecent = DefaultKeepRecent
	}
	return &Service{store: store, problems: problems, meter: meter, llm: provider, cfg: cfg, now: time.Now}
}

// CreateRequest starts a chat.
type CreateRequest struct {
	ProblemID *string
	Title     string
	Hints     []string
}

// Create starts an empty chat owned by userID.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*domain.ChatSession, error) {
	title := strings.TrimSpace(req.Title)
	if req.ProblemID != nil {
		p, err := s.problems.Problem(ctx, *req.ProblemID)
		if err != nil {
			return nil, fmt.Errorf("load problem: %w", err)
		}
		if title == "" {
			title = p.Title
		}
	}
	if title == "" {
		title = "New chat"
	}

	now := s.now().UTC()
	c := &domain.ChatSession{
		ID:        uuid.New(),
		UserID:    userID,
		ProblemID: req.ProblemID,
		Title:     clip(title, maxTitleRunes),
		Hints:     req.Hints,
		Messages:  []domain.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save chat: %w", err)
	}
	return c, nil
}

// Get returns a chat owned by userID.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*domain.ChatSession, error) {
	return s.store.Get(ctx, userID, id)
}

// List returns the user's chats, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]domain.ChatSession, error) {
	return s.store.List(ctx, userID)
}

// Delete removes a chat owned by userID.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.Delete(ctx, userID, id)
}

// Send appends the user's message, asks the model for a reply and saves
// both. Nothing is saved when the model call fails.
func (s *Service) Send(ctx context.Context, userID, id uuid.UUID, content string) (*domain.ChatMessage, *domain.ChatSession, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil, fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}
	if len([]rune(content)) > maxContentRunes {
		return nil, nil, fmt.Errorf("%w: message longer than %d characters", domain.ErrInvalidInput, maxContentRunes)
	}

	c, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	if err := s.meter.Allow(ctx, userID); err != nil {
		return nil, nil, err
	}

	c.Append(domain.ChatRoleUser, content, s.now().UTC())

	system, err := s.systemPrompt(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	req := &llm.Request{System: system, MaxTokens: 1024, Temperature: 0.5}
	for _, m := range c.Messages {
		req.Messages = append(req.Messages, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}

	resp, err := s.llm.Generate(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("chat completion: %w", err)
	}
	s.meter.Record(ctx, userID, domain.UsageChat, resp.Usage.Total())
	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		return nil, nil, llm.ErrEmptyCompletion
	}

	c.Append(domain.ChatRoleAssistant, reply, s.now().UTC())
	msg := c.Messages[len(c.Messages)-1]

	s.maybeSummarize(ctx, c)

	if err := s.store.Save(ctx, c); err != nil {
		return nil, nil, fmt.Errorf("save chat: %w", err)
	}
	return &msg, c, nil
}

// maybeSummarize folds everything but the last KeepRecent messages into
// the summary once the session exceeds the token threshold. A failed
// summary leaves the session unchanged.
func (s *Service) maybeSummarize(ctx context.Context, c *domain.ChatSession) {
	if c.TokenCount <= s.cfg.TokenThreshold || len(c.Messages) <= s.cfg.KeepRecent {
		return
	}
	older := c.Messages[:len(c.Messages)-s.cfg.KeepRecent]

	summary, usage, err := llm.Complete(ctx, s.llm, summarySystem, summaryPrompt(c.Summary, older), 600)
	s.meter.Record(ctx, c.UserID, domain.UsageSummary, usage.Total())
	if err != nil {
		slog.Warn("failed to summarize chat", "chat_id", c.ID, "tokens", c.TokenCount, "error", err)
		return
	}

	before := c.TokenCount
	c.Collapse(summary, s.cfg.KeepRecent)
	slog.Debug("chat summarized", "chat_id", c.ID, "tokens_before", before, "tokens_after", c.TokenCount)
}

func (s *Service) systemPrompt(ctx context.Context, c *domain.ChatSession) (string, error) {
	var b strings.Builder
	b.WriteString(tutorSystem)

	if c.ProblemID != nil {
		p, err := s.problems.Problem(ctx, *c.ProblemID)
		if err != nil {
			return "", fmt.Errorf("load problem: %w", err)
		}
		fmt.Fprintf(&b, "\n\nThe student is working on %s: %s\n", p.ID, p.Title)
		if p.Statement != "" {
			b.WriteString("Statement:\n")
			b.WriteString(clip(p.Statement, problemRunes))
			b.WriteString("\n")
		}
	}
	if len(c.Hints) > 0 {
		b.WriteString("\nHints the student has already seen:\n")
		for i, h := range c.Hints {
			fmt.Fprintf(&b, "%d. %s\n", i+1, h)
		}
	}
	if c.Summary != "" {
		b.WriteString("\nSummary of the earlier conversation:\n")
		b.WriteString(c.Summary)
		b.WriteString("\n")
	}
	return b.String(), nil
}

const tutorSystem = `You are a patient competitive programming tutor. Guide the student with questions
and observations. Do not write complete solutions or full code unless the student has
already solved the problem.`

const summarySystem = `You summarize tutoring conversations. Keep what the student understood, what they
are stuck on, ideas already discussed and any hints given. Be concise.`

func summaryPrompt(previous string, messages []domain.ChatMessage) string {
	var b strings.Builder
	if previous != "" {
		b.WriteString("Existing summary:\n")
		b.WriteString(previous)
		b.WriteString("\n\n")
	}
	b.WriteString("Conversation to fold into the summary:\n")
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	b.WriteString("\nWrite the updated summary.")
	return b.String()
}

func clip(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
