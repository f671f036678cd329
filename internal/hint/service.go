// Package hint generates progressive hints and statement translations
// with an LLM.
package hint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
	"github.com/felixgeelhaar/solvehelper/internal/llm"
)

// ProblemSource returns a problem with its statement loaded.
type ProblemSource interface {
	Problem(ctx context.Context, id string) (*domain.Problem, error)
	Invalidate(ctx context.Context, id string)
}

// Store persists generated text.
type Store interface {
	SaveHints(ctx context.Context, problemID string, hints []string) error
	Translation(ctx context.Context, problemID, lang string) (string, error)
	SaveTranslation(ctx context.Context, problemID, lang, body string) error
}

// Meter gates and records per-user AI usage.
type Meter interface {
	Allow(ctx context.Context, userID uuid.UUID) error
	Record(ctx context.Context, userID uuid.UUID, kind domain.UsageKind, tokens int)
}

// Service produces hints and translations.
type Service struct {
	problems ProblemSource
	store    Store
	meter    Meter
	llm      llm.Provider
	count    int
}

// NewService creates a hint service producing count hints per problem.
func NewService(problems ProblemSource, store Store, meter Meter, provider llm.Provider, count int) *Service {
	if count <= 0 {
		count = domain.DefaultHintSchedule().Count()
	}
	return &Service{problems: problems, store: store, meter: meter, llm: provider, count: count}
}

// Count is the number of hints generated per problem.
func (s *Service) Count() int {
	return s.count
}

// Hints returns the problem's hints, generating and saving them on first
// request. Generation is charged to the user.
func (s *Service) Hints(ctx context.Context, userID uuid.UUID, problemID string) ([]string, error) {
	p, err := s.problems.Problem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if len(p.Hints) >= s.count {
		return p.Hints[:s.count], nil
	}
	if err := s.meter.Allow(ctx, userID); err != nil {
		return nil, err
	}

	hints, usage, err := s.generate(ctx, p)
	s.meter.Record(ctx, userID, domain.UsageHint, usage.Total())
	return hints, err
}

// GenerateForJob generates hints for a problem outside any user's quota.
// Problems that already have hints are left alone.
func (s *Service) GenerateForJob(ctx context.Context, problemID string) ([]string, error) {
	p, err := s.problems.Problem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if len(p.Hints) >= s.count {
		return p.Hints[:s.count], nil
	}
	hints, _, err := s.generate(ctx, p)
	return hints, err
}

func (s *Service) generate(ctx context.Context, p *domain.Problem) ([]string, llm.Usage, error) {
	if !p.HasStatement() {
		return nil, llm.Usage{}, fmt.Errorf("%w: problem %s has no statement", domain.ErrInvalidInput, p.ID)
	}

	text, usage, err := llm.Complete(ctx, s.llm, hintSystem, hintPrompt(p, s.count), 1200)
	if err != nil {
		return nil, usage, fmt.Errorf("generate hints: %w", err)
	}
	hints, err := parseHints(text, s.count)
	if err != nil {
		return nil, usage, fmt.Errorf("generate hints for %s: %w", p.ID, err)
	}

	if err := s.store.SaveHints(ctx, p.ID, hints); err != nil {
		return nil, usage, fmt.Errorf("save hints: %w", err)
	}
	s.problems.Invalidate(ctx, p.ID)
	return hints, usage, nil
}

// Translate returns the statement in lang, translating it once per
// problem and language.
func (s *Service) Translate(ctx context.Context, userID uuid.UUID, problemID, lang string) (string, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return "", fmt.Errorf("%w: language is required", domain.ErrInvalidInput)
	}

	cached, err := s.store.Translation(ctx, problemID, lang)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("load translation: %w", err)
	}

	p, err := s.problems.Problem(ctx, problemID)
	if err != nil {
		return "", err
	}
	if !p.HasStatement() {
		return "", fmt.Errorf("%w: problem %s has no statement", domain.ErrInvalidInput, p.ID)
	}
	if err := s.meter.Allow(ctx, userID); err != nil {
		return "", err
	}

	text, usage, err := llm.Complete(ctx, s.llm, translateSystem, translatePrompt(p, lang), 4096)
	s.meter.Record(ctx, userID, domain.UsageTranslate, usage.Total())
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	if err := s.store.SaveTranslation(ctx, problemID, lang, text); err != nil {
		return "", fmt.Errorf("save translation: %w", err)
	}
	return text, nil
}
