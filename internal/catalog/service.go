// Package catalog serves problem and contest metadata, scraping a problem
// page on first access when ingestion has not reached it yet.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/solvehelper/internal/cache"
	"github.com/felixgeelhaar/solvehelper/internal/domain"
	"github.com/felixgeelhaar/solvehelper/internal/judge"
)

const problemTTL = 10 * time.Minute

// ProblemStore reads and writes problems.
type ProblemStore interface {
	Get(ctx context.Context, id string) (*domain.Problem, error)
	List(ctx context.Context, f domain.ProblemFilter) ([]domain.Problem, error)
	UpsertStatements(ctx context.Context, problems []domain.Problem) error
}

// ContestStore reads contests.
type ContestStore interface {
	List(ctx context.Context, limit int) ([]domain.Contest, error)
	Problems(ctx context.Context, contestID string) ([]domain.Problem, error)
}

// Pages scrapes problem pages.
type Pages interface {
	ProblemPage(ctx context.Context, contestID, problemID string) (*judge.ProblemPage, error)
	Editorial(ctx context.Context, contestID, problemID string) (string, error)
}

// Service provides problem metadata.
type Service struct {
	problems ProblemStore
	contests ContestStore
	pages    Pages
	cache    cache.Cache
}

// NewService creates a catalog service. A nil cache disables caching.
func NewService(problems ProblemStore, contests ContestStore, pages Pages, c cache.Cache) *Service {
	if c == nil {
		c = cache.NewMemoryCache()
	}
	return &Service{problems: problems, contests: contests, pages: pages, cache: c}
}

func problemKey(id string) string { return "problem:" + id }

// Problem returns a problem with its statement, scraping and saving the
// page when the statement is missing.
func (s *Service) Problem(ctx context.Context, id string) (*domain.Problem, error) {
	return cache.Fetch(ctx, s.cache, problemKey(id), problemTTL, func(ctx context.Context) (*domain.Problem, error) {
		p, err := s.problems.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.HasStatement() {
			return p, nil
		}
		if err := s.scrape(ctx, p); err != nil {
			return nil, err
		}
		return p, nil
	})
}

func (s *Service) scrape(ctx context.Context, p *domain.Problem) error {
	page, err := s.pages.ProblemPage(ctx, p.ContestID, p.ID)
	if err != nil {
		return fmt.Errorf("fetch problem page: %w", err)
	}
	p.Statement = page.Statement
	p.Samples = page.Samples
	if p.Title == "" {
		p.Title = page.Title
	}

	editorial, err := s.pages.Editorial(ctx, p.ContestID, p.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.Warn("failed to fetch editorial", "problem", p.ID, "error", err)
	}
	p.Editorial = editorial

	if err := s.problems.UpsertStatements(ctx, []domain.Problem{*p}); err != nil {
		return fmt.Errorf("save statement: %w", err)
	}
	return nil
}

// Invalidate drops the cached copy of a problem after it changed.
func (s *Service) Invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, problemKey(id)); err != nil {
		slog.Warn("failed to invalidate problem cache", "problem", id, "error", err)
	}
}

// Problems lists problems. Statements are not scraped.
func (s *Service) Problems(ctx context.Context, f domain.ProblemFilter) ([]domain.Problem, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	return s.problems.List(ctx, f)
}

// Contests lists the most recent contests.
func (s *Service) Contests(ctx context.Context, limit int) ([]domain.Contest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.contests.List(ctx, limit)
}

// ContestProblems lists a contest's problems in slot order.
func (s *Service) ContestProblems(ctx context.Context, contestID string) ([]domain.Problem, error) {
	problems, err := s.contests.Problems(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if len(problems) == 0 {
		return nil, fmt.Errorf("contest %s: %w", contestID, domain.ErrNotFound)
	}
	return problems, nil
}
