// Package ingest copies contest, problem and submission data from the
// judge into the database.
//
// Every step is idempotent: rows are upserted or inserted-if-absent, so a
// failed run is recovered by running it again. Statement scraping is the
// slow step and can resume from an index into the catalog.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/felixgeelhaar/solvehelper/internal/cache"
	"github.com/felixgeelhaar/solvehelper/internal/domain"
	"github.com/felixgeelhaar/solvehelper/internal/judge"
)

const (
	// DefaultBatch is the row count per upsert for catalog data.
	DefaultBatch = 500
	// DefaultStatementBatch is the row count per upsert for scraped pages.
	DefaultStatementBatch = 20

	modelsCacheKey = "judge:problem-models"
	modelsCacheTTL = 24 * time.Hour
)

// Source is the aggregator API.
type Source interface {
	Contests(ctx context.Context) ([]domain.Contest, error)
	Problems(ctx context.Context) ([]domain.Problem, error)
	ContestProblems(ctx context.Context) ([]domain.ContestProblem, error)
	ProblemModels(ctx context.Context) (map[string]judge.ProblemModel, error)
	UserSubmissions(ctx context.Context, handle string, fromSecond int64) ([]judge.Submission, error)
}

// Pages is the judge website.
type Pages interface {
	ProblemPage(ctx context.Context, contestID, problemID string) (*judge.ProblemPage, error)
	Editorial(ctx context.Context, contestID, problemID string) (string, error)
	RatingHistory(ctx context.Context, handle string) ([]domain.RatingSample, error)
}

// ProblemSink stores problems.
type ProblemSink interface {
	UpsertProblems(ctx context.Context, problems []domain.Problem) error
	UpsertStatements(ctx context.Context, problems []domain.Problem) error
	List(ctx context.Context, f domain.ProblemFilter) ([]domain.Problem, error)
}

// ContestSink stores contests and their problem slots.
type ContestSink interface {
	UpsertContests(ctx context.Context, contests []domain.Contest) error
	UpsertContestProblems(ctx context.Context, links []domain.ContestProblem) error
}

// SolvedSink records solved problems without duplicates.
type SolvedSink interface {
	RecordMany(ctx context.Context, solved []domain.SolvedProblem) (int, error)
}

// RatingSink stores rating history.
type RatingSink interface {
	AddRatings(ctx context.Context, samples []domain.RatingSample) (int, error)
}

// Pipeline runs ingestion steps.
type Pipeline struct {
	Source       Source
	Pages        Pages
	ProblemStore ProblemSink
	ContestStore ContestSink
	SolvedStore  SolvedSink
	RatingStore  RatingSink
	Cache        cache.Cache

	Batch          int
	StatementBatch int
	// Pause is slept between consecutive scrape calls and submission pages.
	Pause time.Duration
	// Limit caps the pages scraped by one Statements run; zero means no cap.
	Limit int
}

func (p *Pipeline) batch() int {
	if p.Batch > 0 {
		return p.Batch
	}
	return DefaultBatch
}

func (p *Pipeline) statementBatch() int {
	if p.StatementBatch > 0 {
		return p.StatementBatch
	}
	return DefaultStatementBatch
}

func (p *Pipeline) cache() cache.Cache {
	if p.Cache == nil {
		p.Cache = cache.NewMemoryCache()
	}
	return p.Cache
}

// Problems refreshes the problem catalog with difficulty estimates.
func (p *Pipeline) Problems(ctx context.Context) (int, error) {
	problems, err := p.Source.Problems(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch problems: %w", err)
	}
	models, err := cache.Fetch(ctx, p.cache(), modelsCacheKey, modelsCacheTTL, p.Source.ProblemModels)
	if err != nil {
		return 0, fmt.Errorf("fetch problem models: %w", err)
	}

	problems = Dedupe(problems, func(pr domain.Problem) string { return pr.ID })
	for i := range problems {
		pr := &problems[i]
		pr.Slug = slug.Make(pr.Title)
		if m, ok := models[pr.ID]; ok && m.Difficulty != nil {
			d := domain.ClipDifficulty(*m.Difficulty)
			pr.Difficulty = &d
		}
	}

	n, err := UpsertBatches(ctx, problems, p.batch(), p.ProblemStore.UpsertProblems)
	slog.Info("problems ingested", "fetched", len(problems), "written", n)
	return n, err
}

// Contests refreshes contests and the problems each one contains.
func (p *Pipeline) Contests(ctx context.Context) (int, error) {
	contests, err := p.Source.Contests(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch contests: %w", err)
	}
	links, err := p.Source.ContestProblems(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch contest problems: %w", err)
	}

	contests = Dedupe(contests, func(c domain.Contest) string { return c.ID })
	links = Dedupe(links, func(l domain.ContestProblem) string { return l.ContestID + "/" + l.ProblemID })

	n, err := UpsertBatches(ctx, contests, p.batch(), p.ContestStore.UpsertContests)
	if err != nil {
		return n, err
	}
	if _, err := UpsertBatches(ctx, links, p.batch(), p.ContestStore.UpsertContestProblems); err != nil {
		return n, err
	}
	slog.Info("contests ingested", "contests", n, "links", len(links))
	return n, nil
}

// Report summarizes a Statements run.
type Report struct {
	Fetched int `json:"fetched"`
	Written int `json:"written"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	// NextIndex is the catalog index a rerun should start from.
	NextIndex int `json:"next_index"`
}

// Statements scrapes statement, samples and editorial for problems that
// have none yet. start indexes the id-ordered catalog, which stays stable
// between runs, so a run interrupted at NextIndex resumes there. Pages
// that fail are logged and left for a later run.
func (p *Pipeline) Statements(ctx context.Context, start int) (Report, error) {
	rep := Report{NextIndex: start}

	all, err := p.ProblemStore.List(ctx, domain.ProblemFilter{})
	if err != nil {
		return rep, fmt.Errorf("list problems: %w", err)
	}
	if start < 0 || start > len(all) {
		return rep, fmt.Errorf("%w: start %d outside catalog of %d", domain.ErrInvalidInput, start, len(all))
	}

	// Pages already scraped are saved even when ctx is cancelled.
	saveCtx := context.WithoutCancel(ctx)
	var (
		pending []domain.Problem
		// catalog index of each pending problem
		pendingAt []int
	)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		n, err := UpsertBatches(saveCtx, pending, p.statementBatch(), p.ProblemStore.UpsertStatements)
		rep.Written += n
		if err != nil && n < len(pendingAt) {
			// A rerun must start at the first page that was not saved.
			rep.NextIndex = pendingAt[n]
		}
		pending, pendingAt = pending[:0], pendingAt[:0]
		return err
	}

	calls := 0
	for i := start; i < len(all); i++ {
		pr := all[i]
		if pr.HasStatement() {
			rep.Skipped++
			rep.NextIndex = i + 1
			continue
		}
		if p.Limit > 0 && rep.Fetched+rep.Failed >= p.Limit {
			break
		}
		if calls > 0 {
			if err := sleep(ctx, p.Pause); err != nil {
				return rep, errors.Join(err, flush())
			}
		}
		calls++

		page, err := p.Pages.ProblemPage(ctx, pr.ContestID, pr.ID)
		if err != nil {
			if ctx.Err() != nil {
				return rep, errors.Join(ctx.Err(), flush())
			}
			rep.Failed++
			rep.NextIndex = i + 1
			slog.Warn("scrape problem failed", "problem", pr.ID, "index", i, "error", err)
			continue
		}
		rep.Fetched++

		pr.Statement = page.Statement
		pr.Samples = page.Samples
		if pr.Title == "" {
			pr.Title = page.Title
		}

		if err := sleep(ctx, p.Pause); err != nil {
			return rep, errors.Join(err, flush())
		}
		editorial, err := p.Pages.Editorial(ctx, pr.ContestID, pr.ID)
		if err != nil {
			slog.Warn("scrape editorial failed", "problem", pr.ID, "error", err)
		}
		pr.Editorial = editorial

		pending = append(pending, pr)
		pendingAt = append(pendingAt, i)
		rep.NextIndex = i + 1
		if len(pending) >= p.statementBatch() {
			if err := flush(); err != nil {
				return rep, err
			}
		}
	}

	if err := flush(); err != nil {
		return rep, err
	}
	slog.Info("statements ingested",
		"fetched", rep.Fetched, "written", rep.Written,
		"skipped", rep.Skipped, "failed", rep.Failed, "next_index", rep.NextIndex)
	return rep, nil
}

// SubmissionReport summarizes a Submissions run.
type SubmissionReport struct {
	Pages       int   `json:"pages"`
	Submissions int   `json:"submissions"`
	Accepted    int   `json:"accepted"`
	Recorded    int   `json:"recorded"`
	LastSecond  int64 `json:"last_second"`
}

// Submissions pages through a user's submissions from since and records
// every accepted problem as solved. Pages overlap by one second so
// submissions sharing a timestamp across a page boundary are not lost.
func (p *Pipeline) Submissions(ctx context.Context, userID uuid.UUID, handle string, since time.Time) (SubmissionReport, error) {
	var (
		rep  SubmissionReport
		subs []judge.Submission
	)
	from := since.Unix()
	if since.IsZero() {
		from = 0
	}
	rep.LastSecond = from

	for {
		if rep.Pages > 0 {
			if err := sleep(ctx, p.Pause); err != nil {
				return rep, err
			}
		}
		page, err := p.Source.UserSubmissions(ctx, handle, from)
		if err != nil {
			return rep, fmt.Errorf("fetch submissions from %d: %w", from, err)
		}
		rep.Pages++
		subs = append(subs, page...)
		if len(page) < judge.SubmissionPageSize {
			break
		}

		next := from
		for _, s := range page {
			next = max(next, s.EpochSecond)
		}
		if next <= from {
			next = from + 1
		}
		from = next
	}

	subs = Dedupe(subs, func(s judge.Submission) int64 { return s.ID })
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].EpochSecond < subs[j].EpochSecond })
	rep.Submissions = len(subs)

	var solved []domain.SolvedProblem
	for _, s := range subs {
		rep.LastSecond = max(rep.LastSecond, s.EpochSecond)
		if !s.Accepted() {
			continue
		}
		rep.Accepted++
		solved = append(solved, domain.SolvedProblem{
			UserID:    userID,
			ProblemID: s.ProblemID,
			SolvedAt:  s.SubmittedAt(),
		})
	}
	solved = Dedupe(solved, func(s domain.SolvedProblem) string { return s.ProblemID })

	n, err := p.SolvedStore.RecordMany(ctx, solved)
	if err != nil {
		return rep, fmt.Errorf("record solved: %w", err)
	}
	rep.Recorded = n
	slog.Info("submissions ingested", "handle", handle,
		"pages", rep.Pages, "submissions", rep.Submissions, "accepted", rep.Accepted, "recorded", n)
	return rep, nil
}

// RatingHistory stores the user's rated contest results and returns how
// many samples were new.
func (p *Pipeline) RatingHistory(ctx context.Context, userID uuid.UUID, handle string) (int, error) {
	samples, err := p.Pages.RatingHistory(ctx, handle)
	if err != nil {
		return 0, fmt.Errorf("fetch rating history: %w", err)
	}
	for i := range samples {
		samples[i].UserID = userID
	}
	samples = Dedupe(samples, func(s domain.RatingSample) int64 { return s.TakenAt.Unix() })
	return p.RatingStore.AddRatings(ctx, samples)
}

// PendingHints returns ids of problems that have a statement but no
// stored hints, up to Limit when set.
func (p *Pipeline) PendingHints(ctx context.Context) ([]string, error) {
	all, err := p.ProblemStore.List(ctx, domain.ProblemFilter{})
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	var ids []string
	for _, pr := range all {
		if pr.Statement == "" || len(pr.Hints) > 0 {
			continue
		}
		ids = append(ids, pr.ID)
		if p.Limit > 0 && len(ids) == p.Limit {
			break
		}
	}
	return ids, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
