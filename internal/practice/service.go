// Package practice runs timed attempts at a problem: the hint unlock
// timer, client saves, submission checks against the judge and the
// solved-problem record.
package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/appreciation"
	"github.com/felixgeelhaar/solvehelper/internal/domain"
	"github.com/felixgeelhaar/solvehelper/internal/judge"
)

// MaxTimeLimit bounds the budget of one session.
const MaxTimeLimit = 6 * time.Hour

// maxCheckPages bounds the submission pages read by one check.
const maxCheckPages = 4

// Store persists practice sessions, scoped to their owner.
type Store interface {
	Create(ctx context.Context, p *domain.PracticeSession) error
	Update(ctx context.Context, p *domain.PracticeSession) error
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.PracticeSession, error)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.PracticeSession, error)
}

// SolvedStore records solves and review cards.
type SolvedStore interface {
	Record(ctx context.Context, sp domain.SolvedProblem) (bool, error)
	Card(ctx context.Context, userID uuid.UUID, problemID string) (*domain.ReviewCard, error)
	SaveCard(ctx context.Context, c *domain.ReviewCard) error
}

// ProblemSource reads catalog metadata. It never scrapes, so a judge outage
// cannot block Start.
type ProblemSource interface {
	Get(ctx context.Context, id string) (*domain.Problem, error)
}

// HintSource returns a problem's hints, generating them when needed.
type HintSource interface {
	Hints(ctx context.Context, userID uuid.UUID, problemID string) ([]string, error)
}

// UserSource resolves the user's judge handle.
type UserSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Submissions lists a judge user's submissions.
type Submissions interface {
	UserSubmissions(ctx context.Context, handle string, fromSecond int64) ([]judge.Submission, error)
}

// Praiser comments on a solve. It may return nil.
type Praiser interface {
	Praise(userID uuid.UUID, s appreciation.Solve) *appreciation.Message
}

// Service manages practice sessions.
type Service struct {
	store       Store
	solved      SolvedStore
	problems    ProblemSource
	hints       HintSource
	users       UserSource
	submissions Submissions
	praiser     Praiser
	schedule    domain.HintSchedule
	now         func() time.Time
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Store       Store
	Solved      SolvedStore
	Problems    ProblemSource
	Hints       HintSource
	Users       UserSource
	Submissions Submissions
	// Praise is optional.
	Praise Praiser
}

// NewService creates a practice service.
func NewService(d Deps, schedule domain.HintSchedule) *Service {
	if schedule.Count() == 0 {
		schedule = domain.DefaultHintSchedule()
	}
	return &Service{
		store:       d.Store,
		solved:      d.Solved,
		problems:    d.Problems,
		hints:       d.Hints,
		users:       d.Users,
		submissions: d.Submissions,
		praiser:     d.Praise,
		schedule:    schedule,
		now:         time.Now,
	}
}

// Schedule returns the hint unlock schedule.
func (s *Service) Schedule() domain.HintSchedule {
	return s.schedule
}

// Start begins a session. A zero limit is untimed.
func (s *Service) Start(ctx context.Context, userID uuid.UUID, problemID string, limit time.Duration) (*domain.PracticeSession, error) {
	if limit < 0 || limit > MaxTimeLimit {
		return nil, fmt.Errorf("%w: time limit must be between 0 and %s", domain.ErrInvalidInput, MaxTimeLimit)
	}
	if _, err := s.problems.Get(ctx, problemID); err != nil {
		return nil, fmt.Errorf("load problem: %w", err)
	}

	p := domain.NewPracticeSession(userID, problemID, limit)
	p.StartedAt = s.now().UTC()
	p.UpdatedAt = p.StartedAt
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create practice session: %w", err)
	}
	return p, nil
}

// Get returns a session owned by userID.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*domain.PracticeSession, error) {
	return s.store.Get(ctx, userID, id)
}

// List returns the user's recent sessions.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.PracticeSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.List(ctx, userID, limit)
}

// SaveRequest carries timer progress reported by a client.
type SaveRequest struct {
	Elapsed   time.Duration
	HintsUsed int
	Paused    bool
}

// Save applies client progress. Elapsed time and hints used only move
// forward, and hints used is capped by what the timer has unlocked.
func (s *Service) Save(ctx context.Context, userID, id uuid.UUID, req SaveRequest) (*domain.PracticeSession, error) {
	if req.Elapsed < 0 || req.HintsUsed < 0 {
		return nil, fmt.Errorf("%w: elapsed and hints used must not be negative", domain.ErrInvalidInput)
	}
	p, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Finished() {
		return p, nil
	}

	p.Restore(req.Elapsed, req.HintsUsed, req.Paused, s.schedule)
	if err := s.store.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("save practice session: %w", err)
	}
	return p, nil
}

// RevealedHint is a hint handed to the user.
type RevealedHint struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	// Remaining is the number of hints still locked or unrevealed.
	Remaining int `json:"remaining"`
}

// RevealHint hands out the next unlocked hint.
func (s *Service) RevealHint(ctx context.Context, userID, id uuid.UUID) (*RevealedHint, *domain.PracticeSession, error) {
	p, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	idx, err := p.RevealHint(s.schedule)
	if err != nil {
		return nil, nil, err
	}

	hints, err := s.hints.Hints(ctx, userID, p.ProblemID)
	if err != nil {
		return nil, nil, fmt.Errorf("load hints: %w", err)
	}
	if idx >= len(hints) {
		return nil, nil, domain.ErrNoHintAvailable
	}

	if err := s.store.Update(ctx, p); err != nil {
		return nil, nil, fmt.Errorf("save practice session: %w", err)
	}
	return &RevealedHint{Index: idx, Text: hints[idx], Remaining: s.schedule.Count() - p.HintsUsed}, p, nil
}

// CheckResult reports a submission check.
type CheckResult struct {
	Solved     bool                    `json:"solved"`
	Submission *judge.Submission       `json:"submission,omitempty"`
	Session    *domain.PracticeSession `json:"session"`
	Praise     *appreciation.Message   `json:"praise,omitempty"`
}

// CheckSubmission looks for an accepted submission to the session's
// problem made since the session started and marks the session solved
// when it finds one.
func (s *Service) CheckSubmission(ctx context.Context, userID, id uuid.UUID) (*CheckResult, error) {
	p, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Finished() {
		return &CheckResult{Solved: true, Session: p}, nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.HasHandle() {
		return nil, domain.ErrHandleRequired
	}

	sub, err := s.findAccepted(ctx, user.Handle, p.ProblemID, p.StartedAt.Unix())
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return &CheckResult{Session: p}, nil
	}

	solve, err := s.markSolved(ctx, p, sub.SubmittedAt())
	if err != nil {
		return nil, err
	}
	return &CheckResult{Solved: true, Submission: sub, Session: p, Praise: s.praise(ctx, user, p.ProblemID, solve)}, nil
}

func (s *Service) praise(ctx context.Context, user *domain.User, problemID string, solve appreciation.Solve) *appreciation.Message {
	if s.praiser == nil {
		return nil
	}
	if problem, err := s.problems.Get(ctx, problemID); err == nil {
		solve.Difficulty = problem.Difficulty
	}
	solve.Rating = user.Rating
	return s.praiser.Praise(user.ID, solve)
}

func (s *Service) findAccepted(ctx context.Context, handle, problemID string, from int64) (*judge.Submission, error) {
	for page := 0; page < maxCheckPages; page++ {
		subs, err := s.submissions.UserSubmissions(ctx, handle, from)
		if err != nil {
			return nil, fmt.Errorf("fetch submissions: %w", err)
		}
		for i := range subs {
			if subs[i].ProblemID == problemID && subs[i].Accepted() {
				return &subs[i], nil
			}
		}
		if len(subs) < judge.SubmissionPageSize {
			return nil, nil
		}
		next := from
		for _, sub := range subs {
			next = max(next, sub.EpochSecond)
		}
		from = max(next, from+1)
	}
	return nil, nil
}

// MarkSolved finishes a session on the user's word.
func (s *Service) MarkSolved(ctx context.Context, userID, id uuid.UUID) (*domain.PracticeSession, error) {
	p, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Finished() {
		return p, nil
	}
	if _, err := s.markSolved(ctx, p, s.now().UTC()); err != nil {
		return nil, err
	}
	return p, nil
}

// markSolved finishes the session and records the solve. The solved row
// is insert-if-absent, so a problem solved before keeps its first record.
// The review card is graded on the first solve and again whenever the
// problem is solved while its review is due.
func (s *Service) markSolved(ctx context.Context, p *domain.PracticeSession, at time.Time) (appreciation.Solve, error) {
	overtime := p.Overtime() || p.Status == domain.PracticeExpired
	solve := appreciation.Solve{
		HintsUsed:  p.HintsUsed,
		TotalHints: s.schedule.Count(),
		Elapsed:    p.Elapsed,
		TimeLimit:  p.TimeLimit,
		Overtime:   overtime,
	}
	p.MarkSolved(at)
	if err := s.store.Update(ctx, p); err != nil {
		return solve, fmt.Errorf("save practice session: %w", err)
	}

	_, err := s.solved.Record(ctx, domain.SolvedProblem{
		UserID:    p.UserID,
		ProblemID: p.ProblemID,
		SolvedAt:  at,
		HintsUsed: p.HintsUsed,
		Overtime:  overtime,
	})
	if err != nil {
		return solve, fmt.Errorf("record solved: %w", err)
	}

	card, err := s.solved.Card(ctx, p.UserID, p.ProblemID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		card = domain.NewReviewCard(p.UserID, p.ProblemID)
	case err != nil:
		slog.Warn("failed to load review card", "problem", p.ProblemID, "error", err)
		return solve, nil
	case !card.Due(at):
		return solve, nil
	default:
		solve.Review = true
	}

	card.Review(domain.GradeAttempt(p.HintsUsed, s.schedule.Count(), overtime), at)
	if err := s.solved.SaveCard(ctx, card); err != nil {
		slog.Warn("failed to save review card", "problem", p.ProblemID, "error", err)
	}
	return solve, nil
}
