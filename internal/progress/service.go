// Package progress syncs a user's judge profile and summarizes their
// practice history.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
	"github.com/felixgeelhaar/solvehelper/internal/ingest"
	"github.com/felixgeelhaar/solvehelper/internal/judge"
)

// MaxDays bounds the overview period.
const MaxDays = 366

// UserStore reads and updates users.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
}

// ProfileSource scrapes a judge profile.
type ProfileSource interface {
	UserProfile(ctx context.Context, handle string) (*judge.Profile, error)
}

// Importer pulls a user's judge history into the database.
type Importer interface {
	RatingHistory(ctx context.Context, userID uuid.UUID, handle string) (int, error)
	Submissions(ctx context.Context, userID uuid.UUID, handle string, since time.Time) (ingest.SubmissionReport, error)
}

// SolvedStore lists solved problems.
type SolvedStore interface {
	List(ctx context.Context, userID uuid.UUID) ([]domain.SolvedProblem, error)
}

// ProblemStore loads problems by id.
type ProblemStore interface {
	GetMany(ctx context.Context, ids []string) ([]domain.Problem, error)
}

// MetricStore reads rating and token usage history.
type MetricStore interface {
	Ratings(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.RatingSample, error)
	DailyUsage(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.DailyUsage, error)
}

// PracticeStats aggregates practice sessions.
type PracticeStats interface {
	Stats(ctx context.Context, userID uuid.UUID, since time.Time) (domain.PracticeStats, error)
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Users    UserStore
	Profiles ProfileSource
	Importer Importer
	Solved   SolvedStore
	Problems ProblemStore
	Metrics  MetricStore
	Practice PracticeStats
}

// Service syncs and reports progress.
type Service struct {
	Deps
	now func() time.Time
}

// NewService creates a progress service.
func NewService(d Deps) *Service {
	return &Service{Deps: d, now: time.Now}
}

// SyncResult reports what a sync changed.
type SyncResult struct {
	User          *domain.User `json:"user"`
	RatingSamples int          `json:"rating_samples"`
	NewSolved     int          `json:"new_solved"`
}

// SyncProfile refreshes avatar and rating from the judge, appends new
// rating history and records problems accepted since the last known solve.
func (s *Service) SyncProfile(ctx context.Context, userID uuid.UUID) (*SyncResult, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasHandle() {
		return nil, domain.ErrHandleRequired
	}

	profile, err := s.Profiles.UserProfile(ctx, user.Handle)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	user.Avatar = profile.Avatar
	user.Rating = profile.Rating
	user.UpdatedAt = s.now().UTC()
	if err := s.Users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	res := &SyncResult{User: user}
	if res.RatingSamples, err = s.Importer.RatingHistory(ctx, userID, user.Handle); err != nil {
		return nil, fmt.Errorf("sync rating history: %w", err)
	}

	since, err := s.lastSolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	rep, err := s.Importer.Submissions(ctx, userID, user.Handle, since)
	if err != nil {
		return nil, fmt.Errorf("sync submissions: %w", err)
	}
	res.NewSolved = rep.Recorded

	slog.Info("profile synced", "user_id", userID, "handle", user.Handle,
		"rating", user.Rating, "rating_samples", res.RatingSamples, "new_solved", res.NewSolved)
	return res, nil
}

func (s *Service) lastSolve(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	solved, err := s.Solved.List(ctx, userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("list solved: %w", err)
	}
	var last time.Time
	for _, sp := range solved {
		if sp.SolvedAt.After(last) {
			last = sp.SolvedAt
		}
	}
	return last, nil
}

// Overview summarizes a user's progress.
type Overview struct {
	Days          int                   `json:"days"`
	Rating        int                   `json:"rating"`
	Color         string                `json:"color"`
	SolvedTotal   int                   `json:"solved_total"`
	SolvedPeriod  int                   `json:"solved_period"`
	SolvedByColor map[string]int        `json:"solved_by_color"`
	RatingHistory []domain.RatingSample `json:"rating_history"`
	TokenUsage    []domain.DailyUsage   `json:"token_usage"`
	TokensToday   int                   `json:"tokens_today"`
	TokenQuota    int                   `json:"token_quota"`
	Practice      domain.PracticeStats  `json:"practice"`
}

// Overview reports totals over the last days days.
func (s *Service) Overview(ctx context.Context, userID uuid.UUID, days int) (*Overview, error) {
	if days <= 0 || days > MaxDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", domain.ErrInvalidInput, MaxDays)
	}
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	since := now.AddDate(0, 0, -days)

	ov := &Overview{
		Days:          days,
		Rating:        user.Rating,
		Color:         domain.RatingColor(user.Rating),
		SolvedByColor: make(map[string]int, len(domain.RatingColors)),
		TokenQuota:    user.DailyTokenQuota,
	}

	solved, err := s.Solved.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list solved: %w", err)
	}
	ov.SolvedTotal = len(solved)
	ids := make([]string, 0, len(solved))
	for _, sp := range solved {
		ids = append(ids, sp.ProblemID)
		if !sp.SolvedAt.Before(since) {
			ov.SolvedPeriod++
		}
	}

	problems, err := s.Problems.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load solved problems: %w", err)
	}
	for _, c := range domain.RatingColors {
		ov.SolvedByColor[c] = 0
	}
	for _, p := range problems {
		if p.Difficulty != nil {
			ov.SolvedByColor[domain.RatingColor(*p.Difficulty)]++
		}
	}

	if ov.RatingHistory, err = s.Metrics.Ratings(ctx, userID, since); err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	if ov.TokenUsage, err = s.Metrics.DailyUsage(ctx, userID, since); err != nil {
		return nil, fmt.Errorf("load token usage: %w", err)
	}
	today := now.Truncate(24 * time.Hour)
	for _, u := range ov.TokenUsage {
		if u.Day.Equal(today) {
			ov.TokensToday = u.Tokens
		}
	}
	if ov.Practice, err = s.Practice.Stats(ctx, userID, since); err != nil {
		return nil, fmt.Errorf("load practice stats: %w", err)
	}
	return ov, nil
}
