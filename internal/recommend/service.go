// Package recommend picks problems to practice: new ones near the user's
// rating and solved ones due for spaced review.
package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

const (
	belowRating = 200
	aboveRating = 300
	targetShift = 100
	widenStep   = 200
	maxWidens   = 3

	// MaxCount bounds one recommendation request.
	MaxCount    = 50
	reviewLimit = 20
)

// ProblemStore finds candidate problems.
type ProblemStore interface {
	Unsolved(ctx context.Context, userID uuid.UUID, min, max, target, limit int) ([]domain.Problem, error)
	GetMany(ctx context.Context, ids []string) ([]domain.Problem, error)
}

// CardStore lists review cards.
type CardStore interface {
	DueCards(ctx context.Context, userID uuid.UUID, t time.Time, limit int) ([]domain.ReviewCard, error)
}

// UserSource provides the user's rating.
type UserSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Service produces recommendations.
type Service struct {
	problems ProblemStore
	cards    CardStore
	users    UserSource
	now      func() time.Time
}

// NewService creates a recommendation service.
func NewService(problems ProblemStore, cards CardStore, users UserSource) *Service {
	return &Service{problems: problems, cards: cards, users: users, now: time.Now}
}

// Window is a difficulty range and the difficulty preferred inside it.
type Window struct {
	Min    int `json:"min"`
	Max    int `json:"max"`
	Target int `json:"target"`
}

// WindowFor returns the base window for a rating widened step times.
func WindowFor(rating, step int) Window {
	widen := step * widenStep
	return Window{
		Min:    rating - belowRating - widen,
		Max:    rating + aboveRating + widen,
		Target: rating + targetShift,
	}
}

// Recommendation is an unsolved problem chosen for the user.
type Recommendation struct {
	Problem domain.Problem `json:"problem"`
	Color   string         `json:"color"`
}

// Result lists recommendations and the window they came from.
type Result struct {
	Rating          int              `json:"rating"`
	Window          Window           `json:"window"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Recommend returns up to count unsolved problems closest to a little
// above the user's rating. The window widens when it holds too few.
func (s *Service) Recommend(ctx context.Context, userID uuid.UUID, count int) (*Result, error) {
	if count <= 0 || count > MaxCount {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", domain.ErrInvalidInput, MaxCount)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	var (
		w        Window
		problems []domain.Problem
	)
	for step := 0; step <= maxWidens; step++ {
		w = WindowFor(user.Rating, step)
		problems, err = s.problems.Unsolved(ctx, userID, w.Min, w.Max, w.Target, count)
		if err != nil {
			return nil, fmt.Errorf("find problems: %w", err)
		}
		if len(problems) >= count {
			break
		}
	}

	res := &Result{Rating: user.Rating, Window: w, Recommendations: make([]Recommendation, 0, len(problems))}
	for _, p := range problems {
		res.Recommendations = append(res.Recommendations, Recommendation{
			Problem: p,
			Color:   domain.RatingColor(p.DifficultyOr(0)),
		})
	}
	return res, nil
}

// ReviewItem is a solved problem due for review.
type ReviewItem struct {
	Problem domain.Problem    `json:"problem"`
	Card    domain.ReviewCard `json:"card"`
}

// ReviewQueue returns solved problems whose review is due, most overdue
// first.
func (s *Service) ReviewQueue(ctx context.Context, userID uuid.UUID) ([]ReviewItem, error) {
	cards, err := s.cards.DueCards(ctx, userID, s.now().UTC(), reviewLimit)
	if err != nil {
		return nil, fmt.Errorf("list due cards: %w", err)
	}
	if len(cards) == 0 {
		return []ReviewItem{}, nil
	}

	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ProblemID
	}
	problems, err := s.problems.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load problems: %w", err)
	}
	byID := make(map[string]domain.Problem, len(problems))
	for _, p := range problems {
		byID[p.ID] = p
	}

	items := make([]ReviewItem, 0, len(cards))
	for _, c := range cards {
		p, ok := byID[c.ProblemID]
		if !ok {
			continue
		}
		items = append(items, ReviewItem{Problem: p, Card: c})
	}
	return items, nil
}
