package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Grade rates how well a problem went: 0 again, 1 hard, 2 good, 3 easy.
type Grade int

const (
	GradeAgain Grade = iota
	GradeHard
	GradeGood
	GradeEasy
)

const (
	defaultEase = 2.5
	minEase     = 1.3
)

// GradeAttempt derives a review grade from a solved practice session.
func GradeAttempt(hintsUsed, hintCount int, overtime bool) Grade {
	switch {
	case overtime && hintCount > 0 && hintsUsed >= hintCount:
		return GradeAgain
	case overtime || (hintCount > 0 && hintsUsed >= hintCount):
		return GradeHard
	case hintsUsed > 0:
		return GradeGood
	default:
		return GradeEasy
	}
}

// ReviewCard is the spaced-repetition state of one solved problem.
type ReviewCard struct {
	UserID      uuid.UUID `json:"user_id"`
	ProblemID   string    `json:"problem_id"`
	EaseFactor  float64   `json:"ease_factor"`
	Interval    int       `json:"interval_days"`
	Repetitions int       `json:"repetitions"`
	DueAt       time.Time `json:"due_at"`
	ReviewedAt  time.Time `json:"reviewed_at"`
}

// NewReviewCard starts a card with default ease.
func NewReviewCard(userID uuid.UUID, problemID string) *ReviewCard {
	return &ReviewCard{UserID: userID, ProblemID: problemID, EaseFactor: defaultEase}
}

// Due reports whether the card should be reviewed at t.
func (c *ReviewCard) Due(t time.Time) bool {
	return !c.DueAt.After(t)
}

// Review applies an SM-2 update for grade g made at t.
func (c *ReviewCard) Review(g Grade, at time.Time) {
	if c.EaseFactor == 0 {
		c.EaseFactor = defaultEase
	}
	c.ReviewedAt = at

	if g <= GradeAgain {
		c.EaseFactor = math.Max(minEase, c.EaseFactor-0.2)
		c.Repetitions = 0
		c.Interval = 1
		c.DueAt = at.AddDate(0, 0, 1)
		return
	}

	miss := float64(GradeEasy - g)
	c.EaseFactor = math.Max(minEase, c.EaseFactor+(0.1-miss*(0.08+miss*0.02)))
	c.Repetitions++

	switch c.Repetitions {
	case 1:
		c.Interval = 1
	case 2:
		c.Interval = [...]int{0, 3, 5, 7}[g]
	default:
		modifier := 1.0
		if g == GradeHard {
			modifier = 0.8
		} else if g == GradeEasy {
			modifier = 1.1
		}
		c.Interval = int(math.Round(float64(c.Interval) * c.EaseFactor * modifier))
	}
	if c.Interval < 1 {
		c.Interval = 1
	}
	c.DueAt = at.AddDate(0, 0, c.Interval)
}
