package domain

import (
	"math"
	"time"
)

// Sample is one example input/output pair from a problem statement.
type Sample struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Problem is a judge problem with everything the tutor knows about it.
type Problem struct {
	ID         string    `json:"id"`
	ContestID  string    `json:"contest_id"`
	Index      string    `json:"index"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Difficulty *int      `json:"difficulty,omitempty"`
	Statement  string    `json:"statement,omitempty"`
	Samples    []Sample  `json:"samples,omitempty"`
	Editorial  string    `json:"editorial,omitempty"`
	Hints      []string  `json:"hints,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasStatement reports whether the statement has been scraped.
func (p *Problem) HasStatement() bool {
	return p.Statement != ""
}

// DifficultyOr returns the difficulty or a fallback when it is unknown.
func (p *Problem) DifficultyOr(fallback int) int {
	if p.Difficulty == nil {
		return fallback
	}
	return *p.Difficulty
}

// Contest is a judge contest.
type Contest struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	StartAt    time.Time     `json:"start_at"`
	Duration   time.Duration `json:"duration"`
	RateChange string        `json:"rate_change,omitempty"`
}

// EndAt is when the contest finishes.
func (c *Contest) EndAt() time.Time {
	return c.StartAt.Add(c.Duration)
}

// ContestProblem links a problem to a contest slot.
type ContestProblem struct {
	ContestID string `json:"contest_id"`
	ProblemID string `json:"problem_id"`
	Index     string `json:"index"`
}

// ProblemFilter narrows problem listings.
type ProblemFilter struct {
	Query         string
	MinDifficulty *int
	MaxDifficulty *int
	ContestID     string
	MissingOnly   bool // only problems without a scraped statement
	Limit         int
	Offset        int
}

// ClipDifficulty maps a raw difficulty estimate onto the displayed scale.
// Values under 400 are squashed so they stay positive.
func ClipDifficulty(raw float64) int {
	if raw >= 400 {
		return int(math.Round(raw))
	}
	return int(math.Round(400 / math.Exp((400-raw)/400)))
}

// RatingColor returns the color band for a rating or difficulty.
func RatingColor(r int) string {
	switch {
	case r < 400:
		return "gray"
	case r < 800:
		return "brown"
	case r < 1200:
		return "green"
	case r < 1600:
		return "cyan"
	case r < 2000:
		return "blue"
	case r < 2400:
		return "yellow"
	case r < 2800:
		return "orange"
	default:
		return "red"
	}
}

// RatingColors lists the bands in ascending order.
var RatingColors = []string{"gray", "brown", "green", "cyan", "blue", "yellow", "orange", "red"}
