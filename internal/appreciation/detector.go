// Package appreciation turns a finished practice run into a short,
// evidence-backed message about what went well.
package appreciation

import (
	"time"
)

// MomentType categorizes appreciation moments
type MomentType string

const (
	MomentNoHintsNeeded  MomentType = "no_hints_needed"
	MomentMinimalHints   MomentType = "minimal_hints"
	MomentQuickSolve     MomentType = "quick_solve"
	MomentAboveRating    MomentType = "above_rating"
	MomentReviewRecalled MomentType = "review_recalled"
	MomentPersistence    MomentType = "persistence"
)

var priority = map[MomentType]int{
	MomentAboveRating:    9,
	MomentNoHintsNeeded:  8,
	MomentReviewRecalled: 6,
	MomentQuickSolve:     5,
	MomentMinimalHints:   3,
	MomentPersistence:    2,
}

// Priority returns how significant a moment type is. Unknown types are 0.
func Priority(t MomentType) int {
	return priority[t]
}

// Solve describes a finished practice run
type Solve struct {
	HintsUsed  int
	TotalHints int
	Elapsed    time.Duration
	TimeLimit  time.Duration
	Overtime   bool
	// Difficulty is nil when the aggregator has no estimate.
	Difficulty *int
	Rating     int
	// Review is set when the problem was solved before and was due again.
	Review bool
}

// Evidence provides the data backing an appreciation moment
type Evidence struct {
	HintsUsed  int    `json:"hints_used"`
	Elapsed    string `json:"elapsed,omitempty"`
	Difficulty int    `json:"difficulty,omitempty"`
	Rating     int    `json:"rating,omitempty"`
}

// Moment is an appreciation-worthy event
type Moment struct {
	Type     MomentType
	Evidence Evidence
}

// Detector finds moments in a solve
type Detector struct{}

// NewDetector creates a detector
func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns every moment the solve earns.
func (d *Detector) Detect(s Solve) []Moment {
	ev := Evidence{HintsUsed: s.HintsUsed, Elapsed: formatDuration(s.Elapsed), Rating: s.Rating}
	if s.Difficulty != nil {
		ev.Difficulty = *s.Difficulty
	}

	var moments []Moment
	add := func(t MomentType) { moments = append(moments, Moment{Type: t, Evidence: ev}) }

	switch {
	case s.HintsUsed == 0:
		add(MomentNoHintsNeeded)
	case s.TotalHints > 0 && s.HintsUsed*2 <= s.TotalHints:
		add(MomentMinimalHints)
	}
	if s.Difficulty != nil && s.Rating > 0 && *s.Difficulty > s.Rating && !s.Overtime {
		add(MomentAboveRating)
	}
	if s.TimeLimit > 0 && !s.Overtime && s.Elapsed*2 <= s.TimeLimit {
		add(MomentQuickSolve)
	}
	if s.Review {
		add(MomentReviewRecalled)
	}
	if s.Overtime {
		add(MomentPersistence)
	}
	return moments
}

// SelectBest returns the highest priority moment, or nil.
func (d *Detector) SelectBest(moments []Moment) *Moment {
	var best *Moment
	for i := range moments {
		if best == nil || Priority(moments[i].Type) > Priority(best.Type) {
			best = &moments[i]
		}
	}
	return best
}
