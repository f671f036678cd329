package domain

import (
	"time"

	"github.com/google/uuid"
)

// HintSchedule unlocks pre-generated hints at fixed fractions of a time budget.
type HintSchedule struct {
	Thresholds []float64 `json:"thresholds"` // ascending, each in (0, 1]
}

// DefaultHintSchedule unlocks three hints at a quarter, half and three
// quarters of the budget.
func DefaultHintSchedule() HintSchedule {
	return HintSchedule{Thresholds: []float64{0.25, 0.5, 0.75}}
}

// EvenHintSchedule spreads n unlocks evenly inside the budget, so n=3 gives
// the default schedule.
func EvenHintSchedule(n int) HintSchedule {
	if n <= 0 {
		return HintSchedule{}
	}
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i+1) / float64(n+1)
	}
	return HintSchedule{Thresholds: t}
}

// Count is the number of hints the schedule can unlock.
func (h HintSchedule) Count() int {
	return len(h.Thresholds)
}

// Unlocked returns how many hints are available after elapsed of budget.
// A zero budget is untimed and unlocks everything.
func (h HintSchedule) Unlocked(elapsed, budget time.Duration) int {
	if budget <= 0 {
		return len(h.Thresholds)
	}
	n := 0
	for _, t := range h.Thresholds {
		if elapsed >= time.Duration(t*float64(budget)) {
			n++
		}
	}
	return n
}

// NextUnlock returns the time left until the next hint unlocks.
func (h HintSchedule) NextUnlock(elapsed, budget time.Duration) (time.Duration, bool) {
	if budget <= 0 {
		return 0, false
	}
	for _, t := range h.Thresholds {
		at := time.Duration(t * float64(budget))
		if elapsed < at {
			return at - elapsed, true
		}
	}
	return 0, false
}

// PracticeStatus is the state of a practice timer.
type PracticeStatus string

const (
	PracticeRunning PracticeStatus = "running"
	PracticePaused  PracticeStatus = "paused"
	PracticeSolved  PracticeStatus = "solved"
	PracticeExpired PracticeStatus = "expired"
)

// PracticeSession is a timed attempt at one problem.
type PracticeSession struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	ProblemID string         `json:"problem_id"`
	TimeLimit time.Duration  `json:"time_limit"`
	Elapsed   time.Duration  `json:"elapsed"`
	HintsUsed int            `json:"hints_used"`
	Solved    bool           `json:"solved"`
	Status    PracticeStatus `json:"status"`
	StartedAt time.Time      `json:"started_at"`
	SolvedAt  *time.Time     `json:"solved_at,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewPracticeSession starts a running session.
func NewPracticeSession(userID uuid.UUID, problemID string, limit time.Duration) *PracticeSession {
	now := time.Now()
	return &PracticeSession{
		ID:        uuid.New(),
		UserID:    userID,
		ProblemID: problemID,
		TimeLimit: limit,
		Status:    PracticeRunning,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// OwnedBy reports whether the session belongs to the user.
func (p *PracticeSession) OwnedBy(userID uuid.UUID) bool {
	return p.UserID == userID
}

// Finished reports whether the timer can no longer change.
func (p *PracticeSession) Finished() bool {
	return p.Status == PracticeSolved
}

// Tick advances the timer while it is running.
func (p *PracticeSession) Tick(d time.Duration) {
	if p.Status != PracticeRunning || d <= 0 {
		return
	}
	p.Elapsed += d
	p.expireIfDue()
	p.UpdatedAt = time.Now()
}

// Pause stops the timer.
func (p *PracticeSession) Pause() {
	if p.Status == PracticeRunning {
		p.Status = PracticePaused
		p.UpdatedAt = time.Now()
	}
}

// Resume restarts a paused timer.
func (p *PracticeSession) Resume() {
	if p.Status == PracticePaused {
		p.Status = PracticeRunning
		p.UpdatedAt = time.Now()
	}
}

// Remaining returns the time left, zero once the budget is spent or untimed.
func (p *PracticeSession) Remaining() time.Duration {
	if p.TimeLimit <= 0 || p.Elapsed >= p.TimeLimit {
		return 0
	}
	return p.TimeLimit - p.Elapsed
}

// UnlockedHints returns the number of hints available now.
func (p *PracticeSession) UnlockedHints(schedule HintSchedule) int {
	return schedule.Unlocked(p.Elapsed, p.TimeLimit)
}

// RevealHint consumes the next unlocked hint and returns its zero-based index.
func (p *PracticeSession) RevealHint(schedule HintSchedule) (int, error) {
	if p.Finished() {
		return 0, ErrSessionFinished
	}
	if p.HintsUsed >= p.UnlockedHints(schedule) {
		return 0, ErrNoHintAvailable
	}
	idx := p.HintsUsed
	p.HintsUsed++
	p.UpdatedAt = time.Now()
	return idx, nil
}

// Restore applies client-reported progress. Elapsed time and hints used
// never move backwards, and hints used never exceeds what is unlocked.
func (p *PracticeSession) Restore(elapsed time.Duration, hintsUsed int, paused bool, schedule HintSchedule) {
	if p.Finished() {
		return
	}
	if elapsed > p.Elapsed {
		p.Elapsed = elapsed
	}
	if unlocked := p.UnlockedHints(schedule); hintsUsed > unlocked {
		hintsUsed = unlocked
	}
	if hintsUsed > p.HintsUsed {
		p.HintsUsed = hintsUsed
	}
	switch {
	case paused && p.Status == PracticeRunning:
		p.Status = PracticePaused
	case !paused && p.Status == PracticePaused:
		p.Status = PracticeRunning
	}
	p.expireIfDue()
	p.UpdatedAt = time.Now()
}

// MarkSolved finishes the session. Solving after the budget ran out is
// still recorded.
func (p *PracticeSession) MarkSolved(at time.Time) {
	if p.Solved {
		return
	}
	p.Solved = true
	p.Status = PracticeSolved
	p.SolvedAt = &at
	p.UpdatedAt = at
}

// Overtime reports whether the solve came after the budget.
func (p *PracticeSession) Overtime() bool {
	return p.TimeLimit > 0 && p.Elapsed > p.TimeLimit
}

func (p *PracticeSession) expireIfDue() {
	if p.TimeLimit > 0 && p.Elapsed >= p.TimeLimit &&
		(p.Status == PracticeRunning || p.Status == PracticePaused) {
		p.Status = PracticeExpired
	}
}

// SolvedProblem records that a user solved a problem. There is at most one
// per user and problem.
type SolvedProblem struct {
	UserID    uuid.UUID `json:"user_id"`
	ProblemID string    `json:"problem_id"`
	SolvedAt  time.Time `json:"solved_at"`
	HintsUsed int       `json:"hints_used"`
	Overtime  bool      `json:"overtime"`
}

// PracticeStats aggregates a user's practice sessions.
type PracticeStats struct {
	Sessions   int           `json:"sessions"`
	Solved     int           `json:"solved"`
	AvgElapsed time.Duration `json:"avg_elapsed"`
	AvgHints   float64       `json:"avg_hints"`
}
