package domain

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestHintSchedule_Unlocked(t *testing.T) {
	schedule := DefaultHintSchedule()
	budget := 40 * time.Minute

	tests := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{"start", 0, 0},
		{"just before first", 10*time.Minute - time.Second, 0},
		{"first threshold", 10 * time.Minute, 1},
		{"half", 20 * time.Minute, 2},
		{"three quarters", 30 * time.Minute, 3},
		{"over budget", 90 * time.Minute, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := schedule.Unlocked(tt.elapsed, budget); got != tt.want {
				t.Errorf("Unlocked(%v) = %d; want %d", tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestHintSchedule_UnlockedIsMonotonic(t *testing.T) {
	schedule := HintSchedule{Thresholds: []float64{0.1, 0.3, 0.6, 0.9}}
	budget := 17 * time.Minute

	prev := 0
	for elapsed := time.Duration(0); elapsed <= 2*budget; elapsed += 7 * time.Second {
		got := schedule.Unlocked(elapsed, budget)
		if got < prev {
			t.Fatalf("Unlocked(%v) = %d, dropped below previous %d", elapsed, got, prev)
		}
		if got > schedule.Count() {
			t.Fatalf("Unlocked(%v) = %d exceeds hint count %d", elapsed, got, schedule.Count())
		}
		prev = got
	}
	if prev != schedule.Count() {
		t.Errorf("expected all hints unlocked at end, got %d", prev)
	}
}

func TestHintSchedule_UntimedUnlocksAll(t *testing.T) {
	schedule := DefaultHintSchedule()
	if got := schedule.Unlocked(0, 0); got != 3 {
		t.Errorf("Unlocked with zero budget = %d; want 3", got)
	}
	if _, ok := schedule.NextUnlock(0, 0); ok {
		t.Error("NextUnlock should report nothing pending for untimed sessions")
	}
}

func TestHintSchedule_NextUnlock(t *testing.T) {
	schedule := DefaultHintSchedule()
	budget := 40 * time.Minute

	wait, ok := schedule.NextUnlock(12*time.Minute, budget)
	if !ok || wait != 8*time.Minute {
		t.Errorf("NextUnlock(12m) = %v, %v; want 8m, true", wait, ok)
	}

	if _, ok := schedule.NextUnlock(35*time.Minute, budget); ok {
		t.Error("NextUnlock after last threshold should be false")
	}
}

func TestPracticeSession_TickAndExpire(t *testing.T) {
	p := NewPracticeSession(uuid.New(), "abc100_a", 10*time.Minute)

	p.Tick(4 * time.Minute)
	if p.Elapsed != 4*time.Minute {
		t.Errorf("Elapsed = %v; want 4m", p.Elapsed)
	}

	p.Pause()
	p.Tick(time.Minute)
	if p.Elapsed != 4*time.Minute {
		t.Errorf("paused timer advanced to %v", p.Elapsed)
	}

	p.Resume()
	p.Tick(6 * time.Minute)
	if p.Status != PracticeExpired {
		t.Errorf("Status = %s; want expired", p.Status)
	}
	if p.Remaining() != 0 {
		t.Errorf("Remaining = %v; want 0", p.Remaining())
	}
}

func TestPracticeSession_RevealHint(t *testing.T) {
	schedule := DefaultHintSchedule()
	p := NewPracticeSession(uuid.New(), "abc100_a", 40*time.Minute)

	if _, err := p.RevealHint(schedule); !errors.Is(err, ErrNoHintAvailable) {
		t.Fatalf("RevealHint at start err = %v; want ErrNoHintAvailable", err)
	}

	p.Tick(21 * time.Minute)
	for want := 0; want < 2; want++ {
		idx, err := p.RevealHint(schedule)
		if err != nil {
			t.Fatalf("RevealHint #%d: %v", want, err)
		}
		if idx != want {
			t.Errorf("RevealHint index = %d; want %d", idx, want)
		}
	}
	if _, err := p.RevealHint(schedule); !errors.Is(err, ErrNoHintAvailable) {
		t.Errorf("third reveal err = %v; want ErrNoHintAvailable", err)
	}
}

func TestPracticeSession_RestoreNeverGoesBackwards(t *testing.T) {
	schedule := DefaultHintSchedule()
	p := NewPracticeSession(uuid.New(), "abc100_a", 40*time.Minute)

	p.Restore(25*time.Minute, 5, false, schedule)
	if p.Elapsed != 25*time.Minute {
		t.Errorf("Elapsed = %v; want 25m", p.Elapsed)
	}
	if p.HintsUsed != 2 {
		t.Errorf("HintsUsed = %d; want clamp to 2 unlocked", p.HintsUsed)
	}

	p.Restore(5*time.Minute, 0, true, schedule)
	if p.Elapsed != 25*time.Minute || p.HintsUsed != 2 {
		t.Errorf("Restore moved backwards: elapsed=%v hints=%d", p.Elapsed, p.HintsUsed)
	}
	if p.Status != PracticePaused {
		t.Errorf("Status = %s; want paused", p.Status)
	}
}

func TestPracticeSession_MarkSolvedIsFinal(t *testing.T) {
	p := NewPracticeSession(uuid.New(), "abc100_a", 10*time.Minute)
	p.Tick(3 * time.Minute)

	at := time.Now()
	p.MarkSolved(at)
	p.MarkSolved(at.Add(time.Hour))

	if !p.Solved || p.Status != PracticeSolved {
		t.Fatalf("expected solved session, got status %s", p.Status)
	}
	if !p.SolvedAt.Equal(at) {
		t.Errorf("SolvedAt changed on second MarkSolved")
	}

	p.Restore(9*time.Minute, 1, false, DefaultHintSchedule())
	if p.Elapsed != 3*time.Minute {
		t.Errorf("solved session accepted restore: elapsed=%v", p.Elapsed)
	}
	if _, err := p.RevealHint(DefaultHintSchedule()); !errors.Is(err, ErrSessionFinished) {
		t.Errorf("RevealHint on solved err = %v; want ErrSessionFinished", err)
	}
}

func TestEvenHintSchedule(t *testing.T) {
	if got := EvenHintSchedule(3); !reflect.DeepEqual(got, DefaultHintSchedule()) {
		t.Errorf("EvenHintSchedule(3) = %v; want default", got.Thresholds)
	}
	if got := EvenHintSchedule(1).Thresholds; len(got) != 1 || got[0] != 0.5 {
		t.Errorf("EvenHintSchedule(1) = %v", got)
	}
	if got := EvenHintSchedule(0).Count(); got != 0 {
		t.Errorf("EvenHintSchedule(0).Count() = %d", got)
	}
}
