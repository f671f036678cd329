package domain

import (
	"testing"
	"time"
)

func TestClipDifficulty(t *testing.T) {
	tests := []struct {
		raw  float64
		want int
	}{
		{1234.4, 1234},
		{400, 400},
		{0, 147},
		{-400, 54},
	}

	for _, tt := range tests {
		if got := ClipDifficulty(tt.raw); got != tt.want {
			t.Errorf("ClipDifficulty(%v) = %d; want %d", tt.raw, got, tt.want)
		}
	}
}

func TestClipDifficulty_StaysPositive(t *testing.T) {
	for raw := -3000.0; raw < 400; raw += 50 {
		if got := ClipDifficulty(raw); got < 0 {
			t.Fatalf("ClipDifficulty(%v) = %d; want non-negative", raw, got)
		}
	}
}

func TestRatingColor(t *testing.T) {
	tests := []struct {
		rating int
		want   string
	}{
		{0, "gray"},
		{399, "gray"},
		{400, "brown"},
		{1199, "green"},
		{1200, "cyan"},
		{1999, "blue"},
		{2000, "yellow"},
		{2799, "orange"},
		{3500, "red"},
	}
	for _, tt := range tests {
		if got := RatingColor(tt.rating); got != tt.want {
			t.Errorf("RatingColor(%d) = %q; want %q", tt.rating, got, tt.want)
		}
	}
}

func TestProblem_DifficultyOr(t *testing.T) {
	p := &Problem{}
	if got := p.DifficultyOr(800); got != 800 {
		t.Errorf("DifficultyOr on unknown = %d; want 800", got)
	}
	d := 1500
	p.Difficulty = &d
	if got := p.DifficultyOr(800); got != 1500 {
		t.Errorf("DifficultyOr = %d; want 1500", got)
	}
}

func TestContest_EndAt(t *testing.T) {
	start := time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC)
	c := Contest{StartAt: start, Duration: 100 * time.Minute}
	if want := start.Add(100 * time.Minute); !c.EndAt().Equal(want) {
		t.Errorf("EndAt = %v; want %v", c.EndAt(), want)
	}
}
