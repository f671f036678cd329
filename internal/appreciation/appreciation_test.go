package appreciation

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func intp(v int) *int { return &v }

func types(moments []Moment) []MomentType {
	out := make([]MomentType, len(moments))
	for i, m := range moments {
		out[i] = m.Type
	}
	return out
}

func TestDetector_Detect(t *testing.T) {
	tests := []struct {
		name  string
		solve Solve
		want  []MomentType
	}{
		{
			name:  "no hints, quick, above rating",
			solve: Solve{TotalHints: 3, Elapsed: 10 * time.Minute, TimeLimit: 30 * time.Minute, Difficulty: intp(1400), Rating: 1200},
			want:  []MomentType{MomentNoHintsNeeded, MomentAboveRating, MomentQuickSolve},
		},
		{
			name:  "one of three hints",
			solve: Solve{HintsUsed: 1, TotalHints: 3, Elapsed: 25 * time.Minute, TimeLimit: 30 * time.Minute},
			want:  []MomentType{MomentMinimalHints},
		},
		{
			name:  "all hints",
			solve: Solve{HintsUsed: 3, TotalHints: 3, Elapsed: 25 * time.Minute, TimeLimit: 30 * time.Minute},
			want:  nil,
		},
		{
			name:  "overtime above rating",
			solve: Solve{HintsUsed: 3, TotalHints: 3, Elapsed: time.Hour, TimeLimit: 30 * time.Minute, Overtime: true, Difficulty: intp(1600), Rating: 1200},
			want:  []MomentType{MomentPersistence},
		},
		{
			name:  "untimed review",
			solve: Solve{HintsUsed: 2, TotalHints: 3, Elapsed: 5 * time.Minute, Review: true},
			want:  []MomentType{MomentReviewRecalled},
		},
		{
			name:  "unrated user",
			solve: Solve{HintsUsed: 3, TotalHints: 3, Difficulty: intp(400)},
			want:  nil,
		},
	}
	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := types(d.Detect(tt.solve))
			if len(got) != len(tt.want) {
				t.Fatalf("Detect() = %v; want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Detect()[%d] = %s; want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDetector_SelectBest(t *testing.T) {
	d := NewDetector()
	if d.SelectBest(nil) != nil {
		t.Error("SelectBest(nil) should be nil")
	}
	best := d.SelectBest([]Moment{{Type: MomentQuickSolve}, {Type: MomentAboveRating}, {Type: MomentMinimalHints}})
	if best == nil || best.Type != MomentAboveRating {
		t.Errorf("SelectBest() = %v; want above_rating", best)
	}
}

func TestGenerator_Generate(t *testing.T) {
	g := NewGenerator()
	g.pick = func(int) int { return 0 }

	tests := []struct {
		moment Moment
		want   string
	}{
		{Moment{Type: MomentMinimalHints, Evidence: Evidence{HintsUsed: 1}}, "just one hint"},
		{Moment{Type: MomentMinimalHints, Evidence: Evidence{HintsUsed: 2}}, "only 2 hints"},
		{Moment{Type: MomentQuickSolve, Evidence: Evidence{Elapsed: "12 minutes"}}, "12 minutes"},
		{Moment{Type: MomentAboveRating, Evidence: Evidence{Difficulty: 1400, Rating: 1200}}, "1400 problem at rating 1200"},
	}
	for _, tt := range tests {
		msg := g.Generate(&tt.moment)
		if msg == nil || !strings.Contains(msg.Text, tt.want) {
			t.Errorf("Generate(%s) = %v; want text containing %q", tt.moment.Type, msg, tt.want)
		}
	}

	if g.Generate(nil) != nil || g.Generate(&Moment{Type: "unknown"}) != nil {
		t.Error("Generate should return nil for nil or unknown moments")
	}
}

func TestShouldAppreciate(t *testing.T) {
	tests := []struct {
		minutes, priority int
		want              bool
	}{
		{0, 9, true},
		{10, 6, false},
		{30, 5, true},
		{45, 3, false},
		{60, 2, true},
	}
	for _, tt := range tests {
		if got := ShouldAppreciate(tt.minutes, tt.priority); got != tt.want {
			t.Errorf("ShouldAppreciate(%d, %d) = %v; want %v", tt.minutes, tt.priority, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		30 * time.Second:          "under a minute",
		time.Minute:               "1 minute",
		25 * time.Minute:          "25 minutes",
		2 * time.Hour:             "2h",
		time.Hour + 5*time.Minute: "1h 5m",
	}
	for in, want := range tests {
		if got := formatDuration(in); got != want {
			t.Errorf("formatDuration(%v) = %q; want %q", in, got, want)
		}
	}
}

func TestService_Praise_Throttles(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewService()
	s.now = func() time.Time { return now }
	user := uuid.New()
	minor := Solve{HintsUsed: 1, TotalHints: 3}

	if s.Praise(user, minor) == nil {
		t.Fatal("first message should be shown")
	}
	if s.Praise(user, minor) != nil {
		t.Error("minor moment repeated within the hour")
	}
	if s.Praise(user, Solve{TotalHints: 3}) == nil {
		t.Error("no-hint solve should always be shown")
	}
	if s.Praise(uuid.New(), minor) == nil {
		t.Error("throttle leaked across users")
	}

	now = now.Add(time.Hour)
	if s.Praise(user, minor) == nil {
		t.Error("minor moment should be shown again after an hour")
	}
	if s.Praise(user, Solve{HintsUsed: 3, TotalHints: 3}) != nil {
		t.Error("solve with no moments should have no message")
	}
}
