package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

type call struct{ min, max, target, limit int }

// mockProblems holds a difficulty-indexed catalog.
type mockProblems struct {
	catalog []domain.Problem
	calls   []call
}

func (m *mockProblems) Unsolved(ctx context.Context, userID uuid.UUID, min, max, target, limit int) ([]domain.Problem, error) {
	m.calls = append(m.calls, call{min, max, target, limit})
	var out []domain.Problem
	for _, p := range m.catalog {
		d := p.DifficultyOr(-1)
		if d >= min && d <= max && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProblems) GetMany(ctx context.Context, ids []string) ([]domain.Problem, error) {
	var out []domain.Problem
	for _, id := range ids {
		for _, p := range m.catalog {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

type mockCards struct {
	cards []domain.ReviewCard
	at    time.Time
}

func (m *mockCards) DueCards(ctx context.Context, userID uuid.UUID, t time.Time, limit int) ([]domain.ReviewCard, error) {
	m.at = t
	return m.cards, nil
}

type mockUsers struct{ rating int }

func (m mockUsers) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return &domain.User{ID: id, Rating: m.rating}, nil
}

func problem(id string, d int) domain.Problem {
	return domain.Problem{ID: id, Difficulty: &d}
}

func TestWindowFor(t *testing.T) {
	tests := []struct {
		rating, step int
		want         Window
	}{
		{1200, 0, Window{Min: 1000, Max: 1500, Target: 1300}},
		{1200, 1, Window{Min: 800, Max: 1700, Target: 1300}},
		{0, 3, Window{Min: -800, Max: 900, Target: 100}},
	}
	for _, tt := range tests {
		if got := WindowFor(tt.rating, tt.step); got != tt.want {
			t.Errorf("WindowFor(%d, %d) = %+v; want %+v", tt.rating, tt.step, got, tt.want)
		}
	}
}

func TestService_Recommend(t *testing.T) {
	problems := &mockProblems{catalog: []domain.Problem{
		problem("a", 1100), problem("b", 1400), problem("c", 1700),
	}}
	s := NewService(problems, &mockCards{}, mockUsers{rating: 1200})

	res, err := s.Recommend(context.Background(), uuid.New(), 2)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(res.Recommendations) != 2 {
		t.Fatalf("got %d recommendations; want 2", len(res.Recommendations))
	}
	if len(problems.calls) != 1 {
		t.Errorf("window widened %d times; want none", len(problems.calls)-1)
	}
	if res.Recommendations[0].Color != "green" || res.Recommendations[1].Color != "cyan" {
		t.Errorf("colors = %s, %s", res.Recommendations[0].Color, res.Recommendations[1].Color)
	}
	if c := problems.calls[0]; c.target != 1300 {
		t.Errorf("target = %d; want 1300", c.target)
	}
}

func TestService_Recommend_Widens(t *testing.T) {
	problems := &mockProblems{catalog: []domain.Problem{
		problem("a", 1300), problem("far", 1850),
	}}
	s := NewService(problems, &mockCards{}, mockUsers{rating: 1200})

	res, err := s.Recommend(context.Background(), uuid.New(), 2)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(problems.calls) != 3 {
		t.Errorf("queries = %d; want 3", len(problems.calls))
	}
	if len(res.Recommendations) != 2 || res.Window.Max != 1900 {
		t.Errorf("result = %+v", res)
	}
}

func TestService_Recommend_StopsWidening(t *testing.T) {
	problems := &mockProblems{}
	s := NewService(problems, &mockCards{}, mockUsers{rating: 1200})

	res, err := s.Recommend(context.Background(), uuid.New(), 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(problems.calls) != maxWidens+1 {
		t.Errorf("queries = %d; want %d", len(problems.calls), maxWidens+1)
	}
	if res.Recommendations == nil || len(res.Recommendations) != 0 {
		t.Errorf("Recommendations = %v; want empty list", res.Recommendations)
	}
}

func TestService_Recommend_InvalidCount(t *testing.T) {
	s := NewService(&mockProblems{}, &mockCards{}, mockUsers{})
	for _, n := range []int{0, -1, MaxCount + 1} {
		if _, err := s.Recommend(context.Background(), uuid.New(), n); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("count %d err = %v; want ErrInvalidInput", n, err)
		}
	}
}

func TestService_ReviewQueue(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	problems := &mockProblems{catalog: []domain.Problem{problem("a", 900), problem("b", 1500)}}
	cards := &mockCards{cards: []domain.ReviewCard{
		{ProblemID: "b", DueAt: now.Add(-48 * time.Hour)},
		{ProblemID: "a", DueAt: now.Add(-time.Hour)},
		{ProblemID: "gone", DueAt: now},
	}}
	s := NewService(problems, cards, mockUsers{})
	s.now = func() time.Time { return now }

	items, err := s.ReviewQueue(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("ReviewQueue() error = %v", err)
	}
	if len(items) != 2 || items[0].Problem.ID != "b" || items[1].Problem.ID != "a" {
		t.Errorf("items = %+v; want b then a", items)
	}
	if !cards.at.Equal(now) {
		t.Errorf("due at = %v; want %v", cards.at, now)
	}
}

func TestService_ReviewQueue_Empty(t *testing.T) {
	s := NewService(&mockProblems{}, &mockCards{}, mockUsers{})
	items, err := s.ReviewQueue(context.Background(), uuid.New())
	if err != nil || items == nil || len(items) != 0 {
		t.Errorf("ReviewQueue() = %v, %v; want empty list", items, err)
	}
}
