package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"日本語の文章", 2},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d; want %d", tt.text, got, tt.want)
		}
	}
}

func TestChatSession_AppendTracksTokens(t *testing.T) {
	s := &ChatSession{ID: uuid.New(), UserID: uuid.New()}
	now := time.Now()

	s.Append(ChatRoleUser, strings.Repeat("x", 40), now)
	s.Append(ChatRoleAssistant, strings.Repeat("y", 80), now)

	if s.TokenCount != 30 {
		t.Errorf("TokenCount = %d; want 30", s.TokenCount)
	}
	if len(s.Messages) != 2 {
		t.Errorf("len(Messages) = %d; want 2", len(s.Messages))
	}
}

func TestChatSession_Collapse(t *testing.T) {
	s := &ChatSession{}
	now := time.Now()
	for i := 0; i < 10; i++ {
		s.Append(ChatRoleUser, strings.Repeat("m", 100), now)
	}

	s.Collapse("summary of the early discussion", 4)

	if len(s.Messages) != 4 {
		t.Fatalf("len(Messages) = %d; want 4", len(s.Messages))
	}
	if s.Summary == "" {
		t.Error("expected summary to be set")
	}
	want := 4*25 + EstimateTokens(s.Summary)
	if s.TokenCount != want {
		t.Errorf("TokenCount = %d; want %d", s.TokenCount, want)
	}
}

func TestChatSession_CollapseKeepsAllWhenShort(t *testing.T) {
	s := &ChatSession{}
	s.Append(ChatRoleUser, "hi", time.Now())
	s.Collapse("s", 6)
	if len(s.Messages) != 1 {
		t.Errorf("len(Messages) = %d; want 1", len(s.Messages))
	}
}

func TestChatSession_OwnedBy(t *testing.T) {
	owner := uuid.New()
	s := &ChatSession{UserID: owner}
	if !s.OwnedBy(owner) {
		t.Error("OwnedBy(owner) = false")
	}
	if s.OwnedBy(uuid.New()) {
		t.Error("OwnedBy(stranger) = true")
	}
}
