package domain

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of a tutoring conversation.
type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Tokens estimates the token count of the message.
func (m ChatMessage) Tokens() int {
	return EstimateTokens(m.Content)
}

// ChatSession is a conversation owned by one user, optionally about a problem.
type ChatSession struct {
	ID         uuid.UUID     `json:"id"`
	UserID     uuid.UUID     `json:"user_id"`
	ProblemID  *string       `json:"problem_id,omitempty"`
	Title      string        `json:"title"`
	Messages   []ChatMessage `json:"messages"`
	Hints      []string      `json:"hints,omitempty"`
	Summary    string        `json:"summary,omitempty"`
	TokenCount int           `json:"token_count"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// OwnedBy reports whether the session belongs to the user.
func (s *ChatSession) OwnedBy(userID uuid.UUID) bool {
	return s.UserID == userID
}

// Append adds a message and refreshes the token count.
func (s *ChatSession) Append(role ChatRole, content string, at time.Time) {
	s.Messages = append(s.Messages, ChatMessage{Role: role, Content: content, CreatedAt: at})
	s.TokenCount = s.CountTokens()
	s.UpdatedAt = at
}

// CountTokens estimates the tokens resent on the next turn.
func (s *ChatSession) CountTokens() int {
	total := EstimateTokens(s.Summary)
	for _, m := range s.Messages {
		total += m.Tokens()
	}
	return total
}

// Collapse replaces all but the last keep messages with summary.
func (s *ChatSession) Collapse(summary string, keep int) {
	if keep < len(s.Messages) {
		recent := make([]ChatMessage, keep)
		copy(recent, s.Messages[len(s.Messages)-keep:])
		s.Messages = recent
	}
	s.Summary = summary
	s.TokenCount = s.CountTokens()
}

// EstimateTokens approximates tokens as one per four characters, rounded up.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
