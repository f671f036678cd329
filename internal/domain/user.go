package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultDailyTokenQuota is applied to newly registered users.
const DefaultDailyTokenQuota = 50000

// User is a registered account, optionally linked to a judge handle.
type User struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	Handle          string    `json:"handle,omitempty"`
	PasswordHash    string    `json:"-"`
	Rating          int       `json:"rating"`
	Avatar          string    `json:"avatar,omitempty"`
	DailyTokenQuota int       `json:"daily_token_quota"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasHandle reports whether the user linked a judge account.
func (u *User) HasHandle() bool {
	return u.Handle != ""
}

// RatingSample is one point of a user's rating history.
type RatingSample struct {
	UserID    uuid.UUID `json:"user_id"`
	Rating    int       `json:"rating"`
	ContestID string    `json:"contest_id,omitempty"`
	TakenAt   time.Time `json:"taken_at"`
}

// UsageKind names what consumed AI tokens.
type UsageKind string

const (
	UsageHint      UsageKind = "hint"
	UsageTranslate UsageKind = "translate"
	UsageChat      UsageKind = "chat"
	UsageSummary   UsageKind = "summary"
)

// TokenUsage is a time-stamped token consumption sample.
type TokenUsage struct {
	UserID  uuid.UUID `json:"user_id"`
	Kind    UsageKind `json:"kind"`
	Tokens  int       `json:"tokens"`
	TakenAt time.Time `json:"taken_at"`
}

// DailyUsage totals tokens spent on one UTC day.
type DailyUsage struct {
	Day    time.Time `json:"day"`
	Tokens int       `json:"tokens"`
}
