package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

// UserSource returns a user's configured daily quota.
type UserSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// UsageRecorder persists token usage samples.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, u domain.TokenUsage) error
}

// Meter gates AI calls on the user's quota and records what they spend.
type Meter struct {
	limiter Limiter
	users   UserSource
	usage   UsageRecorder
	now     func() time.Time
}

// NewMeter creates a meter.
func NewMeter(limiter Limiter, users UserSource, usage UsageRecorder) *Meter {
	return &Meter{limiter: limiter, users: users, usage: usage, now: time.Now}
}

// Allow fails with domain.ErrQuotaExceeded when the user spent their
// budget for today.
func (m *Meter) Allow(ctx context.Context, userID uuid.UUID) error {
	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	_, err = m.limiter.Check(ctx, userID, user.DailyTokenQuota)
	return err
}

// Record adds tokens to today's counter and the usage history. Failures
// are logged; the AI call already happened.
func (m *Meter) Record(ctx context.Context, userID uuid.UUID, kind domain.UsageKind, tokens int) {
	if tokens <= 0 {
		return
	}
	if _, err := m.limiter.Consume(ctx, userID, tokens); err != nil {
		slog.Warn("failed to consume quota", "user_id", userID, "error", err)
	}
	err := m.usage.RecordUsage(ctx, domain.TokenUsage{
		UserID:  userID,
		Kind:    kind,
		Tokens:  tokens,
		TakenAt: m.now().UTC(),
	})
	if err != nil {
		slog.Warn("failed to record token usage", "user_id", userID, "kind", kind, "error", err)
	}
}
