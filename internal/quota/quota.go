// Package quota enforces the daily AI token budget of each user.
package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

// keyTTL outlives the day so late reads near midnight still see the total.
const keyTTL = 48 * time.Hour

// Limiter tracks tokens spent per user per UTC day.
type Limiter interface {
	// Check fails with domain.ErrQuotaExceeded when the user has no budget left.
	Check(ctx context.Context, userID uuid.UUID, limit int) (used int, err error)
	// Consume adds tokens to today's total and returns the new total.
	Consume(ctx context.Context, userID uuid.UUID, tokens int) (int, error)
}

const dayLayout = "2006-01-02"

func dayKey(userID uuid.UUID, t time.Time) string {
	return fmt.Sprintf("quota:%s:%s", userID, t.UTC().Format(dayLayout))
}

func check(used, limit int) error {
	if limit > 0 && used >= limit {
		return fmt.Errorf("%w: %d of %d tokens used today", domain.ErrQuotaExceeded, used, limit)
	}
	return nil
}

// RedisLimiter keeps counters in Redis so every daemon replica shares them.
type RedisLimiter struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisLimiter creates a Redis-backed limiter.
func NewRedisLimiter(client redis.UniversalClient) *RedisLimiter {
	return &RedisLimiter{client: client, now: time.Now}
}

func (l *RedisLimiter) Check(ctx context.Context, userID uuid.UUID, limit int) (int, error) {
	used, err := l.client.Get(ctx, dayKey(userID, l.now())).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("read quota: %w", err)
	}
	return used, check(used, limit)
}

func (l *RedisLimiter) Consume(ctx context.Context, userID uuid.UUID, tokens int) (int, error) {
	if tokens <= 0 {
		return l.Check(ctx, userID, 0)
	}
	key := dayKey(userID, l.now())

	pipe := l.client.TxPipeline()
	incr := pipe.IncrBy(ctx, key, int64(tokens))
	pipe.Expire(ctx, key, keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("consume quota: %w", err)
	}
	return int(incr.Val()), nil
}

// MemoryLimiter keeps counters in process memory.
type MemoryLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	// day of the last prune
	day string
	now func() time.Time
}

// NewMemoryLimiter creates an in-memory limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{counts: make(map[string]int), now: time.Now}
}

func (l *MemoryLimiter) Check(_ context.Context, userID uuid.UUID, limit int) (int, error) {
	l.mu.Lock()
	used := l.counts[dayKey(userID, l.now())]
	l.mu.Unlock()
	return used, check(used, limit)
}

func (l *MemoryLimiter) Consume(_ context.Context, userID uuid.UUID, tokens int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.prune(now)
	key := dayKey(userID, now)
	if tokens > 0 {
		l.counts[key] += tokens
	}
	return l.counts[key], nil
}

// prune drops counters older than yesterday, once per day. Yesterday is kept
// like the Redis TTL keeps it.
func (l *MemoryLimiter) prune(now time.Time) {
	today := now.UTC().Format(dayLayout)
	if today == l.day {
		return
	}
	l.day = today
	cutoff := now.UTC().AddDate(0, 0, -1).Format(dayLayout)
	for key := range l.counts {
		if len(key) < len(dayLayout) || key[len(key)-len(dayLayout):] < cutoff {
			delete(l.counts, key)
		}
	}
}
