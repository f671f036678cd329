package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

// ProgressStore persists rating history and token usage samples.
type ProgressStore struct {
	db *DB
}

// NewProgressStore creates a progress store.
func NewProgressStore(db *DB) *ProgressStore {
	return &ProgressStore{db: db}
}

// AddRatings inserts rating samples, skipping ones already recorded, and
// returns how many were new.
func (s *ProgressStore) AddRatings(ctx context.Context, samples []domain.RatingSample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	rows := make([][]any, 0, len(samples))
	for _, r := range samples {
		rows = append(rows, []any{r.UserID, r.Rating, r.ContestID, r.TakenAt})
	}

	inserted := 0
	err := pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `CREATE TEMP TABLE rating_import (LIKE rating_history) ON COMMIT DROP`); err != nil {
			return fmt.Errorf("create temp table: %w", err)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"rating_import"},
			[]string{"user_id", "rating", "contest_id", "taken_at"}, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("copy ratings: %w", err)
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO rating_history SELECT * FROM rating_import
			ON CONFLICT (user_id, taken_at) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("merge ratings: %w", err)
		}
		inserted = int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// Ratings returns rating samples since the given time, oldest first.
func (s *ProgressStore) Ratings(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.RatingSample, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT user_id, rating, contest_id, taken_at FROM rating_history
		WHERE user_id = $1 AND taken_at >= $2 ORDER BY taken_at`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	var samples []domain.RatingSample
	for rows.Next() {
		var r domain.RatingSample
		if err := rows.Scan(&r.UserID, &r.Rating, &r.ContestID, &r.TakenAt); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		samples = append(samples, r)
	}
	return samples, rows.Err()
}

// RecordUsage stores one token usage sample.
func (s *ProgressStore) RecordUsage(ctx context.Context, u domain.TokenUsage) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO token_usage (user_id, kind, tokens, taken_at) VALUES ($1, $2, $3, $4)`,
		u.UserID, string(u.Kind), u.Tokens, u.TakenAt,
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", mapError(err))
	}
	return nil
}

// DailyUsage totals token usage per UTC day since the given time.
func (s *ProgressStore) DailyUsage(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.DailyUsage, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT date_trunc('day', taken_at AT TIME ZONE 'UTC') AS day, sum(tokens)::int
		FROM token_usage WHERE user_id = $1 AND taken_at >= $2
		GROUP BY day ORDER BY day`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("daily usage: %w", err)
	}
	defer rows.Close()

	var days []domain.DailyUsage
	for rows.Next() {
		var d domain.DailyUsage
		if err := rows.Scan(&d.Day, &d.Tokens); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		d.Day = time.Date(d.Day.Year(), d.Day.Month(), d.Day.Day(), 0, 0, 0, 0, time.UTC)
		days = append(days, d)
	}
	return days, rows.Err()
}
