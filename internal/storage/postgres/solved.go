package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

// SolvedStore records solved problems and their review cards.
type SolvedStore struct {
	db *DB
}

// NewSolvedStore creates a solved-problem store.
func NewSolvedStore(db *DB) *SolvedStore {
	return &SolvedStore{db: db}
}

// Record inserts a solved problem unless one already exists for the user
// and problem. It reports whether a row was written.
func (s *SolvedStore) Record(ctx context.Context, sp domain.SolvedProblem) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, `
		INSERT INTO solved_problems (user_id, problem_id, solved_at, hints_used, overtime)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, problem_id) DO NOTHING`,
		sp.UserID, sp.ProblemID, sp.SolvedAt, sp.HintsUsed, sp.Overtime,
	)
	if err != nil {
		return false, fmt.Errorf("record solved: %w", mapError(err))
	}
	return tag.RowsAffected() == 1, nil
}

// RecordMany inserts solved problems in one batch and returns how many
// were new.
func (s *SolvedStore) RecordMany(ctx context.Context, solved []domain.SolvedProblem) (int, error) {
	if len(solved) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, sp := range solved {
		batch.Queue(`
			INSERT INTO solved_problems (user_id, problem_id, solved_at, hints_used, overtime)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, problem_id) DO NOTHING`,
			sp.UserID, sp.ProblemID, sp.SolvedAt, sp.HintsUsed, sp.Overtime,
		)
	}

	inserted := 0
	err := pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			tag, err := br.Exec()
			if err != nil {
				br.Close()
				return fmt.Errorf("record solved (item %d): %w", i, mapError(err))
			}
			inserted += int(tag.RowsAffected())
		}
		return br.Close()
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// Has reports whether the user solved the problem.
func (s *SolvedStore) Has(ctx context.Context, userID uuid.UUID, problemID string) (bool, error) {
	var ok bool
	err := s.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM solved_problems WHERE user_id = $1 AND problem_id = $2)`,
		userID, problemID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check solved: %w", err)
	}
	return ok, nil
}

// List returns every solved problem of a user, newest first.
func (s *SolvedStore) List(ctx context.Context, userID uuid.UUID) ([]domain.SolvedProblem, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT user_id, problem_id, solved_at, hints_used, overtime
		FROM solved_problems WHERE user_id = $1 ORDER BY solved_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list solved: %w", err)
	}
	defer rows.Close()

	var solved []domain.SolvedProblem
	for rows.Next() {
		var sp domain.SolvedProblem
		if err := rows.Scan(&sp.UserID, &sp.ProblemID, &sp.SolvedAt, &sp.HintsUsed, &sp.Overtime); err != nil {
			return nil, fmt.Errorf("scan solved: %w", err)
		}
		solved = append(solved, sp)
	}
	return solved, rows.Err()
}

// Card returns the review card for a solved problem.
func (s *SolvedStore) Card(ctx context.Context, userID uuid.UUID, problemID string) (*domain.ReviewCard, error) {
	row := s.db.Pool.QueryRow(ctx, `
		SELECT user_id, problem_id, ease_factor, interval_d, repetitions, due_at, reviewed_at
		FROM review_cards WHERE user_id = $1 AND problem_id = $2`, userID, problemID)
	c, err := scanCard(row)
	if err != nil {
		return nil, fmt.Errorf("get review card: %w", mapError(err))
	}
	return c, nil
}

// SaveCard upserts a review card.
func (s *SolvedStore) SaveCard(ctx context.Context, c *domain.ReviewCard) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO review_cards (user_id, problem_id, ease_factor, interval_d, repetitions, due_at, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, problem_id) DO UPDATE SET
			ease_factor = excluded.ease_factor, interval_d = excluded.interval_d,
			repetitions = excluded.repetitions, due_at = excluded.due_at, reviewed_at = excluded.reviewed_at`,
		c.UserID, c.ProblemID, c.EaseFactor, c.Interval, c.Repetitions, c.DueAt, c.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("save review card: %w", mapError(err))
	}
	return nil
}

// DueCards returns cards due at or before t, most overdue first.
func (s *SolvedStore) DueCards(ctx context.Context, userID uuid.UUID, t time.Time, limit int) ([]domain.ReviewCard, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT user_id, problem_id, ease_factor, interval_d, repetitions, due_at, reviewed_at
		FROM review_cards WHERE user_id = $1 AND due_at <= $2
		ORDER BY due_at LIMIT $3`, userID, t, limit)
	if err != nil {
		return nil, fmt.Errorf("list due cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.ReviewCard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review card: %w", err)
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}

func scanCard(row pgx.Row) (*domain.ReviewCard, error) {
	var c domain.ReviewCard
	err := row.Scan(&c.UserID, &c.ProblemID, &c.EaseFactor, &c.Interval, &c.Repetitions, &c.DueAt, &c.ReviewedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
