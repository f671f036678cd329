package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

// ContestStore persists contests and their problem links.
type ContestStore struct {
	db *DB
}

// NewContestStore creates a contest store.
func NewContestStore(db *DB) *ContestStore {
	return &ContestStore{db: db}
}

// UpsertContests writes contests in a single batch.
func (s *ContestStore) UpsertContests(ctx context.Context, contests []domain.Contest) error {
	if len(contests) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range contests {
		batch.Queue(`
			INSERT INTO contests (id, title, start_at, duration_s, rate_change)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				title = excluded.title, start_at = excluded.start_at,
				duration_s = excluded.duration_s, rate_change = excluded.rate_change`,
			c.ID, c.Title, c.StartAt, int64(c.Duration/time.Second), c.RateChange,
		)
	}
	return execBatch(ctx, s.db, batch, "upsert contests")
}

// UpsertContestProblems writes contest-problem links in a single batch.
func (s *ContestStore) UpsertContestProblems(ctx context.Context, links []domain.ContestProblem) error {
	if len(links) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, l := range links {
		batch.Queue(`
			INSERT INTO contest_problems (contest_id, problem_id, idx) VALUES ($1, $2, $3)
			ON CONFLICT (contest_id, problem_id) DO UPDATE SET idx = excluded.idx`,
			l.ContestID, l.ProblemID, l.Index,
		)
	}
	return execBatch(ctx, s.db, batch, "upsert contest problems")
}

// List returns the most recent contests first.
func (s *ContestStore) List(ctx context.Context, limit int) ([]domain.Contest, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, title, start_at, duration_s, rate_change
		FROM contests ORDER BY start_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list contests: %w", err)
	}
	defer rows.Close()

	var contests []domain.Contest
	for rows.Next() {
		var (
			c        domain.Contest
			duration int64
		)
		if err := rows.Scan(&c.ID, &c.Title, &c.StartAt, &duration, &c.RateChange); err != nil {
			return nil, fmt.Errorf("scan contest: %w", err)
		}
		c.Duration = time.Duration(duration) * time.Second
		contests = append(contests, c)
	}
	return contests, rows.Err()
}

// Problems returns the problems of a contest in slot order.
func (s *ContestStore) Problems(ctx context.Context, contestID string) ([]domain.Problem, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT p.id, p.contest_id, cp.idx, p.title, p.slug, p.difficulty, p.statement, p.samples, p.editorial, p.hints, p.updated_at
		FROM contest_problems cp JOIN problems p ON p.id = cp.problem_id
		WHERE cp.contest_id = $1
		ORDER BY cp.idx`, contestID)
	if err != nil {
		return nil, fmt.Errorf("list contest problems: %w", err)
	}
	defer rows.Close()

	var problems []domain.Problem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan problem: %w", err)
		}
		problems = append(problems, *p)
	}
	return problems, rows.Err()
}
