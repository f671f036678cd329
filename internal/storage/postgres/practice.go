package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

// PracticeStore persists practice sessions.
type PracticeStore struct {
	db *DB
}

// NewPracticeStore creates a practice store.
func NewPracticeStore(db *DB) *PracticeStore {
	return &PracticeStore{db: db}
}

const practiceColumns = `id, user_id, problem_id, time_limit_s, elapsed_s, hints_used, solved, status, started_at, solved_at, updated_at`

// Create inserts a new practice session.
func (s *PracticeStore) Create(ctx context.Context, p *domain.PracticeSession) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO practice_sessions (`+practiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.UserID, p.ProblemID, seconds(p.TimeLimit), seconds(p.Elapsed), p.HintsUsed,
		p.Solved, string(p.Status), p.StartedAt, p.SolvedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert practice session: %w", mapError(err))
	}
	return nil
}

// Update writes timer progress for a session owned by its user.
func (s *PracticeStore) Update(ctx context.Context, p *domain.PracticeSession) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE practice_sessions SET elapsed_s = $3, hints_used = $4, solved = $5, status = $6,
			solved_at = $7, updated_at = $8
		WHERE id = $1 AND user_id = $2`,
		p.ID, p.UserID, seconds(p.Elapsed), p.HintsUsed, p.Solved, string(p.Status), p.SolvedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update practice session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get returns a session owned by userID.
func (s *PracticeStore) Get(ctx context.Context, userID, id uuid.UUID) (*domain.PracticeSession, error) {
	row := s.db.Pool.QueryRow(ctx, `SELECT `+practiceColumns+` FROM practice_sessions WHERE id = $1 AND user_id = $2`, id, userID)
	p, err := scanPractice(row)
	if err != nil {
		return nil, fmt.Errorf("get practice session: %w", mapError(err))
	}
	return p, nil
}

// List returns a user's sessions, newest first.
func (s *PracticeStore) List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.PracticeSession, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+practiceColumns+` FROM practice_sessions
		WHERE user_id = $1 ORDER BY started_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list practice sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.PracticeSession
	for rows.Next() {
		p, err := scanPractice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan practice session: %w", err)
		}
		sessions = append(sessions, *p)
	}
	return sessions, rows.Err()
}

// Stats aggregates sessions started since the given time.
func (s *PracticeStore) Stats(ctx context.Context, userID uuid.UUID, since time.Time) (domain.PracticeStats, error) {
	var (
		stats   domain.PracticeStats
		avgSecs float64
	)
	err := s.db.Pool.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE solved),
		       COALESCE(avg(elapsed_s) FILTER (WHERE solved), 0),
		       COALESCE(avg(hints_used), 0)
		FROM practice_sessions WHERE user_id = $1 AND started_at >= $2`,
		userID, since,
	).Scan(&stats.Sessions, &stats.Solved, &avgSecs, &stats.AvgHints)
	if err != nil {
		return stats, fmt.Errorf("practice stats: %w", err)
	}
	stats.AvgElapsed = time.Duration(avgSecs * float64(time.Second))
	return stats, nil
}

func scanPractice(row pgx.Row) (*domain.PracticeSession, error) {
	var (
		p              domain.PracticeSession
		limit, elapsed int64
		status         string
	)
	err := row.Scan(&p.ID, &p.UserID, &p.ProblemID, &limit, &elapsed, &p.HintsUsed,
		&p.Solved, &status, &p.StartedAt, &p.SolvedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.TimeLimit = time.Duration(limit) * time.Second
	p.Elapsed = time.Duration(elapsed) * time.Second
	p.Status = domain.PracticeStatus(status)
	return &p, nil
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
