package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

// Timer is the local copy of a practice session driven by the CLI. The
// embedded session ID is the server session, or uuid.Nil before the first sync.
type Timer struct {
	*domain.PracticeSession
	Hints    []string
	SyncedAt *time.Time
}

// Dirty reports whether local progress has not reached the server.
func (t *Timer) Dirty() bool {
	return t.SyncedAt == nil || t.UpdatedAt.After(*t.SyncedAt)
}

// TimerStore persists practice timers keyed by problem.
type TimerStore struct {
	db *DB
}

// NewTimerStore creates a timer store.
func NewTimerStore(db *DB) *TimerStore {
	return &TimerStore{db: db}
}

// Save inserts or updates the timer for its problem.
func (s *TimerStore) Save(t *Timer) error {
	hints, err := json.Marshal(t.Hints)
	if err != nil {
		return fmt.Errorf("marshal hints: %w", err)
	}
	if t.Hints == nil {
		hints = []byte("[]")
	}

	remote := ""
	if t.ID != uuid.Nil {
		remote = t.ID.String()
	}

	_, err = s.db.Exec(`
		INSERT INTO practice_timers (problem_id, remote_id, time_limit_s, elapsed_s, hints_used,
			hints, status, started_at, updated_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(problem_id) DO UPDATE SET
			remote_id=excluded.remote_id, time_limit_s=excluded.time_limit_s,
			elapsed_s=excluded.elapsed_s, hints_used=excluded.hints_used,
			hints=excluded.hints, status=excluded.status,
			started_at=excluded.started_at, updated_at=excluded.updated_at,
			synced_at=excluded.synced_at`,
		t.ProblemID, remote, int64(t.TimeLimit/time.Second), int64(t.Elapsed/time.Second), t.HintsUsed,
		string(hints), string(t.Status), t.StartedAt.UTC(), t.UpdatedAt.UTC(), nullTime(t.SyncedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert timer: %w", err)
	}
	return nil
}

// Get returns the timer for a problem.
func (s *TimerStore) Get(problemID string) (*Timer, error) {
	row := s.db.QueryRow(`
		SELECT problem_id, remote_id, time_limit_s, elapsed_s, hints_used, hints, status,
			started_at, updated_at, synced_at
		FROM practice_timers WHERE problem_id = ?`, problemID)
	return scanTimer(row)
}

// ListUnsynced returns timers with progress the server has not seen.
func (s *TimerStore) ListUnsynced() ([]*Timer, error) {
	rows, err := s.db.Query(`
		SELECT problem_id, remote_id, time_limit_s, elapsed_s, hints_used, hints, status,
			started_at, updated_at, synced_at
		FROM practice_timers ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("list unsynced timers: %w", err)
	}
	defer rows.Close()

	var timers []*Timer
	for rows.Next() {
		t, err := scanTimer(rows)
		if err != nil {
			return nil, err
		}
		if t.Dirty() {
			timers = append(timers, t)
		}
	}
	return timers, rows.Err()
}

// MarkSynced records a successful sync and the server session id.
func (s *TimerStore) MarkSynced(problemID string, remoteID uuid.UUID, at time.Time) error {
	result, err := s.db.Exec(`UPDATE practice_timers SET remote_id = ?, synced_at = ? WHERE problem_id = ?`,
		remoteID.String(), at.UTC(), problemID)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the timer for a problem.
func (s *TimerStore) Delete(problemID string) error {
	result, err := s.db.Exec("DELETE FROM practice_timers WHERE problem_id = ?", problemID)
	if err != nil {
		return fmt.Errorf("delete timer: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTimer(row scanner) (*Timer, error) {
	var (
		p              domain.PracticeSession
		remote         string
		limit, elapsed int64
		hints, status  string
		synced         sql.NullTime
	)
	err := row.Scan(&p.ProblemID, &remote, &limit, &elapsed, &p.HintsUsed, &hints, &status,
		&p.StartedAt, &p.UpdatedAt, &synced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan timer: %w", err)
	}

	if remote != "" {
		id, err := uuid.Parse(remote)
		if err != nil {
			return nil, fmt.Errorf("parse remote id: %w", err)
		}
		p.ID = id
	}
	p.TimeLimit = time.Duration(limit) * time.Second
	p.Elapsed = time.Duration(elapsed) * time.Second
	p.Status = domain.PracticeStatus(status)
	p.Solved = p.Status == domain.PracticeSolved

	t := &Timer{PracticeSession: &p}
	if err := json.Unmarshal([]byte(hints), &t.Hints); err != nil {
		return nil, fmt.Errorf("unmarshal hints: %w", err)
	}
	if synced.Valid {
		at := synced.Time
		t.SyncedAt = &at
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
