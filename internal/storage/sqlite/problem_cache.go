package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

// ProblemCache keeps problems fetched from the API so the CLI can show a
// statement offline.
type ProblemCache struct {
	db  *DB
	ttl time.Duration
}

// NewProblemCache creates a cache whose entries expire after ttl; zero
// keeps them forever.
func NewProblemCache(db *DB, ttl time.Duration) *ProblemCache {
	return &ProblemCache{db: db, ttl: ttl}
}

// Put stores a problem.
func (c *ProblemCache) Put(p *domain.Problem) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal problem: %w", err)
	}
	_, err = c.db.Exec(`
		INSERT INTO problem_cache (id, body, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET body=excluded.body, fetched_at=excluded.fetched_at`,
		p.ID, string(body), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert problem cache: %w", err)
	}
	return nil
}

// Get returns a cached problem, or domain.ErrNotFound when it is missing
// or expired.
func (c *ProblemCache) Get(id string) (*domain.Problem, error) {
	var (
		body    string
		fetched time.Time
	)
	err := c.db.QueryRow("SELECT body, fetched_at FROM problem_cache WHERE id = ?", id).Scan(&body, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query problem cache: %w", err)
	}
	if c.ttl > 0 && time.Since(fetched) > c.ttl {
		return nil, domain.ErrNotFound
	}

	var p domain.Problem
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, fmt.Errorf("unmarshal problem: %w", err)
	}
	return &p, nil
}

// Prune deletes expired entries and returns how many were removed.
func (c *ProblemCache) Prune() (int, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	result, err := c.db.Exec("DELETE FROM problem_cache WHERE fetched_at < ?", time.Now().UTC().Add(-c.ttl))
	if err != nil {
		return 0, fmt.Errorf("prune problem cache: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}
