package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

// ProblemStore persists problems, statements, hints and translations.
type ProblemStore struct {
	db *DB
}

// NewProblemStore creates a problem store.
func NewProblemStore(db *DB) *ProblemStore {
	return &ProblemStore{db: db}
}

const problemColumns = `id, contest_id, idx, title, slug, difficulty, statement, samples, editorial, hints, updated_at`

// UpsertProblems writes problem metadata in a single batch. Statements,
// editorials and hints already stored are left untouched.
func (s *ProblemStore) UpsertProblems(ctx context.Context, problems []domain.Problem) error {
	if len(problems) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range problems {
		batch.Queue(`
			INSERT INTO problems (id, contest_id, idx, title, slug, difficulty, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (id) DO UPDATE SET
				contest_id = excluded.contest_id, idx = excluded.idx, title = excluded.title,
				slug = excluded.slug, difficulty = COALESCE(excluded.difficulty, problems.difficulty),
				updated_at = now()`,
			p.ID, p.ContestID, p.Index, p.Title, p.Slug, p.Difficulty,
		)
	}
	return execBatch(ctx, s.db, batch, "upsert problems")
}

// UpsertStatements stores scraped statements, samples and editorials.
func (s *ProblemStore) UpsertStatements(ctx context.Context, problems []domain.Problem) error {
	if len(problems) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range problems {
		samples, err := jsonArg(p.Samples)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO problems (id, contest_id, idx, title, statement, samples, editorial, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, now())
			ON CONFLICT (id) DO UPDATE SET
				statement = excluded.statement, samples = excluded.samples,
				editorial = CASE WHEN excluded.editorial <> '' THEN excluded.editorial ELSE problems.editorial END,
				updated_at = now()`,
			p.ID, p.ContestID, p.Index, p.Title, p.Statement, samples, p.Editorial,
		)
	}
	return execBatch(ctx, s.db, batch, "upsert statements")
}

// SaveHints replaces the generated hints of a problem.
func (s *ProblemStore) SaveHints(ctx context.Context, problemID string, hints []string) error {
	arg, err := jsonArg(hints)
	if err != nil {
		return err
	}
	tag, err := s.db.Pool.Exec(ctx, `UPDATE problems SET hints = $2::jsonb, updated_at = now() WHERE id = $1`, problemID, arg)
	if err != nil {
		return fmt.Errorf("save hints: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get returns a problem by id.
func (s *ProblemStore) Get(ctx context.Context, id string) (*domain.Problem, error) {
	row := s.db.Pool.QueryRow(ctx, `SELECT `+problemColumns+` FROM problems WHERE id = $1`, id)
	p, err := scanProblem(row)
	if err != nil {
		return nil, fmt.Errorf("get problem %s: %w", id, mapError(err))
	}
	return p, nil
}

// List returns problems matching filter ordered by id.
func (s *ProblemStore) List(ctx context.Context, f domain.ProblemFilter) ([]domain.Problem, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Query != "" {
		p := arg("%" + f.Query + "%")
		where = append(where, fmt.Sprintf("(title ILIKE %s OR id ILIKE %s)", p, p))
	}
	if f.MinDifficulty != nil {
		where = append(where, "difficulty >= "+arg(*f.MinDifficulty))
	}
	if f.MaxDifficulty != nil {
		where = append(where, "difficulty <= "+arg(*f.MaxDifficulty))
	}
	if f.ContestID != "" {
		where = append(where, "contest_id = "+arg(f.ContestID))
	}
	if f.MissingOnly {
		where = append(where, "statement = ''")
	}

	query := `SELECT ` + problemColumns + ` FROM problems`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		query += " OFFSET " + arg(f.Offset)
	}

	return s.query(ctx, query, args...)
}

// Unsolved returns problems in [min, max] difficulty the user has not
// solved, closest to target first.
func (s *ProblemStore) Unsolved(ctx context.Context, userID uuid.UUID, min, max, target, limit int) ([]domain.Problem, error) {
	return s.query(ctx, `
		SELECT `+problemColumns+` FROM problems p
		WHERE p.difficulty BETWEEN $2 AND $3
		  AND NOT EXISTS (SELECT 1 FROM solved_problems sp WHERE sp.user_id = $1 AND sp.problem_id = p.id)
		ORDER BY abs(p.difficulty - $4), p.id
		LIMIT $5`,
		userID, min, max, target, limit,
	)
}

// GetMany returns the problems with the given ids; unknown ids are skipped.
func (s *ProblemStore) GetMany(ctx context.Context, ids []string) ([]domain.Problem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.query(ctx, `SELECT `+problemColumns+` FROM problems WHERE id = ANY($1) ORDER BY id`, ids)
}

// Translation returns a cached translation.
func (s *ProblemStore) Translation(ctx context.Context, problemID, lang string) (string, error) {
	var body string
	err := s.db.Pool.QueryRow(ctx,
		`SELECT body FROM problem_translations WHERE problem_id = $1 AND lang = $2`, problemID, lang,
	).Scan(&body)
	if err != nil {
		return "", mapError(err)
	}
	return body, nil
}

// SaveTranslation caches a translation.
func (s *ProblemStore) SaveTranslation(ctx context.Context, problemID, lang, body string) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO problem_translations (problem_id, lang, body) VALUES ($1, $2, $3)
		ON CONFLICT (problem_id, lang) DO UPDATE SET body = excluded.body, created_at = now()`,
		problemID, lang, body,
	)
	if err != nil {
		return fmt.Errorf("save translation: %w", mapError(err))
	}
	return nil
}

func (s *ProblemStore) query(ctx context.Context, query string, args ...any) ([]domain.Problem, error) {
	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query problems: %w", err)
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

func scanProblem(row pgx.Row) (*domain.Problem, error) {
	var (
		p       domain.Problem
		samples []byte
		hints   []byte
	)
	err := row.Scan(&p.ID, &p.ContestID, &p.Index, &p.Title, &p.Slug, &p.Difficulty,
		&p.Statement, &samples, &p.Editorial, &hints, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(samples, &p.Samples); err != nil {
		return nil, fmt.Errorf("decode samples: %w", err)
	}
	if err := json.Unmarshal(hints, &p.Hints); err != nil {
		return nil, fmt.Errorf("decode hints: %w", err)
	}
	return &p, nil
}

// jsonArg encodes v for a jsonb parameter, writing [] for nil slices.
func jsonArg[T any](v []T) (string, error) {
	if v == nil {
		return "[]", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(data), nil
}
