package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

// UserStore persists accounts.
type UserStore struct {
	db *DB
}

// NewUserStore creates a user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, email, handle, password_hash, rating, avatar, daily_token_quota, created_at, updated_at`

// Create inserts a new user.
func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Email, u.Handle, u.PasswordHash, u.Rating, u.Avatar, u.DailyTokenQuota, u.CreatedAt, u.UpdatedAt,
	)
	if err := mapError(err); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.ErrUserAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID returns a user by id.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns a user by email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (s *UserStore) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	u := &domain.User{}
	err := s.db.Pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Handle, &u.PasswordHash, &u.Rating, &u.Avatar,
		&u.DailyTokenQuota, &u.CreatedAt, &u.UpdatedAt,
	)
	if err := mapError(err); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Update writes the mutable profile fields.
func (s *UserStore) Update(ctx context.Context, u *domain.User) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE users SET handle = $2, rating = $3, avatar = $4, daily_token_quota = $5, updated_at = $6
		WHERE id = $1`,
		u.ID, u.Handle, u.Rating, u.Avatar, u.DailyTokenQuota, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ListWithHandle returns users that linked a judge handle.
func (s *UserStore) ListWithHandle(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.Pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE handle <> '' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Handle, &u.PasswordHash, &u.Rating, &u.Avatar,
			&u.DailyTokenQuota, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
