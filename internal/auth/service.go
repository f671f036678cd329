// Package auth registers users and issues the bearer tokens the API
// accepts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,16}$`)

// ValidHandle reports whether h looks like a judge user name.
func ValidHandle(h string) bool {
	return handlePattern.MatchString(h)
}

// Repository defines the user data access auth needs
type Repository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
}

// Service handles authentication operations
type Service struct {
	repo       Repository
	tokens     *TokenIssuer
	bcryptCost int
	now        func() time.Time
}

// NewService creates a new auth service
func NewService(repo Repository, tokens *TokenIssuer) *Service {
	return &Service{
		repo:       repo,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// RegisterRequest contains registration data
type RegisterRequest struct {
	Email    string
	Handle   string
	Password string
}

// Register creates a new user account with the default token quota
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if len(req.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, MinPasswordLength)
	}
	if req.Handle != "" && !ValidHandle(req.Handle) {
		return nil, fmt.Errorf("%w: handle %q is not a valid judge user name", domain.ErrInvalidInput, req.Handle)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:              uuid.New(),
		Email:           email,
		Handle:          req.Handle,
		PasswordHash:    string(hashed),
		DailyTokenQuota: domain.DefaultDailyTokenQuota,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return user, nil
}

// LoginResponse contains login result
type LoginResponse struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Login checks credentials and issues a signed token
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{User: user, Token: token, ExpiresAt: exp}, nil
}

// Verify returns the user id a token was issued to
func (s *Service) Verify(token string) (uuid.UUID, error) {
	return s.tokens.Verify(token)
}

// Me returns the authenticated user
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// UpdateHandle links or unlinks a judge handle. An empty handle unlinks.
func (s *Service) UpdateHandle(ctx context.Context, userID uuid.UUID, handle string) (*domain.User, error) {
	handle = strings.TrimSpace(handle)
	if handle != "" && !ValidHandle(handle) {
		return nil, fmt.Errorf("%w: handle %q is not a valid judge user name", domain.ErrInvalidInput, handle)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Handle != handle {
		// Rating and avatar belong to the old handle.
		user.Rating = 0
		user.Avatar = ""
	}
	user.Handle = handle
	user.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
