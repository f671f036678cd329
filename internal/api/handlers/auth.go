package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/auth"
	"github.com/felixgeelhaar/solvehelper/internal/domain"
	"github.com/felixgeelhaar/solvehelper/internal/progress"
)

// AuthService registers users and manages the account
type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*auth.LoginResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateHandle(ctx context.Context, userID uuid.UUID, handle string) (*domain.User, error)
}

// ProfileSyncer refreshes a user's judge profile
type ProfileSyncer interface {
	SyncProfile(ctx context.Context, userID uuid.UUID) (*progress.SyncResult, error)
}

// AuthHandler handles authentication and account endpoints
type AuthHandler struct {
	auth AuthService
	sync ProfileSyncer
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth AuthService, sync ProfileSyncer) *AuthHandler {
	return &AuthHandler{auth: auth, sync: sync}
}

// RegisterRequest is the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Handle   string `json:"handle" validate:"omitempty,min=3,max=16"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateMeRequest links a judge handle; an empty handle unlinks it
type UpdateMeRequest struct {
	Handle string `json:"handle" validate:"omitempty,min=3,max=16"`
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if apiErr := decode(w, r, &req); apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	user, err := h.auth.Register(r.Context(), auth.RegisterRequest{
		Email:    req.Email,
		Handle:   req.Handle,
		Password: req.Password,
	})
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"user": user})
}

// Login returns a bearer token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if apiErr := decode(w, r, &req); apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	resp, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Me returns the current user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), userID(r))
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"user": user})
}

// UpdateMe changes the linked judge handle
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateMeRequest
	if apiErr := decode(w, r, &req); apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	user, err := h.auth.UpdateHandle(r.Context(), userID(r), req.Handle)
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"user": user})
}

// Sync pulls avatar, rating and solved problems from the judge
func (h *AuthHandler) Sync(w http.ResponseWriter, r *http.Request) {
	res, err := h.sync.SyncProfile(r.Context(), userID(r))
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}
