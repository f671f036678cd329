package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// Repositories and services return these (possibly wrapped) so the HTTP and
// MCP layers can map them without knowing about storage details.
// -----------------------------------------------------------------------------

// User errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrHandleRequired    = errors.New("judge handle not linked")
)

// Practice errors
var (
	ErrNoHintAvailable = errors.New("no unlocked hint available")
	ErrSessionFinished = errors.New("practice session already finished")
)

// Quota errors
var (
	ErrQuotaExceeded = errors.New("daily token quota exceeded")
)

// General errors
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInternalError = errors.New("internal error")
)
