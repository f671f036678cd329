package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/felixgeelhaar/solvehelper/internal/api/middleware"
	"github.com/felixgeelhaar/solvehelper/internal/auth"
	"github.com/felixgeelhaar/solvehelper/internal/domain"
	"github.com/felixgeelhaar/solvehelper/internal/llm"
)

// APIError represents a structured API error
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// NewAPIError creates a new API error
func NewAPIError(code string, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// WithDetails adds details to the error
func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

// ErrorResponse is the JSON structure for error responses
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// WriteError writes an error response and logs it; 5xx at Error, 4xx at Warn.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, apiErr *APIError) {
	logAttrs := []any{
		"code", apiErr.Code,
		"message", apiErr.Message,
		"status", statusCode,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetRequestID(r.Context()),
	}
	if apiErr.cause != nil {
		logAttrs = append(logAttrs, "cause", apiErr.cause.Error())
	}

	if statusCode >= 500 {
		slog.Error("api error", logAttrs...)
	} else {
		slog.Warn("api error", logAttrs...)
	}

	WriteJSON(w, statusCode, ErrorResponse{Error: apiErr})
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// BadRequest writes a 400.
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusBadRequest, NewAPIError("BAD_REQUEST", message))
}

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusUnauthorized, NewAPIError("UNAUTHORIZED", message))
}

// errorStatus maps service errors onto HTTP statuses and error codes.
var errorStatus = []struct {
	target error
	status int
	code   string
}{
	{domain.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{auth.ErrEmailExists, http.StatusConflict, "CONFLICT"},
	{domain.ErrUserAlreadyExists, http.StatusConflict, "CONFLICT"},
	{domain.ErrConflict, http.StatusConflict, "CONFLICT"},
	{domain.ErrSessionFinished, http.StatusConflict, "SESSION_FINISHED"},
	{domain.ErrNoHintAvailable, http.StatusConflict, "NO_HINT_AVAILABLE"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "BAD_REQUEST"},
	{domain.ErrInvalidPassword, http.StatusBadRequest, "BAD_REQUEST"},
	{domain.ErrHandleRequired, http.StatusBadRequest, "HANDLE_REQUIRED"},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrQuotaExceeded, http.StatusTooManyRequests, "QUOTA_EXCEEDED"},
	{llm.ErrRateLimited, http.StatusServiceUnavailable, "UPSTREAM_BUSY"},
}

// Error writes err with the status its sentinel maps to, or a 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorStatus {
		if errors.Is(err, m.target) {
			msg := err.Error()
			if m.status == http.StatusNotFound || m.status == http.StatusForbidden {
				// 404 and 403 bodies carry only the sentinel text.
				msg = m.target.Error()
			}
			WriteError(w, r, m.status, NewAPIError(m.code, msg).WithCause(err))
			return
		}
	}
	WriteError(w, r, http.StatusInternalServerError,
		NewAPIError("INTERNAL_ERROR", "an unexpected error occurred").WithCause(err))
}
