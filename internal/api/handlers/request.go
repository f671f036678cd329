package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/api/middleware"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldError describes one invalid request field
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// decode reads a JSON body into dst and validates its struct tags.
func decode(w http.ResponseWriter, r *http.Request, dst any) *APIError {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return NewAPIError("BAD_REQUEST", "request body is required")
		}
		return NewAPIError("BAD_REQUEST", "invalid request body").WithCause(err)
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return NewAPIError("BAD_REQUEST", "invalid request body").WithCause(err)
		}
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Error: fieldMessage(fe)})
		}
		return NewAPIError("VALIDATION_FAILED", "validation failed").WithDetails(fields)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	str := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if str {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if str {
			return fmt.Sprintf("must not exceed %s characters", fe.Param())
		}
		return "must not exceed " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "alphanum", "alpha":
		return "must contain only letters and digits"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// userID returns the authenticated user. Routes behind the auth middleware
// always have one.
func userID(r *http.Request) uuid.UUID {
	id, _ := middleware.GetUserID(r.Context())
	return id
}

// pathUUID parses a path parameter as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, *APIError) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, NewAPIError("BAD_REQUEST", "invalid "+name)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, *APIError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewAPIError("BAD_REQUEST", name+" must be an integer")
	}
	return v, nil
}

// queryIntPtr parses an optional integer query parameter, nil when absent.
func queryIntPtr(r *http.Request, name string) (*int, *APIError) {
	if r.URL.Query().Get(name) == "" {
		return nil, nil
	}
	v, apiErr := queryInt(r, name, 0)
	if apiErr != nil {
		return nil, apiErr
	}
	return &v, nil
}
