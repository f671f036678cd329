package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/felixgeelhaar/solvehelper/internal/domain")

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, domain.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), domain.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, domain.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapError(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("mapError() = %v; want %v", got, tt.want)
			}
		})
	}

	other := &pgconn.PgError{Code: "23503"}
	if got := mapError(other); got != other {
		t.Errorf("mapError(fk violation) = %v; want passthrough", got)
	}
	if mapError(nil) != nil {
		t.Error("mapError(nil) should be nil")
	}
}

func TestJSONArg(t *testing.T) {
	var nilHints []string
	got, err := jsonArg(nilHints)
	if err != nil || got != "[]" {
		t.Errorf("jsonArg(nil) = %q, %v", got, err)
	}
	got, _ = jsonArg([]string{"a"})
	if got != `["a"]` {
		t.Errorf("jsonArg() = %q", got)
	}
}
