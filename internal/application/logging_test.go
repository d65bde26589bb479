package application

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil", err: nil, expected: ""},
		{name: "unauthorized", err: ErrUnauthorized, expected: "unauthorized"},
		{name: "not found", err: ErrNotFound, expected: "not_found"},
		{name: "already exists", err: ErrAlreadyExists, expected: "already_exists"},
		{name: "duplicate enrollment", err: ErrDuplicateEnrollment, expected: "duplicate_enrollment"},
		{name: "validation", err: &ValidationError{FieldErrors: map[string]string{"title": "bad"}}, expected: "validation"},
		{name: "wrapped sentinel", err: errors.Join(errors.New("context"), ErrNotFound), expected: "not_found"},
		{name: "unexpected", err: errors.New("disk failure"), expected: "unexpected"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ErrorKind(tc.err); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}
