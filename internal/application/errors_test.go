package application

import "testing"

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"field": "invalid"}}
	if got := withFields.Error(); got != "validation failed" {
		t.Fatalf("expected consistent message for populated error, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_Add(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("title", "title is required")
	if got := base.FieldErrors["title"]; got != "title is required" {
		t.Fatalf("expected add to populate map, got %q", got)
	}

	base.add("title", "title must not be blank")
	if got := base.FieldErrors["title"]; got != "title must not be blank" {
		t.Fatalf("expected later add to replace earlier message, got %q", got)
	}

	base.add("capacity", "capacity must not be negative")
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected two fields recorded, got %d", len(base.FieldErrors))
	}
}
