package application

import (
	"context"
	"errors"
	"testing"

	"github.com/example/campus-scheduler/internal/persistence"
)

func TestIdentityService_Resolve(t *testing.T) {
	t.Parallel()

	roster := &rosterDirectoryStub{people: map[string]persistence.Person{
		"teacher-1": {ID: "teacher-1", DisplayName: "T. Ueda", Role: "teacher"},
		"intruder":  {ID: "intruder", DisplayName: "No Role", Role: "superuser"},
	}}
	svc := NewIdentityService(roster)

	t.Run("resolves a known person to a principal", func(t *testing.T) {
		principal, err := svc.Resolve(context.Background(), "teacher-1")
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if principal.UserID != "teacher-1" || principal.Role != RoleTeacher {
			t.Fatalf("unexpected principal %+v", principal)
		}
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		principal, err := svc.Resolve(context.Background(), "  teacher-1 ")
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if principal.UserID != "teacher-1" {
			t.Fatalf("unexpected principal %+v", principal)
		}
	})

	t.Run("rejects blank tokens", func(t *testing.T) {
		if _, err := svc.Resolve(context.Background(), "   "); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects unknown people", func(t *testing.T) {
		if _, err := svc.Resolve(context.Background(), "ghost-1"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects people with unrecognised roles", func(t *testing.T) {
		if _, err := svc.Resolve(context.Background(), "intruder"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("propagates roster failures", func(t *testing.T) {
		failure := errors.New("roster offline")
		svc := NewIdentityService(&rosterDirectoryStub{getErr: failure})

		if _, err := svc.Resolve(context.Background(), "teacher-1"); !errors.Is(err, failure) {
			t.Fatalf("expected roster error, got %v", err)
		}
	})
}
