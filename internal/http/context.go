package http

import (
	"context"
	"log/slog"

	"github.com/example/campus-scheduler/internal/application"
	"github.com/example/campus-scheduler/internal/logging"
)

type contextKey string

const (
	principalContextKey    contextKey = "principal"
	meetingIDContextKey    contextKey = "meeting_id"
	sectionIDContextKey    contextKey = "section_id"
	enrollmentIDContextKey contextKey = "enrollment_id"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithMeetingID injects the meeting identifier resolved from the request path.
func ContextWithMeetingID(ctx context.Context, meetingID string) context.Context {
	return context.WithValue(ctx, meetingIDContextKey, meetingID)
}

// MeetingIDFromContext extracts a meeting identifier previously associated with the context.
func MeetingIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(meetingIDContextKey).(string)
	return id, ok
}

// ContextWithSectionID injects the section identifier resolved from the request path.
func ContextWithSectionID(ctx context.Context, sectionID string) context.Context {
	return context.WithValue(ctx, sectionIDContextKey, sectionID)
}

// SectionIDFromContext extracts a section identifier previously associated with the context.
func SectionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sectionIDContextKey).(string)
	return id, ok
}

// ContextWithEnrollmentID injects the enrollment identifier resolved from the request path.
func ContextWithEnrollmentID(ctx context.Context, enrollmentID string) context.Context {
	return context.WithValue(ctx, enrollmentIDContextKey, enrollmentID)
}

// EnrollmentIDFromContext extracts an enrollment identifier previously associated with the context.
func EnrollmentIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(enrollmentIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request scoped logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts a logger previously attached to the context.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
