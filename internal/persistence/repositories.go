package persistence

import (
	"context"
	"time"
)

// MeetingFilter narrows meeting queries.
type MeetingFilter struct {
	SectionIDs  []string
	TeacherID   string
	StartsAfter *time.Time
	EndsBefore  *time.Time
}

// MeetingRepository stores meeting definitions with their teachers and
// exception dates.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting Meeting) error
	UpdateMeeting(ctx context.Context, meeting Meeting) error
	GetMeeting(ctx context.Context, id string) (Meeting, error)
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, error)
	DeleteMeeting(ctx context.Context, id string) error
}

// RoomRepository exposes the rooms catalog.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

// RosterRepository stores people and guardian/student relations.
type RosterRepository interface {
	CreatePerson(ctx context.Context, person Person) error
	GetPerson(ctx context.Context, id string) (Person, error)
	MissingPersonIDs(ctx context.Context, ids []string) ([]string, error)
	LinkGuardian(ctx context.Context, guardianID, studentID string) error
	StudentIDsForGuardian(ctx context.Context, guardianID string) ([]string, error)
}

// SectionRepository stores class sections.
type SectionRepository interface {
	CreateSection(ctx context.Context, section Section) error
	UpdateSection(ctx context.Context, section Section) error
	GetSection(ctx context.Context, id string) (Section, error)
	ListSections(ctx context.Context) ([]Section, error)
}

// EnrollmentRepository stores enrollment records. Records are never deleted;
// cancellation is a status update.
type EnrollmentRepository interface {
	CreateEnrollment(ctx context.Context, enrollment Enrollment) error
	UpdateEnrollment(ctx context.Context, enrollment Enrollment) error
	GetEnrollment(ctx context.Context, id string) (Enrollment, error)
	ListEnrollmentsForSection(ctx context.Context, sectionID string) ([]Enrollment, error)
	ListEnrollmentsForStudent(ctx context.Context, studentID string) ([]Enrollment, error)
}
