package application

import "time"

// Role identifies the position a principal holds in the school community.
type Role string

const (
	// RoleTeacher marks teaching staff.
	RoleTeacher Role = "teacher"
	// RoleStudent marks enrolled students.
	RoleStudent Role = "student"
	// RoleGuardian marks guardians linked to one or more students.
	RoleGuardian Role = "guardian"
	// RoleAdmin marks school administrators.
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the recognised values.
func (r Role) Valid() bool {
	switch r {
	case RoleTeacher, RoleStudent, RoleGuardian, RoleAdmin:
		return true
	}
	return false
}

// Principal represents the authenticated person invoking a service method.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanManageMeetings reports whether the principal may create, update, or
// delete meetings.
func (p Principal) CanManageMeetings() bool {
	return p.Role == RoleAdmin || p.Role == RoleTeacher
}

// MeetingInput captures caller provided meeting fields.
type MeetingInput struct {
	SectionID      string
	Title          string
	Start          time.Time
	End            time.Time
	Recurrence     string
	ExceptionDates []time.Time
	RoomID         *string
	TeacherIDs     []string
}

// Meeting represents a persisted section meeting.
type Meeting struct {
	ID             string
	SectionID      string
	Title          string
	Start          time.Time
	End            time.Time
	IsRecurring    bool
	Recurrence     string
	ExceptionDates []time.Time
	RoomID         *string
	TeacherIDs     []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Occurrence represents one expanded instance of a meeting within a window.
type Occurrence struct {
	MeetingID string
	SectionID string
	Title     string
	Start     time.Time
	End       time.Time
}

// ConflictWarning describes a scheduling conflict surfaced alongside a write.
type ConflictWarning struct {
	WithMeetingID string
	Start         time.Time
	Type          string
	TeacherID     string
	RoomID        *string
}

// DegradedWarning reports a meeting whose recurrence rule could not be
// expanded; its base occurrence was used instead.
type DegradedWarning struct {
	MeetingID string
	Reason    string
}

// CreateMeetingParams wraps the data required to create a meeting.
type CreateMeetingParams struct {
	Principal Principal
	Input     MeetingInput
}

// UpdateMeetingParams wraps the data required to update an existing meeting.
type UpdateMeetingParams struct {
	Principal Principal
	MeetingID string
	Input     MeetingInput
}

// ListMeetingsParams wraps the data required to list meetings.
type ListMeetingsParams struct {
	Principal   Principal
	SectionIDs  []string
	TeacherID   string
	StartsAfter *time.Time
	EndsBefore  *time.Time
}

// CheckConflictsParams wraps a candidate meeting to evaluate without
// persisting it. When MeetingID names an existing meeting, that meeting is
// excluded from the comparison set.
type CheckConflictsParams struct {
	Principal   Principal
	MeetingID   string
	Input       MeetingInput
	WindowStart *time.Time
	WindowEnd   *time.Time
}

// SectionInput captures caller provided section fields.
type SectionInput struct {
	Name     string
	Capacity int
}

// Section represents a capacity-bearing class section.
type Section struct {
	ID        string
	Name      string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Enrollment represents one student's standing in a section.
type Enrollment struct {
	ID          string
	SectionID   string
	StudentID   string
	Status      string
	RequestedAt time.Time
}

// SectionStats summarises a section's enrollment occupancy.
type SectionStats struct {
	SectionID       string
	EnrolledCount   int
	WaitlistedCount int
	CancelledCount  int
	AvailableSlots  int
	UtilizationRate float64
}

// EnrollParams wraps an enrollment request.
type EnrollParams struct {
	Principal Principal
	SectionID string
	StudentID string
}

// WithdrawParams wraps an enrollment withdrawal.
type WithdrawParams struct {
	Principal    Principal
	EnrollmentID string
}

// WithdrawResult reports the cancelled record and any waitlisted students
// promoted into the freed slot.
type WithdrawResult struct {
	Cancelled Enrollment
	Promoted  []Enrollment
}

// AgendaPeriod identifies the range preset requested for agenda queries.
type AgendaPeriod string

const (
	// AgendaPeriodNone indicates no preset; caller supplied explicit bounds.
	AgendaPeriodNone AgendaPeriod = ""
	// AgendaPeriodDay constrains results to a single day.
	AgendaPeriodDay AgendaPeriod = "day"
	// AgendaPeriodWeek constrains results to the Monday-start week containing
	// the reference time.
	AgendaPeriodWeek AgendaPeriod = "week"
	// AgendaPeriodMonth constrains results to the month containing the
	// reference time.
	AgendaPeriodMonth AgendaPeriod = "month"
)

// AgendaParams wraps the data required to assemble a role-filtered agenda.
type AgendaParams struct {
	Principal       Principal
	StudentID       string
	WindowStart     *time.Time
	WindowEnd       *time.Time
	Period          AgendaPeriod
	PeriodReference time.Time
}

// Agenda is the expanded, chronologically ordered occurrence listing visible
// to a principal.
type Agenda struct {
	Occurrences []Occurrence
	Degraded    []DegradedWarning
}
