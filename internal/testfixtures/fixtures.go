package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/campus-scheduler/internal/enrollment"
	"github.com/example/campus-scheduler/internal/persistence"
	"github.com/example/campus-scheduler/internal/scheduler"
)

var (
	personCounter     uint64
	roomCounter       uint64
	sectionCounter    uint64
	meetingCounter    uint64
	enrollmentCounter uint64
)

var referenceTime = time.Date(2024, time.October, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ---------------------------- Person fixtures ----------------------------

// PersonFixture represents a deterministic roster record that can be
// materialised for application or persistence tests.
type PersonFixture struct {
	ID          string
	DisplayName string
	Role        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PersonOption configures the generated person fixture.
type PersonOption func(*PersonFixture)

// NewPersonFixture returns a deterministic person fixture with optional
// overrides. Generated people default to the student role.
func NewPersonFixture(opts ...PersonOption) PersonFixture {
	idx := atomic.AddUint64(&personCounter, 1)
	id := fmt.Sprintf("person-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := PersonFixture{
		ID:          id,
		DisplayName: fmt.Sprintf("Person %03d", idx),
		Role:        "student",
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithPersonID overrides the generated person ID.
func WithPersonID(id string) PersonOption {
	return func(f *PersonFixture) {
		f.ID = id
	}
}

// WithPersonDisplayName overrides the generated display name.
func WithPersonDisplayName(name string) PersonOption {
	return func(f *PersonFixture) {
		f.DisplayName = name
	}
}

// WithPersonRole overrides the generated role.
func WithPersonRole(role string) PersonOption {
	return func(f *PersonFixture) {
		f.Role = role
	}
}

// WithPersonTimestamps sets both created and updated timestamps.
func WithPersonTimestamps(created, updated time.Time) PersonOption {
	return func(f *PersonFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Persistence materialises the fixture as a persistence record.
func (f PersonFixture) Persistence() persistence.Person {
	return persistence.Person{
		ID:          f.ID,
		DisplayName: f.DisplayName,
		Role:        f.Role,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic room catalogue entry.
type RoomFixture struct {
	ID        string
	Name      string
	Location  string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := RoomFixture{
		ID:        fmt.Sprintf("room-%03d", idx),
		Name:      fmt.Sprintf("Room %03d", idx),
		Location:  fmt.Sprintf("Building %d", idx%3+1),
		Capacity:  30,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomCapacity overrides the generated room capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		f.Capacity = capacity
	}
}

// Persistence materialises the fixture as a persistence record.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:        f.ID,
		Name:      f.Name,
		Location:  f.Location,
		Capacity:  f.Capacity,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// ---------------------------- Section fixtures ---------------------------

// SectionFixture represents a deterministic class section.
type SectionFixture struct {
	ID        string
	Name      string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SectionOption configures the generated section fixture.
type SectionOption func(*SectionFixture)

// NewSectionFixture returns a deterministic section fixture with optional
// overrides.
func NewSectionFixture(opts ...SectionOption) SectionFixture {
	idx := atomic.AddUint64(&sectionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := SectionFixture{
		ID:        fmt.Sprintf("section-%03d", idx),
		Name:      fmt.Sprintf("Section %03d", idx),
		Capacity:  25,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSectionID overrides the generated section ID.
func WithSectionID(id string) SectionOption {
	return func(f *SectionFixture) {
		f.ID = id
	}
}

// WithSectionName overrides the generated section name.
func WithSectionName(name string) SectionOption {
	return func(f *SectionFixture) {
		f.Name = name
	}
}

// WithSectionCapacity overrides the generated capacity.
func WithSectionCapacity(capacity int) SectionOption {
	return func(f *SectionFixture) {
		f.Capacity = capacity
	}
}

// Persistence materialises the fixture as a persistence record.
func (f SectionFixture) Persistence() persistence.Section {
	return persistence.Section{
		ID:        f.ID,
		Name:      f.Name,
		Capacity:  f.Capacity,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Ledger materialises the fixture as an enrollment ledger section.
func (f SectionFixture) Ledger() enrollment.Section {
	return enrollment.Section{
		ID:       f.ID,
		Capacity: f.Capacity,
	}
}

// ---------------------------- Meeting fixtures ---------------------------

// MeetingFixture represents a deterministic (possibly recurring) meeting.
type MeetingFixture struct {
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

// MeetingOption configures the generated meeting fixture.
type MeetingOption func(*MeetingFixture)

// NewMeetingFixture returns a deterministic one-off meeting fixture. The
// meeting occupies a one-hour slot offset from the reference time so that
// consecutive fixtures do not overlap.
func NewMeetingFixture(opts ...MeetingOption) MeetingFixture {
	idx := atomic.AddUint64(&meetingCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * 2 * time.Hour)
	fixture := MeetingFixture{
		ID:        fmt.Sprintf("meeting-%03d", idx),
		SectionID: fmt.Sprintf("section-%03d", idx),
		Title:     fmt.Sprintf("Meeting %03d", idx),
		Start:     start,
		End:       start.Add(time.Hour),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMeetingID overrides the generated meeting ID.
func WithMeetingID(id string) MeetingOption {
	return func(f *MeetingFixture) {
		f.ID = id
	}
}

// WithMeetingSection assigns the meeting to a section.
func WithMeetingSection(sectionID string) MeetingOption {
	return func(f *MeetingFixture) {
		f.SectionID = sectionID
	}
}

// WithMeetingTitle overrides the generated title.
func WithMeetingTitle(title string) MeetingOption {
	return func(f *MeetingFixture) {
		f.Title = title
	}
}

// WithMeetingWindow sets the meeting's start and end instants.
func WithMeetingWindow(start, end time.Time) MeetingOption {
	return func(f *MeetingFixture) {
		f.Start = start
		f.End = end
	}
}

// WithMeetingRecurrence marks the meeting recurring with the encoded rule.
func WithMeetingRecurrence(rule string) MeetingOption {
	return func(f *MeetingFixture) {
		f.IsRecurring = true
		f.Recurrence = rule
	}
}

// WithMeetingExceptions sets the skipped occurrence dates.
func WithMeetingExceptions(dates ...time.Time) MeetingOption {
	return func(f *MeetingFixture) {
		f.ExceptionDates = dates
	}
}

// WithMeetingRoom assigns the meeting to a room.
func WithMeetingRoom(roomID string) MeetingOption {
	return func(f *MeetingFixture) {
		f.RoomID = &roomID
	}
}

// WithMeetingTeachers assigns the teaching staff.
func WithMeetingTeachers(teacherIDs ...string) MeetingOption {
	return func(f *MeetingFixture) {
		f.TeacherIDs = teacherIDs
	}
}

// Persistence materialises the fixture as a persistence record.
func (f MeetingFixture) Persistence() persistence.Meeting {
	var rule *string
	if f.IsRecurring {
		value := f.Recurrence
		rule = &value
	}
	return persistence.Meeting{
		ID:             f.ID,
		SectionID:      f.SectionID,
		Title:          f.Title,
		Start:          f.Start,
		End:            f.End,
		IsRecurring:    f.IsRecurring,
		Recurrence:     rule,
		ExceptionDates: f.ExceptionDates,
		RoomID:         f.RoomID,
		TeacherIDs:     f.TeacherIDs,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Scheduler materialises the fixture as a scheduler meeting.
func (f MeetingFixture) Scheduler() scheduler.Meeting {
	return scheduler.Meeting{
		ID:             f.ID,
		SectionID:      f.SectionID,
		Title:          f.Title,
		Start:          f.Start,
		End:            f.End,
		IsRecurring:    f.IsRecurring,
		Recurrence:     f.Recurrence,
		ExceptionDates: f.ExceptionDates,
		RoomID:         f.RoomID,
		TeacherIDs:     f.TeacherIDs,
	}
}

// -------------------------- Enrollment fixtures --------------------------

// EnrollmentFixture represents a deterministic enrollment record.
type EnrollmentFixture struct {
	ID          string
	SectionID   string
	StudentID   string
	Status      string
	RequestedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EnrollmentOption configures the generated enrollment fixture.
type EnrollmentOption func(*EnrollmentFixture)

// NewEnrollmentFixture returns a deterministic enrollment fixture with
// optional overrides. Generated records default to the enrolled status with
// request times spaced one minute apart.
func NewEnrollmentFixture(opts ...EnrollmentOption) EnrollmentFixture {
	idx := atomic.AddUint64(&enrollmentCounter, 1)
	requested := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := EnrollmentFixture{
		ID:          fmt.Sprintf("enrollment-%03d", idx),
		SectionID:   fmt.Sprintf("section-%03d", idx),
		StudentID:   fmt.Sprintf("student-%03d", idx),
		Status:      "enrolled",
		RequestedAt: requested,
		CreatedAt:   requested,
		UpdatedAt:   requested,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEnrollmentID overrides the generated enrollment ID.
func WithEnrollmentID(id string) EnrollmentOption {
	return func(f *EnrollmentFixture) {
		f.ID = id
	}
}

// WithEnrollmentSection assigns the enrollment to a section.
func WithEnrollmentSection(sectionID string) EnrollmentOption {
	return func(f *EnrollmentFixture) {
		f.SectionID = sectionID
	}
}

// WithEnrollmentStudent assigns the enrollment to a student.
func WithEnrollmentStudent(studentID string) EnrollmentOption {
	return func(f *EnrollmentFixture) {
		f.StudentID = studentID
	}
}

// WithEnrollmentStatus overrides the generated status.
func WithEnrollmentStatus(status string) EnrollmentOption {
	return func(f *EnrollmentFixture) {
		f.Status = status
	}
}

// WithEnrollmentRequestedAt sets the request timestamp.
func WithEnrollmentRequestedAt(t time.Time) EnrollmentOption {
	return func(f *EnrollmentFixture) {
		f.RequestedAt = t
	}
}

// Persistence materialises the fixture as a persistence record.
func (f EnrollmentFixture) Persistence() persistence.Enrollment {
	return persistence.Enrollment{
		ID:          f.ID,
		SectionID:   f.SectionID,
		StudentID:   f.StudentID,
		Status:      f.Status,
		RequestedAt: f.RequestedAt,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Ledger materialises the fixture as an enrollment ledger record.
func (f EnrollmentFixture) Ledger() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:          f.ID,
		SectionID:   f.SectionID,
		StudentID:   f.StudentID,
		Status:      enrollment.Status(f.Status),
		RequestedAt: f.RequestedAt,
	}
}
