package persistence

import "time"

// Person represents a member of the school community.
type Person struct {
	ID          string
	DisplayName string
	Role        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Room represents a physical room in the rooms catalog.
type Room struct {
	ID        string
	Name      string
	Location  string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Section represents a capacity-bearing class section.
type Section struct {
	ID        string
	Name      string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Meeting represents a stored (possibly recurring) section meeting. The
// recurrence rule is persisted in its opaque encoded string form; exception
// dates are civil dates stored alongside the meeting.
type Meeting struct {
	ID             string
	SectionID      string
	Title          string
	Start          time.Time
	End            time.Time
	IsRecurring    bool
	Recurrence     *string
	ExceptionDates []time.Time
	RoomID         *string
	TeacherIDs     []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Enrollment represents one student's enrollment attempt in a section.
type Enrollment struct {
	ID          string
	SectionID   string
	StudentID   string
	Status      string
	RequestedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
