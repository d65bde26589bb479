package scheduler

import "time"

// Meeting represents a (possibly recurring) section meeting definition. The
// scheduling core only ever reads meetings; creation and reassignment belong
// to the surrounding application layers.
type Meeting struct {
	ID             string
	SectionID      string
	Title          string
	Start          time.Time
	End            time.Time
	IsRecurring    bool
	Recurrence     string // encoded recurrence descriptor, empty unless recurring
	ExceptionDates []time.Time
	RoomID         *string
	TeacherIDs     []string
}

// Occurrence is one concrete dated instance derived from a meeting. It is
// never persisted; callers recompute occurrences per query window. Two
// occurrences are equal iff their meeting id and start match.
type Occurrence struct {
	MeetingID string
	Start     time.Time
	End       time.Time
}
