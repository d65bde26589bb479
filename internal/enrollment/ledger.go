package enrollment

import (
	"errors"
	"sync"
	"time"
)

// Status tracks the lifecycle of one enrollment attempt. Cancellation is
// terminal for the attempt; a later request creates a fresh record.
type Status string

const (
	// StatusEnrolled counts against section capacity.
	StatusEnrolled Status = "enrolled"
	// StatusWaitlisted is active but beyond capacity, FIFO ordered.
	StatusWaitlisted Status = "waitlisted"
	// StatusCancelled is terminal and retained for audit history.
	StatusCancelled Status = "cancelled"
)

// IsActive reports whether the status counts as an active enrollment.
func (s Status) IsActive() bool {
	return s == StatusEnrolled || s == StatusWaitlisted
}

var (
	// ErrDuplicateActiveEnrollment is returned when a student already holds
	// an enrolled or waitlisted record in the section.
	ErrDuplicateActiveEnrollment = errors.New("enrollment: student already has an active enrollment")
	// ErrNotFound is returned when no active enrollment matches the id.
	ErrNotFound = errors.New("enrollment: active enrollment not found")
)

// Section describes the capacity-bearing container enrollments attach to.
// Capacity is fixed from the ledger's point of view; changes arrive only via
// SetCapacity from an external caller.
type Section struct {
	ID       string
	Capacity int
}

// Enrollment is one student's enrollment attempt in a section.
type Enrollment struct {
	ID          string
	SectionID   string
	StudentID   string
	Status      Status
	RequestedAt time.Time
}

// Stats is a read-only summary of a ledger's enrollment state.
type Stats struct {
	EnrolledCount   int
	WaitlistedCount int
	CancelledCount  int
	AvailableSlots  int
	UtilizationRate float64
}

// Ledger owns the enrollment records of a single section and is that
// section's serialization point: every mutating operation runs under the
// ledger's lock, so concurrent enrollment attempts against one section are
// applied one at a time. Ledgers for different sections are fully
// independent. Stats and Records may run concurrently with a mutation and can
// observe the state between two related transitions.
type Ledger struct {
	mu          sync.RWMutex
	section     Section
	records     []Enrollment
	idGenerator func() string
}

// NewLedger constructs a ledger for a section from its existing records. The
// slice order is taken as insertion order, which breaks RequestedAt ties
// deterministically.
func NewLedger(section Section, existing []Enrollment, idGenerator func() string) *Ledger {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	records := make([]Enrollment, len(existing))
	copy(records, existing)
	return &Ledger{
		section:     section,
		records:     records,
		idGenerator: idGenerator,
	}
}

// RequestEnrollment records a new enrollment attempt. Students under capacity
// enroll immediately; everyone else joins the waitlist behind earlier
// requests. Notification dispatch is the caller's responsibility, driven by
// the returned status.
func (l *Ledger) RequestEnrollment(studentID string, requestedAt time.Time) (Enrollment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, record := range l.records {
		if record.StudentID == studentID && record.Status.IsActive() {
			return Enrollment{}, ErrDuplicateActiveEnrollment
		}
	}

	status := StatusWaitlisted
	if l.enrolledCountLocked() < l.section.Capacity {
		status = StatusEnrolled
	}

	record := Enrollment{
		ID:          l.idGenerator(),
		SectionID:   l.section.ID,
		StudentID:   studentID,
		Status:      status,
		RequestedAt: requestedAt,
	}
	l.records = append(l.records, record)
	return record, nil
}

// Withdraw cancels the active enrollment with the given id. Releasing an
// enrolled slot immediately promotes from the waitlist so capacity is never
// left under-filled while students wait. The cancelled record and any
// promotions are returned for persistence and notification by the caller.
// Whether the actor is allowed to withdraw this record is checked by the
// caller; the transition itself is unconditional.
func (l *Ledger) Withdraw(enrollmentID string) (Enrollment, []Enrollment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i, record := range l.records {
		if record.ID == enrollmentID && record.Status.IsActive() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Enrollment{}, nil, ErrNotFound
	}

	wasEnrolled := l.records[idx].Status == StatusEnrolled
	l.records[idx].Status = StatusCancelled
	cancelled := l.records[idx]

	var promoted []Enrollment
	if wasEnrolled {
		promoted = l.promoteLocked()
	}
	return cancelled, promoted, nil
}

// PromoteFromWaitlist fills open capacity from the waitlist in FIFO order.
// It is idempotent and safe to call speculatively, e.g. after an external
// capacity increase. The promoted records are returned so the caller can
// trigger notifications.
func (l *Ledger) PromoteFromWaitlist() []Enrollment {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.promoteLocked()
}

func (l *Ledger) promoteLocked() []Enrollment {
	var promoted []Enrollment
	for l.enrolledCountLocked() < l.section.Capacity {
		idx := l.earliestWaitlistedLocked()
		if idx < 0 {
			break
		}
		l.records[idx].Status = StatusEnrolled
		promoted = append(promoted, l.records[idx])
	}
	return promoted
}

// earliestWaitlistedLocked picks the waitlisted record with the earliest
// RequestedAt; the strict comparison keeps insertion order for ties.
func (l *Ledger) earliestWaitlistedLocked() int {
	idx := -1
	for i, record := range l.records {
		if record.Status != StatusWaitlisted {
			continue
		}
		if idx < 0 || record.RequestedAt.Before(l.records[idx].RequestedAt) {
			idx = i
		}
	}
	return idx
}

func (l *Ledger) enrolledCountLocked() int {
	count := 0
	for _, record := range l.records {
		if record.Status == StatusEnrolled {
			count++
		}
	}
	return count
}

// SetCapacity applies an externally decided capacity change. The ledger
// never demotes anyone when capacity shrinks below the enrolled count; the
// overflow is visible through Stats for a human to resolve. Callers wanting
// promotions after an increase invoke PromoteFromWaitlist explicitly.
func (l *Ledger) SetCapacity(capacity int) {
	l.mu.Lock()
	l.section.Capacity = capacity
	l.mu.Unlock()
}

// Stats summarizes the ledger state. A zero capacity section is always 0%
// utilized and never has available slots.
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := Stats{}
	for _, record := range l.records {
		switch record.Status {
		case StatusEnrolled:
			stats.EnrolledCount++
		case StatusWaitlisted:
			stats.WaitlistedCount++
		case StatusCancelled:
			stats.CancelledCount++
		}
	}

	if available := l.section.Capacity - stats.EnrolledCount; available > 0 {
		stats.AvailableSlots = available
	}
	if l.section.Capacity > 0 {
		stats.UtilizationRate = float64(stats.EnrolledCount) / float64(l.section.Capacity)
	}
	return stats
}

// Records returns a snapshot of every enrollment record in insertion order.
func (l *Ledger) Records() []Enrollment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Enrollment, len(l.records))
	copy(out, l.records)
	return out
}

// Section returns the section the ledger was built for, with its current
// capacity.
func (l *Ledger) Section() Section {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.section
}
