package scheduler

import (
	"sort"
	"time"

	"github.com/example/campus-scheduler/internal/recurrence"
)

// defaultConflictHorizon caps the comparison window when the caller supplies
// no bounds, keeping expansion of open ended recurrences finite.
const defaultConflictHorizon = 365 * 24 * time.Hour

// ConflictType describes the resource responsible for a detected conflict.
type ConflictType string

const (
	// ConflictTypeTeacher indicates a teacher is double-booked.
	ConflictTypeTeacher ConflictType = "teacher"
	// ConflictTypeRoom indicates a room is double-booked.
	ConflictTypeRoom ConflictType = "room"
)

// Conflict details one overlapping occurrence pair attributed to a single
// shared resource. Overlaps sharing several resources produce one entry per
// resource; callers decide how to deduplicate for display.
type Conflict struct {
	WithMeetingID string
	Start         time.Time
	Type          ConflictType
	TeacherID     string
	RoomID        *string
}

// ConflictOptions bounds the comparison window. Unset bounds default to the
// union of both sides' effective active ranges, capped at the detector's
// horizon past the candidate's start.
type ConflictOptions struct {
	WindowStart *time.Time
	WindowEnd   *time.Time
}

// ConflictReport carries detected conflicts plus any per-meeting recurrence
// degradations encountered while expanding.
type ConflictReport struct {
	Conflicts []Conflict
	Degraded  []DegradedRecurrence
}

// Detector finds scheduling conflicts between meetings sharing a room or a
// teacher. It holds no mutable state and is safe for concurrent use.
type Detector struct {
	expander *Expander
	horizon  time.Duration
}

// NewDetector constructs a Detector. If expander is nil a UTC expander is
// used; a non-positive horizon falls back to the one year default.
func NewDetector(expander *Expander, horizon time.Duration) *Detector {
	if expander == nil {
		expander = NewExpander(nil)
	}
	if horizon <= 0 {
		horizon = defaultConflictHorizon
	}
	return &Detector{expander: expander, horizon: horizon}
}

// FindConflicts expands the candidate and every existing meeting that shares
// a room or teacher with it, reporting each pairwise occurrence overlap. The
// candidate may be hypothetical; it is never persisted or mutated here.
// Intervals are compared half-open, so back-to-back occurrences never
// conflict.
func (d *Detector) FindConflicts(candidate Meeting, existing []Meeting, opts ConflictOptions) (ConflictReport, error) {
	windowStart, windowEnd := d.resolveWindow(candidate, existing, opts)
	if windowStart.After(windowEnd) {
		return ConflictReport{}, ErrInvalidWindow
	}

	report := ConflictReport{}

	candidateResult, err := d.expander.Expand(candidate, windowStart, windowEnd)
	if err != nil {
		return ConflictReport{}, err
	}
	if candidateResult.Degraded != nil {
		report.Degraded = append(report.Degraded, *candidateResult.Degraded)
	}
	if len(candidateResult.Occurrences) == 0 {
		return report, nil
	}

	for _, other := range existing {
		if other.ID != "" && other.ID == candidate.ID {
			continue
		}

		sharedRoom := sharesRoom(candidate, other)
		sharedTeachers := sharedTeacherIDs(candidate, other)
		if !sharedRoom && len(sharedTeachers) == 0 {
			continue
		}

		otherResult, err := d.expander.Expand(other, windowStart, windowEnd)
		if err != nil {
			return ConflictReport{}, err
		}
		if otherResult.Degraded != nil {
			report.Degraded = append(report.Degraded, *otherResult.Degraded)
		}

		for _, occ := range candidateResult.Occurrences {
			for _, otherOcc := range otherResult.Occurrences {
				if !overlaps(occ, otherOcc) {
					continue
				}
				if sharedRoom {
					roomID := *candidate.RoomID
					report.Conflicts = append(report.Conflicts, Conflict{
						WithMeetingID: other.ID,
						Start:         occ.Start,
						Type:          ConflictTypeRoom,
						RoomID:        &roomID,
					})
				}
				for _, teacherID := range sharedTeachers {
					report.Conflicts = append(report.Conflicts, Conflict{
						WithMeetingID: other.ID,
						Start:         occ.Start,
						Type:          ConflictTypeTeacher,
						TeacherID:     teacherID,
					})
				}
			}
		}
	}

	sortConflicts(report.Conflicts)
	return report, nil
}

// resolveWindow fills in missing window bounds from the meetings' effective
// active ranges, capped at the default horizon.
func (d *Detector) resolveWindow(candidate Meeting, existing []Meeting, opts ConflictOptions) (time.Time, time.Time) {
	if opts.WindowStart != nil && opts.WindowEnd != nil {
		return *opts.WindowStart, *opts.WindowEnd
	}

	start := candidate.Start
	end := effectiveEnd(candidate, d.horizon)
	for _, other := range existing {
		if other.Start.Before(start) {
			start = other.Start
		}
		if otherEnd := effectiveEnd(other, d.horizon); otherEnd.After(end) {
			end = otherEnd
		}
	}
	// The cap anchors at the candidate so an old open ended series can never
	// push the window's end before the candidate's own active range.
	if horizon := candidate.Start.Add(d.horizon); end.After(horizon) {
		end = horizon
	}

	if opts.WindowStart != nil {
		start = *opts.WindowStart
	}
	if opts.WindowEnd != nil {
		end = *opts.WindowEnd
	}
	return start, end
}

// effectiveEnd estimates how far into the future a meeting stays active.
// Non-recurring meetings end with their base interval; recurring meetings end
// at their Until bound when one is stored, otherwise the horizon applies.
func effectiveEnd(meeting Meeting, horizon time.Duration) time.Time {
	if !meeting.IsRecurring {
		return meeting.End
	}
	if desc, err := recurrence.ParseDescriptor(meeting.Recurrence); err == nil && desc.Until != nil {
		return desc.Until.AddDate(0, 0, 1)
	}
	return meeting.Start.Add(horizon)
}

func overlaps(a, b Occurrence) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

func sharesRoom(a, b Meeting) bool {
	return a.RoomID != nil && b.RoomID != nil && *a.RoomID == *b.RoomID
}

func sharedTeacherIDs(a, b Meeting) []string {
	if len(a.TeacherIDs) == 0 || len(b.TeacherIDs) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a.TeacherIDs))
	for _, id := range a.TeacherIDs {
		set[id] = struct{}{}
	}
	shared := make([]string, 0)
	for _, id := range b.TeacherIDs {
		if _, ok := set[id]; ok {
			shared = append(shared, id)
		}
	}
	sort.Strings(shared)
	return shared
}

// sortConflicts orders conflicts deterministically: occurrence start, then
// existing meeting id, with room attribution ahead of teacher attribution.
func sortConflicts(conflicts []Conflict) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.WithMeetingID != b.WithMeetingID {
			return a.WithMeetingID < b.WithMeetingID
		}
		if a.Type != b.Type {
			return a.Type == ConflictTypeRoom
		}
		return a.TeacherID < b.TeacherID
	})
}
