package scheduler

import (
	"errors"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func wednesdayMeeting(id string, startHour, startMin, endHour, endMin int, roomID *string, teachers ...string) Meeting {
	return Meeting{
		ID:          id,
		Start:       time.Date(2024, time.October, 2, startHour, startMin, 0, 0, time.UTC),
		End:         time.Date(2024, time.October, 2, endHour, endMin, 0, 0, time.UTC),
		IsRecurring: true,
		Recurrence:  "FREQ=WEEKLY;INTERVAL=1;BYDAY=WE;COUNT=10",
		RoomID:      roomID,
		TeacherIDs:  teachers,
	}
}

func TestDetector_FindConflicts_SharedRoomOnly(t *testing.T) {
	t.Parallel()

	detector := NewDetector(nil, 0)
	// Same room, different teachers, overlapping Wednesday slots.
	candidate := wednesdayMeeting("meeting-a", 19, 0, 20, 30, strPtr("room-1"), "teacher-1")
	other := wednesdayMeeting("meeting-b", 19, 30, 20, 0, strPtr("room-1"), "teacher-2")

	windowStart := candidate.Start.AddDate(0, 0, -1)
	windowEnd := candidate.Start.AddDate(0, 0, 6)
	report, err := detector.FindConflicts(candidate, []Meeting{other}, ConflictOptions{
		WindowStart: &windowStart,
		WindowEnd:   &windowEnd,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Conflicts) != 1 {
		t.Fatalf("expected exactly 1 conflict, got %d: %+v", len(report.Conflicts), report.Conflicts)
	}
	conflict := report.Conflicts[0]
	if conflict.Type != ConflictTypeRoom {
		t.Fatalf("expected room conflict, got %v", conflict.Type)
	}
	if conflict.TeacherID != "" {
		t.Fatalf("expected no teacher attribution, got %q", conflict.TeacherID)
	}
	if conflict.WithMeetingID != "meeting-b" {
		t.Fatalf("expected conflict with meeting-b, got %q", conflict.WithMeetingID)
	}
	if conflict.RoomID == nil || *conflict.RoomID != "room-1" {
		t.Fatalf("expected room-1 attribution, got %v", conflict.RoomID)
	}
}

func TestDetector_FindConflicts_TouchingIntervalsNeverConflict(t *testing.T) {
	t.Parallel()

	detector := NewDetector(nil, 0)
	candidate := wednesdayMeeting("meeting-a", 14, 0, 15, 0, strPtr("room-1"), "teacher-1")
	other := wednesdayMeeting("meeting-b", 15, 0, 16, 0, strPtr("room-1"), "teacher-1")

	windowStart := candidate.Start.AddDate(0, 0, -1)
	windowEnd := candidate.Start.AddDate(0, 3, 0)
	report, err := detector.FindConflicts(candidate, []Meeting{other}, ConflictOptions{
		WindowStart: &windowStart,
		WindowEnd:   &windowEnd,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Conflicts) != 0 {
		t.Fatalf("expected no conflicts for back-to-back meetings, got %+v", report.Conflicts)
	}
}

func TestDetector_FindConflicts_ReportsEachSharedResource(t *testing.T) {
	t.Parallel()

	detector := NewDetector(nil, 0)
	candidate := wednesdayMeeting("meeting-a", 9, 0, 10, 0, strPtr("room-1"), "teacher-1", "teacher-2")
	other := wednesdayMeeting("meeting-b", 9, 30, 10, 30, strPtr("room-1"), "teacher-2", "teacher-1", "teacher-3")

	windowStart := candidate.Start
	windowEnd := candidate.Start.AddDate(0, 0, 1)
	report, err := detector.FindConflicts(candidate, []Meeting{other}, ConflictOptions{
		WindowStart: &windowStart,
		WindowEnd:   &windowEnd,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Room plus two shared teachers: three entries for the one overlap.
	if len(report.Conflicts) != 3 {
		t.Fatalf("expected 3 conflicts, got %d: %+v", len(report.Conflicts), report.Conflicts)
	}
	if report.Conflicts[0].Type != ConflictTypeRoom {
		t.Fatalf("expected room conflict first, got %v", report.Conflicts[0].Type)
	}
	if report.Conflicts[1].TeacherID != "teacher-1" || report.Conflicts[2].TeacherID != "teacher-2" {
		t.Fatalf("expected teacher conflicts ordered by id, got %+v", report.Conflicts[1:])
	}
}

func TestDetector_FindConflicts_SkipsUnrelatedMeetings(t *testing.T) {
	t.Parallel()

	detector := NewDetector(nil, 0)
	candidate := wednesdayMeeting("meeting-a", 9, 0, 10, 0, strPtr("room-1"), "teacher-1")
	unrelated := wednesdayMeeting("meeting-b", 9, 0, 10, 0, strPtr("room-2"), "teacher-2")
	// Fully unassigned meetings never conflict with anything.
	unassigned := wednesdayMeeting("meeting-c", 9, 0, 10, 0, nil)

	windowStart := candidate.Start
	windowEnd := candidate.Start.AddDate(0, 1, 0)
	report, err := detector.FindConflicts(candidate, []Meeting{unrelated, unassigned}, ConflictOptions{
		WindowStart: &windowStart,
		WindowEnd:   &windowEnd,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %+v", report.Conflicts)
	}
}

func TestDetector_FindConflicts_IsSymmetric(t *testing.T) {
	t.Parallel()

	detector := NewDetector(nil, 0)
	a := wednesdayMeeting("meeting-a", 19, 0, 20, 30, strPtr("room-1"), "teacher-1")
	b := wednesdayMeeting("meeting-b", 19, 30, 20, 0, strPtr("room-1"), "teacher-2")

	windowStart := a.Start.AddDate(0, 0, -1)
	windowEnd := a.Start.AddDate(0, 1, 0)
	opts := ConflictOptions{WindowStart: &windowStart, WindowEnd: &windowEnd}

	forward, err := detector.FindConflicts(a, []Meeting{b}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reverse, err := detector.FindConflicts(b, []Meeting{a}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(forward.Conflicts) != len(reverse.Conflicts) {
		t.Fatalf("asymmetric results: %d vs %d", len(forward.Conflicts), len(reverse.Conflicts))
	}
	for i := range forward.Conflicts {
		if forward.Conflicts[i].Type != reverse.Conflicts[i].Type {
			t.Fatalf("conflict %d: type mismatch %v vs %v", i, forward.Conflicts[i].Type, reverse.Conflicts[i].Type)
		}
	}
}

func TestDetector_FindConflicts_DefaultsWindowWhenUnset(t *testing.T) {
	t.Parallel()

	detector := NewDetector(nil, 0)
	candidate := wednesdayMeeting("meeting-a", 19, 0, 20, 0, strPtr("room-1"), "teacher-1")
	other := wednesdayMeeting("meeting-b", 19, 30, 20, 30, strPtr("room-1"), "teacher-2")

	report, err := detector.FindConflicts(candidate, []Meeting{other}, ConflictOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Both rules carry COUNT=10, so ten weekly overlaps fall inside the
	// defaulted window.
	if len(report.Conflicts) != 10 {
		t.Fatalf("expected 10 conflicts, got %d", len(report.Conflicts))
	}
}

func TestDetector_FindConflicts_RejectsInvertedWindow(t *testing.T) {
	t.Parallel()

	detector := NewDetector(nil, 0)
	candidate := wednesdayMeeting("meeting-a", 19, 0, 20, 0, strPtr("room-1"))

	windowStart := candidate.Start
	windowEnd := candidate.Start.Add(-time.Hour)
	_, err := detector.FindConflicts(candidate, nil, ConflictOptions{
		WindowStart: &windowStart,
		WindowEnd:   &windowEnd,
	})
	if !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestDetector_FindConflicts_ReportsDegradedRecurrences(t *testing.T) {
	t.Parallel()

	detector := NewDetector(nil, 0)
	candidate := wednesdayMeeting("meeting-a", 19, 0, 20, 0, strPtr("room-1"), "teacher-1")
	corrupt := Meeting{
		ID:          "meeting-b",
		Start:       candidate.Start.Add(30 * time.Minute),
		End:         candidate.End.Add(30 * time.Minute),
		IsRecurring: true,
		Recurrence:  "not-a-rule",
		RoomID:      strPtr("room-1"),
	}

	windowStart := candidate.Start.AddDate(0, 0, -1)
	windowEnd := candidate.Start.AddDate(0, 1, 0)
	report, err := detector.FindConflicts(candidate, []Meeting{corrupt}, ConflictOptions{
		WindowStart: &windowStart,
		WindowEnd:   &windowEnd,
	})
	if err != nil {
		t.Fatalf("expected degradation to be isolated, got error %v", err)
	}

	if len(report.Degraded) != 1 || report.Degraded[0].MeetingID != "meeting-b" {
		t.Fatalf("expected degradation warning for meeting-b, got %+v", report.Degraded)
	}
	// The corrupt meeting still conflicts through its base occurrence.
	if len(report.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict from fallback occurrence, got %d", len(report.Conflicts))
	}
}

func TestDetector_FindConflicts_DefaultWindowCoversLateCandidate(t *testing.T) {
	t.Parallel()

	detector := NewDetector(nil, 0)
	// A long-running Monday series that started years before the candidate.
	veteran := Meeting{
		ID:          "meeting-old",
		Start:       time.Date(2020, time.January, 6, 9, 0, 0, 0, time.UTC),
		End:         time.Date(2020, time.January, 6, 10, 0, 0, 0, time.UTC),
		IsRecurring: true,
		Recurrence:  "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO",
		RoomID:      strPtr("room-1"),
	}
	candidate := Meeting{
		ID:     "meeting-new",
		Start:  time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC),
		End:    time.Date(2024, time.March, 4, 10, 30, 0, 0, time.UTC),
		RoomID: strPtr("room-1"),
	}

	report, err := detector.FindConflicts(candidate, []Meeting{veteran}, ConflictOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Conflicts) != 1 {
		t.Fatalf("expected the defaulted window to reach the candidate, got %+v", report.Conflicts)
	}
	conflict := report.Conflicts[0]
	if conflict.Type != ConflictTypeRoom || conflict.WithMeetingID != "meeting-old" {
		t.Fatalf("expected a room conflict with meeting-old, got %+v", conflict)
	}
	if !conflict.Start.Equal(candidate.Start) {
		t.Fatalf("expected conflict at the candidate occurrence, got %v", conflict.Start)
	}
}

func TestDetector_FindConflicts_HorizonBoundsDefaultWindow(t *testing.T) {
	t.Parallel()

	candidate := Meeting{
		ID:          "meeting-a",
		Start:       time.Date(2024, time.October, 2, 19, 0, 0, 0, time.UTC),
		End:         time.Date(2024, time.October, 2, 20, 0, 0, 0, time.UTC),
		IsRecurring: true,
		Recurrence:  "FREQ=WEEKLY;INTERVAL=1;BYDAY=WE",
		RoomID:      strPtr("room-1"),
	}
	// A one-off booking sixty days out, overlapping that week's occurrence.
	distant := Meeting{
		ID:     "meeting-b",
		Start:  candidate.Start.AddDate(0, 0, 63).Add(30 * time.Minute),
		End:    candidate.End.AddDate(0, 0, 63).Add(30 * time.Minute),
		RoomID: strPtr("room-1"),
	}

	wide := NewDetector(nil, 0)
	report, err := wide.FindConflicts(candidate, []Meeting{distant}, ConflictOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Conflicts) != 1 {
		t.Fatalf("expected the default horizon to reach the booking, got %+v", report.Conflicts)
	}

	narrow := NewDetector(nil, 30*24*time.Hour)
	report, err = narrow.FindConflicts(candidate, []Meeting{distant}, ConflictOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Conflicts) != 0 {
		t.Fatalf("expected the shortened horizon to exclude the booking, got %+v", report.Conflicts)
	}
}
