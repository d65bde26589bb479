package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/example/campus-scheduler/internal/persistence"
	"github.com/example/campus-scheduler/internal/scheduler"
)

// AgendaService assembles role-filtered, recurrence-expanded occurrence
// listings. Teachers see meetings they teach, students the sections they are
// actively enrolled in, guardians the union of their linked students'
// sections, and admins everything.
type AgendaService struct {
	meetings    MeetingStore
	enrollments EnrollmentStore
	roster      RosterDirectory
	expander    *scheduler.Expander
	cache       *OccurrenceCache
	now         func() time.Time
}

// NewAgendaService wires dependencies for agenda queries. A nil expander
// defaults to UTC expansion; a nil cache disables caching.
func NewAgendaService(meetings MeetingStore, enrollments EnrollmentStore, roster RosterDirectory, expander *scheduler.Expander, cache *OccurrenceCache, now func() time.Time) *AgendaService {
	if expander == nil {
		expander = scheduler.NewExpander(nil)
	}
	if now == nil {
		now = time.Now
	}
	return &AgendaService{
		meetings:    meetings,
		enrollments: enrollments,
		roster:      roster,
		expander:    expander,
		cache:       cache,
		now:         now,
	}
}

// VisibleOccurrences expands the meetings visible to the principal across the
// requested window and returns them in chronological order.
func (s *AgendaService) VisibleOccurrences(ctx context.Context, params AgendaParams) (Agenda, error) {
	if s == nil || s.meetings == nil {
		return Agenda{}, fmt.Errorf("meeting store not configured")
	}
	if !params.Principal.Role.Valid() {
		return Agenda{}, ErrUnauthorized
	}

	windowStart, windowEnd, err := s.resolveWindow(params)
	if err != nil {
		return Agenda{}, err
	}

	key := buildAgendaCacheKey(params, windowStart, windowEnd)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	meetings, err := s.visibleMeetings(ctx, params)
	if err != nil {
		return Agenda{}, err
	}

	agenda := Agenda{}
	for _, meeting := range meetings {
		result, err := s.expander.Expand(toSchedulerMeeting(meeting), windowStart, windowEnd)
		if err != nil {
			return Agenda{}, err
		}
		if result.Degraded != nil {
			agenda.Degraded = append(agenda.Degraded, DegradedWarning{
				MeetingID: result.Degraded.MeetingID,
				Reason:    result.Degraded.Reason,
			})
		}
		for _, occurrence := range result.Occurrences {
			agenda.Occurrences = append(agenda.Occurrences, Occurrence{
				MeetingID: occurrence.MeetingID,
				SectionID: meeting.SectionID,
				Title:     meeting.Title,
				Start:     occurrence.Start,
				End:       occurrence.End,
			})
		}
	}

	sort.SliceStable(agenda.Occurrences, func(i, j int) bool {
		if agenda.Occurrences[i].Start.Equal(agenda.Occurrences[j].Start) {
			return agenda.Occurrences[i].MeetingID < agenda.Occurrences[j].MeetingID
		}
		return agenda.Occurrences[i].Start.Before(agenda.Occurrences[j].Start)
	})

	s.cache.Store(key, agenda)
	return agenda, nil
}

func (s *AgendaService) resolveWindow(params AgendaParams) (time.Time, time.Time, error) {
	if params.WindowStart != nil && params.WindowEnd != nil {
		if params.WindowEnd.Before(*params.WindowStart) {
			return time.Time{}, time.Time{}, scheduler.ErrInvalidWindow
		}
		return *params.WindowStart, *params.WindowEnd, nil
	}

	period := params.Period
	if period == AgendaPeriodNone {
		period = AgendaPeriodWeek
	}
	reference := params.PeriodReference
	if reference.IsZero() {
		reference = s.now()
	}

	loc := s.expander.Location()
	start := startOfDay(reference, loc)
	switch period {
	case AgendaPeriodDay:
		return start, start.AddDate(0, 0, 1), nil
	case AgendaPeriodWeek:
		weekday := int(start.Weekday())
		start = start.AddDate(0, 0, -((weekday + 6) % 7))
		return start, start.AddDate(0, 0, 7), nil
	case AgendaPeriodMonth:
		start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0), nil
	default:
		vErr := &ValidationError{}
		vErr.add("period", "unknown period preset")
		return time.Time{}, time.Time{}, vErr
	}
}

func (s *AgendaService) visibleMeetings(ctx context.Context, params AgendaParams) ([]Meeting, error) {
	principal := params.Principal

	var filter persistence.MeetingFilter
	switch principal.Role {
	case RoleAdmin:
		// No narrowing; admins see the full calendar.
	case RoleTeacher:
		filter.TeacherID = principal.UserID
	case RoleStudent:
		if params.StudentID != "" && params.StudentID != principal.UserID {
			return nil, ErrUnauthorized
		}
		sectionIDs, err := s.enrolledSectionIDs(ctx, principal.UserID)
		if err != nil {
			return nil, err
		}
		if len(sectionIDs) == 0 {
			return nil, nil
		}
		filter.SectionIDs = sectionIDs
	case RoleGuardian:
		studentIDs, err := s.guardianStudents(ctx, principal.UserID, params.StudentID)
		if err != nil {
			return nil, err
		}
		sectionSet := make(map[string]struct{})
		for _, studentID := range studentIDs {
			sectionIDs, err := s.enrolledSectionIDs(ctx, studentID)
			if err != nil {
				return nil, err
			}
			for _, id := range sectionIDs {
				sectionSet[id] = struct{}{}
			}
		}
		if len(sectionSet) == 0 {
			return nil, nil
		}
		for id := range sectionSet {
			filter.SectionIDs = append(filter.SectionIDs, id)
		}
		sort.Strings(filter.SectionIDs)
	default:
		return nil, ErrUnauthorized
	}

	stored, err := s.meetings.ListMeetings(ctx, filter)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}

	meetings := make([]Meeting, 0, len(stored))
	for _, record := range stored {
		meetings = append(meetings, fromPersistenceMeeting(record))
	}
	return meetings, nil
}

func (s *AgendaService) enrolledSectionIDs(ctx context.Context, studentID string) ([]string, error) {
	if s.enrollments == nil {
		return nil, nil
	}
	records, err := s.enrollments.ListEnrollmentsForStudent(ctx, studentID)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0, len(records))
	for _, record := range records {
		// Waitlisted students have no seat yet and see nothing.
		if record.Status != "enrolled" {
			continue
		}
		if _, ok := seen[record.SectionID]; ok {
			continue
		}
		seen[record.SectionID] = struct{}{}
		ids = append(ids, record.SectionID)
	}
	return ids, nil
}

func (s *AgendaService) guardianStudents(ctx context.Context, guardianID, requestedStudentID string) ([]string, error) {
	if s.roster == nil {
		return nil, nil
	}
	linked, err := s.roster.StudentIDsForGuardian(ctx, guardianID)
	if err != nil {
		return nil, err
	}
	if requestedStudentID == "" {
		return linked, nil
	}
	if !containsString(linked, requestedStudentID) {
		return nil, ErrUnauthorized
	}
	return []string{requestedStudentID}, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
