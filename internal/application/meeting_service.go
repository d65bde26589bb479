package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/campus-scheduler/internal/persistence"
	"github.com/example/campus-scheduler/internal/recurrence"
	"github.com/example/campus-scheduler/internal/scheduler"
)

// MeetingStore captures the persistence interactions needed by the service.
type MeetingStore interface {
	CreateMeeting(ctx context.Context, meeting persistence.Meeting) error
	UpdateMeeting(ctx context.Context, meeting persistence.Meeting) error
	GetMeeting(ctx context.Context, id string) (persistence.Meeting, error)
	ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error)
	DeleteMeeting(ctx context.Context, id string) error
}

// RosterDirectory exposes roster lookup operations.
type RosterDirectory interface {
	MissingPersonIDs(ctx context.Context, ids []string) ([]string, error)
	GetPerson(ctx context.Context, id string) (persistence.Person, error)
	StudentIDsForGuardian(ctx context.Context, guardianID string) ([]string, error)
}

// RoomCatalog exposes room lookup operations.
type RoomCatalog interface {
	GetRoom(ctx context.Context, id string) (persistence.Room, error)
}

// SectionCatalog exposes section lookup operations.
type SectionCatalog interface {
	GetSection(ctx context.Context, id string) (persistence.Section, error)
}

// CacheInvalidator discards cached agenda results after meeting writes.
type CacheInvalidator interface {
	Invalidate()
}

// MeetingService orchestrates validation, conflict detection, and persistence
// for meeting operations.
type MeetingService struct {
	meetings    MeetingStore
	roster      RosterDirectory
	rooms       RoomCatalog
	sections    SectionCatalog
	detector    *scheduler.Detector
	cache       CacheInvalidator
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMeetingService wires dependencies for meeting operations.
func NewMeetingService(meetings MeetingStore, roster RosterDirectory, rooms RoomCatalog, sections SectionCatalog, detector *scheduler.Detector, cache CacheInvalidator, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MeetingService {
	if detector == nil {
		detector = scheduler.NewDetector(nil, 0)
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MeetingService{
		meetings:    meetings,
		roster:      roster,
		rooms:       rooms,
		sections:    sections,
		detector:    detector,
		cache:       cache,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *MeetingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MeetingService", operation, attrs...)
}

// CreateMeeting validates the request, reports conflicts, and persists the
// meeting. Conflicts are warnings, not rejections.
func (s *MeetingService) CreateMeeting(ctx context.Context, params CreateMeetingParams) (meeting Meeting, warnings []ConflictWarning, err error) {
	if s == nil {
		return Meeting{}, nil, fmt.Errorf("MeetingService is nil")
	}

	logger := s.loggerWith(ctx, "CreateMeeting",
		"principal_id", params.Principal.UserID,
		"section_id", params.Input.SectionID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("meeting_id", meeting.ID, "conflict_count", len(warnings)).InfoContext(ctx, "meeting created")
	}()

	if !params.Principal.CanManageMeetings() {
		return Meeting{}, nil, ErrUnauthorized
	}

	input := params.Input
	vErr := &ValidationError{}
	validateMeetingCore(input, vErr)
	if vErr.HasErrors() {
		return Meeting{}, nil, vErr
	}

	if err := s.ensureReferences(ctx, input); err != nil {
		return Meeting{}, nil, err
	}

	createdAt := s.now()
	meeting = Meeting{
		ID:             s.idGenerator(),
		SectionID:      input.SectionID,
		Title:          strings.TrimSpace(input.Title),
		Start:          input.Start,
		End:            input.End,
		IsRecurring:    input.Recurrence != "",
		Recurrence:     input.Recurrence,
		ExceptionDates: input.ExceptionDates,
		RoomID:         input.RoomID,
		TeacherIDs:     sortStrings(uniqueStrings(input.TeacherIDs)),
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}

	if s.meetings == nil {
		return meeting, nil, nil
	}

	warnings, err = s.detectConflicts(ctx, meeting, nil, nil)
	if err != nil {
		return Meeting{}, nil, err
	}

	if err := s.meetings.CreateMeeting(ctx, toPersistenceMeeting(meeting)); err != nil {
		return Meeting{}, nil, mapMeetingRepoError(err)
	}

	s.invalidateCache()
	return meeting, warnings, nil
}

// UpdateMeeting applies validation and authorization before updating
// persistence state.
func (s *MeetingService) UpdateMeeting(ctx context.Context, params UpdateMeetingParams) (meeting Meeting, warnings []ConflictWarning, err error) {
	if s == nil {
		return Meeting{}, nil, fmt.Errorf("MeetingService is nil")
	}
	if s.meetings == nil {
		return Meeting{}, nil, fmt.Errorf("meeting store not configured")
	}

	logger := s.loggerWith(ctx, "UpdateMeeting",
		"principal_id", params.Principal.UserID,
		"meeting_id", params.MeetingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("conflict_count", len(warnings)).InfoContext(ctx, "meeting updated")
	}()

	existing, err := s.meetings.GetMeeting(ctx, params.MeetingID)
	if err != nil {
		return Meeting{}, nil, mapMeetingRepoError(err)
	}

	principal := params.Principal
	if !principal.CanManageMeetings() {
		return Meeting{}, nil, ErrUnauthorized
	}
	if principal.Role == RoleTeacher && !containsString(existing.TeacherIDs, principal.UserID) {
		return Meeting{}, nil, ErrUnauthorized
	}

	input := params.Input
	vErr := &ValidationError{}
	validateMeetingCore(input, vErr)
	if vErr.HasErrors() {
		return Meeting{}, nil, vErr
	}

	if err := s.ensureReferences(ctx, input); err != nil {
		return Meeting{}, nil, err
	}

	updated := fromPersistenceMeeting(existing)
	updated.SectionID = input.SectionID
	updated.Title = strings.TrimSpace(input.Title)
	updated.Start = input.Start
	updated.End = input.End
	updated.IsRecurring = input.Recurrence != ""
	updated.Recurrence = input.Recurrence
	updated.ExceptionDates = input.ExceptionDates
	updated.RoomID = input.RoomID
	updated.TeacherIDs = sortStrings(uniqueStrings(input.TeacherIDs))
	updated.UpdatedAt = s.now()

	warnings, err = s.detectConflicts(ctx, updated, nil, nil)
	if err != nil {
		return Meeting{}, nil, err
	}

	if err := s.meetings.UpdateMeeting(ctx, toPersistenceMeeting(updated)); err != nil {
		return Meeting{}, nil, mapMeetingRepoError(err)
	}

	s.invalidateCache()
	return updated, warnings, nil
}

// GetMeeting loads one meeting.
func (s *MeetingService) GetMeeting(ctx context.Context, meetingID string) (Meeting, error) {
	if s == nil || s.meetings == nil {
		return Meeting{}, fmt.Errorf("meeting store not configured")
	}
	stored, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return Meeting{}, mapMeetingRepoError(err)
	}
	return fromPersistenceMeeting(stored), nil
}

// DeleteMeeting ensures authorization before delegating to persistence.
func (s *MeetingService) DeleteMeeting(ctx context.Context, principal Principal, meetingID string) (err error) {
	if s == nil || s.meetings == nil {
		return fmt.Errorf("meeting store not configured")
	}

	logger := s.loggerWith(ctx, "DeleteMeeting",
		"principal_id", principal.UserID,
		"meeting_id", meetingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting deleted")
	}()

	existing, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return mapMeetingRepoError(err)
	}

	if !principal.CanManageMeetings() {
		return ErrUnauthorized
	}
	if principal.Role == RoleTeacher && !containsString(existing.TeacherIDs, principal.UserID) {
		return ErrUnauthorized
	}

	if err := s.meetings.DeleteMeeting(ctx, meetingID); err != nil {
		return mapMeetingRepoError(err)
	}

	s.invalidateCache()
	return nil
}

// ListMeetings enumerates meetings matching the filter in chronological order.
func (s *MeetingService) ListMeetings(ctx context.Context, params ListMeetingsParams) ([]Meeting, error) {
	if s == nil || s.meetings == nil {
		return nil, fmt.Errorf("meeting store not configured")
	}

	stored, err := s.meetings.ListMeetings(ctx, persistence.MeetingFilter{
		SectionIDs:  params.SectionIDs,
		TeacherID:   params.TeacherID,
		StartsAfter: params.StartsAfter,
		EndsBefore:  params.EndsBefore,
	})
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
	sort.SliceStable(meetings, func(i, j int) bool {
		if meetings[i].Start.Equal(meetings[j].Start) {
			return meetings[i].ID < meetings[j].ID
		}
		return meetings[i].Start.Before(meetings[j].Start)
	})
	return meetings, nil
}

// CheckConflicts evaluates a candidate meeting against the stored meetings
// without persisting anything.
func (s *MeetingService) CheckConflicts(ctx context.Context, params CheckConflictsParams) ([]ConflictWarning, []DegradedWarning, error) {
	if s == nil || s.meetings == nil {
		return nil, nil, fmt.Errorf("meeting store not configured")
	}

	input := params.Input
	vErr := &ValidationError{}
	validateMeetingCore(input, vErr)
	if vErr.HasErrors() {
		return nil, nil, vErr
	}

	candidate := Meeting{
		ID:             params.MeetingID,
		SectionID:      input.SectionID,
		Title:          strings.TrimSpace(input.Title),
		Start:          input.Start,
		End:            input.End,
		IsRecurring:    input.Recurrence != "",
		Recurrence:     input.Recurrence,
		ExceptionDates: input.ExceptionDates,
		RoomID:         input.RoomID,
		TeacherIDs:     sortStrings(uniqueStrings(input.TeacherIDs)),
	}
	if candidate.ID == "" {
		candidate.ID = "candidate"
	}

	return s.detectConflictsWithDegraded(ctx, candidate, params.WindowStart, params.WindowEnd)
}

func (s *MeetingService) ensureReferences(ctx context.Context, input MeetingInput) error {
	vErr := &ValidationError{}

	if s.sections != nil {
		if _, err := s.sections.GetSection(ctx, input.SectionID); err != nil {
			if isNotFoundError(err) {
				vErr.add("section_id", "section does not exist")
			} else {
				return err
			}
		}
	}

	if input.RoomID != nil && s.rooms != nil {
		if _, err := s.rooms.GetRoom(ctx, *input.RoomID); err != nil {
			if isNotFoundError(err) {
				vErr.add("room_id", "room does not exist")
			} else {
				return err
			}
		}
	}

	if s.roster != nil {
		missing, err := s.roster.MissingPersonIDs(ctx, uniqueStrings(input.TeacherIDs))
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			vErr.add("teachers", fmt.Sprintf("unknown teacher ids: %s", strings.Join(missing, ", ")))
		}
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func (s *MeetingService) detectConflicts(ctx context.Context, candidate Meeting, windowStart, windowEnd *time.Time) ([]ConflictWarning, error) {
	warnings, _, err := s.detectConflictsWithDegraded(ctx, candidate, windowStart, windowEnd)
	return warnings, err
}

func (s *MeetingService) detectConflictsWithDegraded(ctx context.Context, candidate Meeting, windowStart, windowEnd *time.Time) ([]ConflictWarning, []DegradedWarning, error) {
	stored, err := s.meetings.ListMeetings(ctx, persistence.MeetingFilter{})
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	existing := make([]scheduler.Meeting, 0, len(stored))
	for _, record := range stored {
		existing = append(existing, toSchedulerMeeting(fromPersistenceMeeting(record)))
	}

	report, err := s.detector.FindConflicts(toSchedulerMeeting(candidate), existing, scheduler.ConflictOptions{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	})
	if err != nil {
		return nil, nil, err
	}

	return toConflictWarnings(report.Conflicts), toDegradedWarnings(report.Degraded), nil
}

func (s *MeetingService) invalidateCache() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}

func toSchedulerMeeting(meeting Meeting) scheduler.Meeting {
	teachers := make([]string, len(meeting.TeacherIDs))
	copy(teachers, meeting.TeacherIDs)

	return scheduler.Meeting{
		ID:             meeting.ID,
		SectionID:      meeting.SectionID,
		Title:          meeting.Title,
		Start:          meeting.Start,
		End:            meeting.End,
		IsRecurring:    meeting.IsRecurring,
		Recurrence:     meeting.Recurrence,
		ExceptionDates: meeting.ExceptionDates,
		RoomID:         meeting.RoomID,
		TeacherIDs:     teachers,
	}
}

func toConflictWarnings(conflicts []scheduler.Conflict) []ConflictWarning {
	if len(conflicts) == 0 {
		return nil
	}

	warnings := make([]ConflictWarning, 0, len(conflicts))
	for _, conflict := range conflicts {
		warning := ConflictWarning{
			WithMeetingID: conflict.WithMeetingID,
			Start:         conflict.Start,
			Type:          string(conflict.Type),
			TeacherID:     conflict.TeacherID,
		}
		if conflict.RoomID != nil {
			roomID := *conflict.RoomID
			warning.RoomID = &roomID
		}
		warnings = append(warnings, warning)
	}
	return warnings
}

func toDegradedWarnings(degraded []scheduler.DegradedRecurrence) []DegradedWarning {
	if len(degraded) == 0 {
		return nil
	}
	warnings := make([]DegradedWarning, 0, len(degraded))
	for _, entry := range degraded {
		warnings = append(warnings, DegradedWarning{MeetingID: entry.MeetingID, Reason: entry.Reason})
	}
	return warnings
}

func toPersistenceMeeting(meeting Meeting) persistence.Meeting {
	var rule *string
	if meeting.IsRecurring {
		value := meeting.Recurrence
		rule = &value
	}
	return persistence.Meeting{
		ID:             meeting.ID,
		SectionID:      meeting.SectionID,
		Title:          meeting.Title,
		Start:          meeting.Start,
		End:            meeting.End,
		IsRecurring:    meeting.IsRecurring,
		Recurrence:     rule,
		ExceptionDates: meeting.ExceptionDates,
		RoomID:         meeting.RoomID,
		TeacherIDs:     meeting.TeacherIDs,
		CreatedAt:      meeting.CreatedAt,
		UpdatedAt:      meeting.UpdatedAt,
	}
}

func fromPersistenceMeeting(record persistence.Meeting) Meeting {
	meeting := Meeting{
		ID:             record.ID,
		SectionID:      record.SectionID,
		Title:          record.Title,
		Start:          record.Start,
		End:            record.End,
		IsRecurring:    record.IsRecurring,
		ExceptionDates: record.ExceptionDates,
		RoomID:         record.RoomID,
		TeacherIDs:     record.TeacherIDs,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
	if record.Recurrence != nil {
		meeting.Recurrence = *record.Recurrence
	}
	return meeting
}

func validateMeetingCore(input MeetingInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.SectionID == "" {
		vErr.add("section_id", "section is required")
	}

	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.Start.Before(input.End) {
		vErr.add("time", "start must be before end")
	}

	if input.Recurrence != "" {
		if _, err := recurrence.ParseDescriptor(input.Recurrence); err != nil {
			vErr.add("recurrence", "recurrence rule is malformed")
		}
	}
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

func sortStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func mapMeetingRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("time", "start must be before end")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("references", "related records are missing")
		return vErr
	}
	return err
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
