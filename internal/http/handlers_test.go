package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/campus-scheduler/internal/application"
)

type meetingServiceStub struct {
	createMeeting  application.Meeting
	createWarnings []application.ConflictWarning
	createErr      error
	createParams   application.CreateMeetingParams

	updateMeeting application.Meeting
	updateErr     error
	updateParams  application.UpdateMeetingParams

	getMeeting application.Meeting
	getErr     error

	deleteErr error
	deletedID string

	list       []application.Meeting
	listErr    error
	listParams application.ListMeetingsParams

	conflicts      []application.ConflictWarning
	degraded       []application.DegradedWarning
	conflictErr    error
	conflictParams application.CheckConflictsParams
}

func (s *meetingServiceStub) CreateMeeting(ctx context.Context, params application.CreateMeetingParams) (application.Meeting, []application.ConflictWarning, error) {
	s.createParams = params
	if s.createErr != nil {
		return application.Meeting{}, nil, s.createErr
	}
	return s.createMeeting, s.createWarnings, nil
}

func (s *meetingServiceStub) UpdateMeeting(ctx context.Context, params application.UpdateMeetingParams) (application.Meeting, []application.ConflictWarning, error) {
	s.updateParams = params
	if s.updateErr != nil {
		return application.Meeting{}, nil, s.updateErr
	}
	return s.updateMeeting, nil, nil
}

func (s *meetingServiceStub) GetMeeting(ctx context.Context, meetingID string) (application.Meeting, error) {
	if s.getErr != nil {
		return application.Meeting{}, s.getErr
	}
	return s.getMeeting, nil
}

func (s *meetingServiceStub) DeleteMeeting(ctx context.Context, principal application.Principal, meetingID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedID = meetingID
	return nil
}

func (s *meetingServiceStub) ListMeetings(ctx context.Context, params application.ListMeetingsParams) ([]application.Meeting, error) {
	s.listParams = params
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.list, nil
}

func (s *meetingServiceStub) CheckConflicts(ctx context.Context, params application.CheckConflictsParams) ([]application.ConflictWarning, []application.DegradedWarning, error) {
	s.conflictParams = params
	if s.conflictErr != nil {
		return nil, nil, s.conflictErr
	}
	return s.conflicts, s.degraded, nil
}

type enrollmentServiceStub struct {
	section    application.Section
	sectionErr error

	promotedOnResize []application.Enrollment

	sections []application.Section
	listErr  error

	enrollment   application.Enrollment
	enrollErr    error
	enrollParams application.EnrollParams

	withdrawResult application.WithdrawResult
	withdrawErr    error
	withdrawParams application.WithdrawParams

	promoted   []application.Enrollment
	promoteErr error

	stats    application.SectionStats
	statsErr error

	enrollments []application.Enrollment
}

func (s *enrollmentServiceStub) CreateSection(ctx context.Context, principal application.Principal, input application.SectionInput) (application.Section, error) {
	if s.sectionErr != nil {
		return application.Section{}, s.sectionErr
	}
	return s.section, nil
}

func (s *enrollmentServiceStub) UpdateSectionCapacity(ctx context.Context, principal application.Principal, sectionID string, capacity int) (application.Section, []application.Enrollment, error) {
	if s.sectionErr != nil {
		return application.Section{}, nil, s.sectionErr
	}
	return s.section, s.promotedOnResize, nil
}

func (s *enrollmentServiceStub) GetSection(ctx context.Context, sectionID string) (application.Section, error) {
	if s.sectionErr != nil {
		return application.Section{}, s.sectionErr
	}
	return s.section, nil
}

func (s *enrollmentServiceStub) ListSections(ctx context.Context) ([]application.Section, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.sections, nil
}

func (s *enrollmentServiceStub) Enroll(ctx context.Context, params application.EnrollParams) (application.Enrollment, error) {
	s.enrollParams = params
	if s.enrollErr != nil {
		return application.Enrollment{}, s.enrollErr
	}
	return s.enrollment, nil
}

func (s *enrollmentServiceStub) Withdraw(ctx context.Context, params application.WithdrawParams) (application.WithdrawResult, error) {
	s.withdrawParams = params
	if s.withdrawErr != nil {
		return application.WithdrawResult{}, s.withdrawErr
	}
	return s.withdrawResult, nil
}

func (s *enrollmentServiceStub) Promote(ctx context.Context, principal application.Principal, sectionID string) ([]application.Enrollment, error) {
	if s.promoteErr != nil {
		return nil, s.promoteErr
	}
	return s.promoted, nil
}

func (s *enrollmentServiceStub) SectionStats(ctx context.Context, sectionID string) (application.SectionStats, error) {
	if s.statsErr != nil {
		return application.SectionStats{}, s.statsErr
	}
	return s.stats, nil
}

func (s *enrollmentServiceStub) ListEnrollments(ctx context.Context, sectionID string) ([]application.Enrollment, error) {
	return s.enrollments, nil
}

type agendaServiceStub struct {
	agenda application.Agenda
	err    error
	params application.AgendaParams
}

func (s *agendaServiceStub) VisibleOccurrences(ctx context.Context, params application.AgendaParams) (application.Agenda, error) {
	s.params = params
	if s.err != nil {
		return application.Agenda{}, s.err
	}
	return s.agenda, nil
}

func stubPrincipalMiddleware(principal application.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func newTestRouter(meetings *meetingServiceStub, sections *enrollmentServiceStub, agenda *agendaServiceStub, principal application.Principal) http.Handler {
	return NewRouter(RouterConfig{
		Meetings: NewMeetingHandler(meetings, nil),
		Sections: NewSectionHandler(sections, nil),
		Agenda:   NewAgendaHandler(agenda, nil),
		Middleware: []func(http.Handler) http.Handler{
			stubPrincipalMiddleware(principal),
		},
	})
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.NewDecoder(recorder.Body).Decode(target); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func TestMeetingHandlers(t *testing.T) {
	t.Parallel()

	teacher := application.Principal{UserID: "teacher-1", Role: application.RoleTeacher}
	start := time.Date(2024, 10, 7, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	t.Run("create returns meeting with conflict warnings", func(t *testing.T) {
		t.Parallel()

		stub := &meetingServiceStub{
			createMeeting: application.Meeting{
				ID:         "meeting-1",
				SectionID:  "section-1",
				Title:      "Algebra II",
				Start:      start,
				End:        end,
				TeacherIDs: []string{"teacher-1"},
			},
			createWarnings: []application.ConflictWarning{
				{WithMeetingID: "meeting-9", Start: start, Type: "teacher", TeacherID: "teacher-1"},
			},
		}
		router := newTestRouter(stub, &enrollmentServiceStub{}, &agendaServiceStub{}, teacher)

		body := `{"section_id":"section-1","title":"Algebra II","start":"2024-10-07T09:00:00Z","end":"2024-10-07T10:00:00Z","teacher_ids":["teacher-1"]}`
		req := httptest.NewRequest(http.MethodPost, "/meetings", strings.NewReader(body))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
		}

		var payload struct {
			Meeting struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"meeting"`
			Warnings []struct {
				WithMeetingID string `json:"with_meeting_id"`
				Type          string `json:"type"`
			} `json:"warnings"`
		}
		decodeBody(t, recorder, &payload)

		if payload.Meeting.ID != "meeting-1" {
			t.Fatalf("expected meeting-1, got %q", payload.Meeting.ID)
		}
		if len(payload.Warnings) != 1 || payload.Warnings[0].Type != "teacher" {
			t.Fatalf("expected one teacher warning, got %+v", payload.Warnings)
		}
		if stub.createParams.Principal != teacher {
			t.Fatalf("expected principal to be forwarded, got %+v", stub.createParams.Principal)
		}
		if !stub.createParams.Input.Start.Equal(start) {
			t.Fatalf("expected parsed start %v, got %v", start, stub.createParams.Input.Start)
		}
	})

	t.Run("create maps validation errors to 422 with field details", func(t *testing.T) {
		t.Parallel()

		vErr := &application.ValidationError{FieldErrors: map[string]string{
			"title": "a title is required",
		}}
		stub := &meetingServiceStub{createErr: vErr}
		router := newTestRouter(stub, &enrollmentServiceStub{}, &agendaServiceStub{}, teacher)

		req := httptest.NewRequest(http.MethodPost, "/meetings", strings.NewReader(`{}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", recorder.Code)
		}

		var payload struct {
			Errors map[string]string `json:"errors"`
		}
		decodeBody(t, recorder, &payload)
		if payload.Errors["title"] != "a title is required" {
			t.Fatalf("expected title error, got %+v", payload.Errors)
		}
	})

	t.Run("create rejects malformed bodies", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&meetingServiceStub{}, &enrollmentServiceStub{}, &agendaServiceStub{}, teacher)

		req := httptest.NewRequest(http.MethodPost, "/meetings", strings.NewReader("{not json"))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}
	})

	t.Run("get maps ErrNotFound to 404", func(t *testing.T) {
		t.Parallel()

		stub := &meetingServiceStub{getErr: application.ErrNotFound}
		router := newTestRouter(stub, &enrollmentServiceStub{}, &agendaServiceStub{}, teacher)

		req := httptest.NewRequest(http.MethodGet, "/meetings/meeting-404", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", recorder.Code)
		}
	})

	t.Run("update forwards the path identifier", func(t *testing.T) {
		t.Parallel()

		stub := &meetingServiceStub{updateMeeting: application.Meeting{ID: "meeting-7", Start: start, End: end}}
		router := newTestRouter(stub, &enrollmentServiceStub{}, &agendaServiceStub{}, teacher)

		body := `{"section_id":"section-1","title":"Moved","start":"2024-10-07T10:00:00Z","end":"2024-10-07T11:00:00Z","teacher_ids":["teacher-1"]}`
		req := httptest.NewRequest(http.MethodPut, "/meetings/meeting-7", strings.NewReader(body))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
		}
		if stub.updateParams.MeetingID != "meeting-7" {
			t.Fatalf("expected meeting-7, got %q", stub.updateParams.MeetingID)
		}
	})

	t.Run("delete responds with 204 and no body", func(t *testing.T) {
		t.Parallel()

		stub := &meetingServiceStub{}
		router := newTestRouter(stub, &enrollmentServiceStub{}, &agendaServiceStub{}, teacher)

		req := httptest.NewRequest(http.MethodDelete, "/meetings/meeting-3", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", recorder.Code)
		}
		if recorder.Body.Len() != 0 {
			t.Fatalf("expected empty body, got %q", recorder.Body.String())
		}
		if stub.deletedID != "meeting-3" {
			t.Fatalf("expected meeting-3 deleted, got %q", stub.deletedID)
		}
	})

	t.Run("delete maps ErrUnauthorized to 403 with error code", func(t *testing.T) {
		t.Parallel()

		stub := &meetingServiceStub{deleteErr: application.ErrUnauthorized}
		router := newTestRouter(stub, &enrollmentServiceStub{}, &agendaServiceStub{}, application.Principal{UserID: "student-1", Role: application.RoleStudent})

		req := httptest.NewRequest(http.MethodDelete, "/meetings/meeting-3", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", recorder.Code)
		}

		var payload struct {
			ErrorCode string `json:"error_code"`
		}
		decodeBody(t, recorder, &payload)
		if payload.ErrorCode != "AUTH_FORBIDDEN" {
			t.Fatalf("expected AUTH_FORBIDDEN, got %q", payload.ErrorCode)
		}
	})

	t.Run("list converts query parameters to filters", func(t *testing.T) {
		t.Parallel()

		stub := &meetingServiceStub{}
		router := newTestRouter(stub, &enrollmentServiceStub{}, &agendaServiceStub{}, teacher)

		req := httptest.NewRequest(http.MethodGet, "/meetings?sections=section-1,section-2&teacher=teacher-1&starts_after=2024-10-01T00:00:00Z", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if len(stub.listParams.SectionIDs) != 2 {
			t.Fatalf("expected two section filters, got %+v", stub.listParams.SectionIDs)
		}
		if stub.listParams.TeacherID != "teacher-1" {
			t.Fatalf("expected teacher filter, got %q", stub.listParams.TeacherID)
		}
		if stub.listParams.StartsAfter == nil {
			t.Fatal("expected starts_after filter to be set")
		}
	})

	t.Run("conflict preview returns warnings and degraded notices", func(t *testing.T) {
		t.Parallel()

		roomID := "room-1"
		stub := &meetingServiceStub{
			conflicts: []application.ConflictWarning{
				{WithMeetingID: "meeting-2", Start: start, Type: "room", RoomID: &roomID},
			},
			degraded: []application.DegradedWarning{
				{MeetingID: "meeting-2", Reason: "unsupported recurrence frequency"},
			},
		}
		router := newTestRouter(stub, &enrollmentServiceStub{}, &agendaServiceStub{}, teacher)

		body := `{"meeting":{"section_id":"section-1","title":"Probe","start":"2024-10-07T09:00:00Z","end":"2024-10-07T10:00:00Z","teacher_ids":["teacher-1"]}}`
		req := httptest.NewRequest(http.MethodPost, "/conflicts", strings.NewReader(body))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
		}

		var payload struct {
			Conflicts []struct {
				Type   string  `json:"type"`
				RoomID *string `json:"room_id"`
			} `json:"conflicts"`
			Degraded []struct {
				Reason string `json:"reason"`
			} `json:"degraded"`
		}
		decodeBody(t, recorder, &payload)
		if len(payload.Conflicts) != 1 || payload.Conflicts[0].Type != "room" {
			t.Fatalf("expected one room conflict, got %+v", payload.Conflicts)
		}
		if len(payload.Degraded) != 1 {
			t.Fatalf("expected one degraded notice, got %+v", payload.Degraded)
		}
	})

	t.Run("unsupported methods respond with 405 and Allow header", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&meetingServiceStub{}, &enrollmentServiceStub{}, &agendaServiceStub{}, teacher)

		req := httptest.NewRequest(http.MethodPatch, "/meetings", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", recorder.Code)
		}
		if allow := recorder.Header().Get("Allow"); !strings.Contains(allow, http.MethodPost) {
			t.Fatalf("expected Allow header to include POST, got %q", allow)
		}
	})
}

func TestSectionHandlers(t *testing.T) {
	t.Parallel()

	admin := application.Principal{UserID: "admin-1", Role: application.RoleAdmin}
	student := application.Principal{UserID: "student-1", Role: application.RoleStudent}
	requestedAt := time.Date(2024, 10, 2, 15, 0, 0, 0, time.UTC)

	t.Run("create responds with the new section", func(t *testing.T) {
		t.Parallel()

		stub := &enrollmentServiceStub{section: application.Section{ID: "section-1", Name: "Algebra II", Capacity: 25}}
		router := newTestRouter(&meetingServiceStub{}, stub, &agendaServiceStub{}, admin)

		req := httptest.NewRequest(http.MethodPost, "/sections", strings.NewReader(`{"name":"Algebra II","capacity":25}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
		}

		var payload struct {
			Section struct {
				ID       string `json:"id"`
				Capacity int    `json:"capacity"`
			} `json:"section"`
		}
		decodeBody(t, recorder, &payload)
		if payload.Section.ID != "section-1" || payload.Section.Capacity != 25 {
			t.Fatalf("unexpected section payload: %+v", payload.Section)
		}
	})

	t.Run("capacity update reports promoted students", func(t *testing.T) {
		t.Parallel()

		stub := &enrollmentServiceStub{
			section: application.Section{ID: "section-1", Name: "Algebra II", Capacity: 30},
			promotedOnResize: []application.Enrollment{
				{ID: "enroll-2", SectionID: "section-1", StudentID: "student-2", Status: "enrolled", RequestedAt: requestedAt},
			},
		}
		router := newTestRouter(&meetingServiceStub{}, stub, &agendaServiceStub{}, admin)

		req := httptest.NewRequest(http.MethodPut, "/sections/section-1", strings.NewReader(`{"capacity":30}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
		}

		var payload struct {
			Promoted []struct {
				StudentID string `json:"student_id"`
				Status    string `json:"status"`
			} `json:"promoted"`
		}
		decodeBody(t, recorder, &payload)
		if len(payload.Promoted) != 1 || payload.Promoted[0].Status != "enrolled" {
			t.Fatalf("expected one promoted enrollment, got %+v", payload.Promoted)
		}
	})

	t.Run("enroll defaults the student to the caller", func(t *testing.T) {
		t.Parallel()

		stub := &enrollmentServiceStub{
			enrollment: application.Enrollment{ID: "enroll-1", SectionID: "section-1", StudentID: "student-1", Status: "enrolled", RequestedAt: requestedAt},
		}
		router := newTestRouter(&meetingServiceStub{}, stub, &agendaServiceStub{}, student)

		req := httptest.NewRequest(http.MethodPost, "/sections/section-1/enrollments", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
		}
		if stub.enrollParams.SectionID != "section-1" {
			t.Fatalf("expected section-1, got %q", stub.enrollParams.SectionID)
		}
		if stub.enrollParams.StudentID != "" {
			t.Fatalf("expected empty student override, got %q", stub.enrollParams.StudentID)
		}
	})

	t.Run("duplicate enrollment maps to 409 with error code", func(t *testing.T) {
		t.Parallel()

		stub := &enrollmentServiceStub{enrollErr: application.ErrDuplicateEnrollment}
		router := newTestRouter(&meetingServiceStub{}, stub, &agendaServiceStub{}, student)

		req := httptest.NewRequest(http.MethodPost, "/sections/section-1/enrollments", strings.NewReader(`{}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", recorder.Code)
		}

		var payload struct {
			ErrorCode string `json:"error_code"`
		}
		decodeBody(t, recorder, &payload)
		if payload.ErrorCode != "DUPLICATE_ENROLLMENT" {
			t.Fatalf("expected DUPLICATE_ENROLLMENT, got %q", payload.ErrorCode)
		}
	})

	t.Run("withdraw reports the cancelled record and any promotion", func(t *testing.T) {
		t.Parallel()

		stub := &enrollmentServiceStub{
			withdrawResult: application.WithdrawResult{
				Cancelled: application.Enrollment{ID: "enroll-1", SectionID: "section-1", StudentID: "student-1", Status: "cancelled", RequestedAt: requestedAt},
				Promoted: []application.Enrollment{
					{ID: "enroll-2", SectionID: "section-1", StudentID: "student-2", Status: "enrolled", RequestedAt: requestedAt.Add(time.Minute)},
				},
			},
		}
		router := newTestRouter(&meetingServiceStub{}, stub, &agendaServiceStub{}, student)

		req := httptest.NewRequest(http.MethodDelete, "/enrollments/enroll-1", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
		}
		if stub.withdrawParams.EnrollmentID != "enroll-1" {
			t.Fatalf("expected enroll-1, got %q", stub.withdrawParams.EnrollmentID)
		}

		var payload struct {
			Cancelled struct {
				Status string `json:"status"`
			} `json:"cancelled"`
			Promoted []struct {
				StudentID string `json:"student_id"`
			} `json:"promoted"`
		}
		decodeBody(t, recorder, &payload)
		if payload.Cancelled.Status != "cancelled" {
			t.Fatalf("expected cancelled status, got %q", payload.Cancelled.Status)
		}
		if len(payload.Promoted) != 1 || payload.Promoted[0].StudentID != "student-2" {
			t.Fatalf("expected student-2 promoted, got %+v", payload.Promoted)
		}
	})

	t.Run("stats expose occupancy counters", func(t *testing.T) {
		t.Parallel()

		stub := &enrollmentServiceStub{
			stats: application.SectionStats{
				SectionID:       "section-1",
				EnrolledCount:   20,
				WaitlistedCount: 5,
				AvailableSlots:  5,
				UtilizationRate: 0.8,
			},
		}
		router := newTestRouter(&meetingServiceStub{}, stub, &agendaServiceStub{}, admin)

		req := httptest.NewRequest(http.MethodGet, "/sections/section-1/stats", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}

		var payload struct {
			EnrolledCount   int     `json:"enrolled_count"`
			WaitlistedCount int     `json:"waitlisted_count"`
			UtilizationRate float64 `json:"utilization_rate"`
		}
		decodeBody(t, recorder, &payload)
		if payload.EnrolledCount != 20 || payload.WaitlistedCount != 5 {
			t.Fatalf("unexpected counters: %+v", payload)
		}
		if payload.UtilizationRate != 0.8 {
			t.Fatalf("expected utilization 0.8, got %v", payload.UtilizationRate)
		}
	})

	t.Run("promotion endpoint requires POST", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&meetingServiceStub{}, &enrollmentServiceStub{}, &agendaServiceStub{}, admin)

		req := httptest.NewRequest(http.MethodGet, "/sections/section-1/promotions", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", recorder.Code)
		}
	})

	t.Run("unknown subresources respond with 404", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&meetingServiceStub{}, &enrollmentServiceStub{}, &agendaServiceStub{}, admin)

		req := httptest.NewRequest(http.MethodGet, "/sections/section-1/teachers", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", recorder.Code)
		}
	})
}

func TestAgendaHandler(t *testing.T) {
	t.Parallel()

	student := application.Principal{UserID: "student-1", Role: application.RoleStudent}

	t.Run("returns expanded occurrences with degraded notices", func(t *testing.T) {
		t.Parallel()

		start := time.Date(2024, 10, 7, 9, 0, 0, 0, time.UTC)
		stub := &agendaServiceStub{
			agenda: application.Agenda{
				Occurrences: []application.Occurrence{
					{MeetingID: "meeting-1", SectionID: "section-1", Title: "Algebra II", Start: start, End: start.Add(time.Hour)},
				},
				Degraded: []application.DegradedWarning{
					{MeetingID: "meeting-2", Reason: "unsupported recurrence frequency"},
				},
			},
		}
		router := newTestRouter(&meetingServiceStub{}, &enrollmentServiceStub{}, stub, student)

		req := httptest.NewRequest(http.MethodGet, "/agenda", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
		}

		var payload struct {
			Occurrences []struct {
				MeetingID string `json:"meeting_id"`
				Start     string `json:"start"`
			} `json:"occurrences"`
			Degraded []struct {
				MeetingID string `json:"meeting_id"`
			} `json:"degraded"`
		}
		decodeBody(t, recorder, &payload)
		if len(payload.Occurrences) != 1 || payload.Occurrences[0].MeetingID != "meeting-1" {
			t.Fatalf("unexpected occurrences: %+v", payload.Occurrences)
		}
		if len(payload.Degraded) != 1 {
			t.Fatalf("expected one degraded notice, got %+v", payload.Degraded)
		}
	})

	t.Run("maps query parameters onto agenda params", func(t *testing.T) {
		t.Parallel()

		stub := &agendaServiceStub{}
		router := newTestRouter(&meetingServiceStub{}, &enrollmentServiceStub{}, stub, student)

		req := httptest.NewRequest(http.MethodGet, "/agenda?period=month&reference=2024-10-15T00:00:00Z&student_id=student-1", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if stub.params.Period != application.AgendaPeriodMonth {
			t.Fatalf("expected month period, got %q", stub.params.Period)
		}
		if stub.params.PeriodReference.IsZero() {
			t.Fatal("expected period reference to be parsed")
		}
		if stub.params.StudentID != "student-1" {
			t.Fatalf("expected student-1 filter, got %q", stub.params.StudentID)
		}
	})

	t.Run("explicit bounds take precedence over presets", func(t *testing.T) {
		t.Parallel()

		stub := &agendaServiceStub{}
		router := newTestRouter(&meetingServiceStub{}, &enrollmentServiceStub{}, stub, student)

		req := httptest.NewRequest(http.MethodGet, "/agenda?from=2024-10-01T00:00:00Z&to=2024-10-31T00:00:00Z", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if stub.params.WindowStart == nil || stub.params.WindowEnd == nil {
			t.Fatal("expected both bounds to be set")
		}
	})
}
