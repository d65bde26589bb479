package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/campus-scheduler/internal/application"
)

type meetingService interface {
	CreateMeeting(ctx context.Context, params application.CreateMeetingParams) (application.Meeting, []application.ConflictWarning, error)
	UpdateMeeting(ctx context.Context, params application.UpdateMeetingParams) (application.Meeting, []application.ConflictWarning, error)
	GetMeeting(ctx context.Context, meetingID string) (application.Meeting, error)
	DeleteMeeting(ctx context.Context, principal application.Principal, meetingID string) error
	ListMeetings(ctx context.Context, params application.ListMeetingsParams) ([]application.Meeting, error)
	CheckConflicts(ctx context.Context, params application.CheckConflictsParams) ([]application.ConflictWarning, []application.DegradedWarning, error)
}

type MeetingHandler struct {
	service   meetingService
	responder responder
}

func NewMeetingHandler(service meetingService, logger *slog.Logger) *MeetingHandler {
	return &MeetingHandler{service: service, responder: newResponder(logger)}
}

func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req meetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	meeting, warnings, err := h.service.CreateMeeting(r.Context(), application.CreateMeetingParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderMeeting(r.Context(), w, meeting, warnings, http.StatusCreated)
}

func (h *MeetingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetingID, ok := MeetingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(meetingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	var req meetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	meeting, warnings, err := h.service.UpdateMeeting(r.Context(), application.UpdateMeetingParams{
		Principal: principal,
		MeetingID: meetingID,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderMeeting(r.Context(), w, meeting, warnings, http.StatusOK)
}

func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetingID, ok := MeetingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(meetingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	meeting, err := h.service.GetMeeting(r.Context(), meetingID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderMeeting(r.Context(), w, meeting, nil, http.StatusOK)
}

func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetingID, ok := MeetingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(meetingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteMeeting(r.Context(), principal, meetingID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := buildMeetingListParams(r.URL.Query(), principal)

	meetings, err := h.service.ListMeetings(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMeetingsResponse{Meetings: toMeetingDTOs(meetings)})
}

func (h *MeetingHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req conflictCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	warnings, degraded, err := h.service.CheckConflicts(r.Context(), application.CheckConflictsParams{
		Principal:   principal,
		MeetingID:   strings.TrimSpace(req.MeetingID),
		Input:       req.Meeting.toInput(),
		WindowStart: parseOptionalTime(req.WindowStart),
		WindowEnd:   parseOptionalTime(req.WindowEnd),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, conflictCheckResponse{
		Conflicts: toWarningDTOs(warnings),
		Degraded:  toDegradedDTOs(degraded),
	})
}

func (h *MeetingHandler) renderMeeting(ctx context.Context, w http.ResponseWriter, meeting application.Meeting, warnings []application.ConflictWarning, status int) {
	payload := meetingResponse{
		Meeting:  toMeetingDTO(meeting),
		Warnings: toWarningDTOs(warnings),
	}
	h.responder.writeJSON(ctx, w, status, payload)
}

type meetingRequest struct {
	SectionID      string   `json:"section_id"`
	Title          string   `json:"title"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	Recurrence     string   `json:"recurrence"`
	ExceptionDates []string `json:"exception_dates"`
	RoomID         *string  `json:"room_id"`
	TeacherIDs     []string `json:"teacher_ids"`
}

func (r meetingRequest) toInput() application.MeetingInput {
	return application.MeetingInput{
		SectionID:      strings.TrimSpace(r.SectionID),
		Title:          strings.TrimSpace(r.Title),
		Start:          parseTime(r.Start),
		End:            parseTime(r.End),
		Recurrence:     strings.TrimSpace(r.Recurrence),
		ExceptionDates: parseDates(r.ExceptionDates),
		RoomID:         r.RoomID,
		TeacherIDs:     append([]string(nil), r.TeacherIDs...),
	}
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

func parseOptionalTime(value string) *time.Time {
	ts := parseTime(value)
	if ts.IsZero() {
		return nil
	}
	return &ts
}

func parseDates(values []string) []time.Time {
	if len(values) == 0 {
		return nil
	}
	dates := make([]time.Time, 0, len(values))
	for _, value := range values {
		if ts, err := time.Parse("2006-01-02", strings.TrimSpace(value)); err == nil {
			dates = append(dates, ts)
		}
	}
	if len(dates) == 0 {
		return nil
	}
	return dates
}

type meetingResponse struct {
	Meeting  meetingDTO           `json:"meeting"`
	Warnings []conflictWarningDTO `json:"warnings,omitempty"`
}

type listMeetingsResponse struct {
	Meetings []meetingDTO `json:"meetings"`
}

type conflictCheckRequest struct {
	MeetingID   string         `json:"meeting_id"`
	Meeting     meetingRequest `json:"meeting"`
	WindowStart string         `json:"window_start"`
	WindowEnd   string         `json:"window_end"`
}

type conflictCheckResponse struct {
	Conflicts []conflictWarningDTO `json:"conflicts"`
	Degraded  []degradedDTO        `json:"degraded,omitempty"`
}

type meetingDTO struct {
	ID             string   `json:"id"`
	SectionID      string   `json:"section_id"`
	Title          string   `json:"title"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	IsRecurring    bool     `json:"is_recurring"`
	Recurrence     string   `json:"recurrence,omitempty"`
	ExceptionDates []string `json:"exception_dates,omitempty"`
	RoomID         *string  `json:"room_id,omitempty"`
	TeacherIDs     []string `json:"teacher_ids"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

func toMeetingDTO(meeting application.Meeting) meetingDTO {
	dto := meetingDTO{
		ID:          meeting.ID,
		SectionID:   meeting.SectionID,
		Title:       meeting.Title,
		Start:       meeting.Start.UTC().Format(time.RFC3339Nano),
		End:         meeting.End.UTC().Format(time.RFC3339Nano),
		IsRecurring: meeting.IsRecurring,
		Recurrence:  meeting.Recurrence,
		RoomID:      meeting.RoomID,
		TeacherIDs:  append([]string(nil), meeting.TeacherIDs...),
		CreatedAt:   meeting.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   meeting.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, date := range meeting.ExceptionDates {
		dto.ExceptionDates = append(dto.ExceptionDates, date.Format("2006-01-02"))
	}
	return dto
}

func toMeetingDTOs(meetings []application.Meeting) []meetingDTO {
	if len(meetings) == 0 {
		return nil
	}
	out := make([]meetingDTO, 0, len(meetings))
	for _, meeting := range meetings {
		out = append(out, toMeetingDTO(meeting))
	}
	return out
}

type conflictWarningDTO struct {
	WithMeetingID string  `json:"with_meeting_id"`
	Start         string  `json:"start"`
	Type          string  `json:"type"`
	TeacherID     string  `json:"teacher_id,omitempty"`
	RoomID        *string `json:"room_id,omitempty"`
}

func toWarningDTOs(warnings []application.ConflictWarning) []conflictWarningDTO {
	if len(warnings) == 0 {
		return nil
	}

	out := make([]conflictWarningDTO, 0, len(warnings))
	for _, warning := range warnings {
		out = append(out, conflictWarningDTO{
			WithMeetingID: warning.WithMeetingID,
			Start:         warning.Start.UTC().Format(time.RFC3339Nano),
			Type:          warning.Type,
			TeacherID:     warning.TeacherID,
			RoomID:        warning.RoomID,
		})
	}
	return out
}

type degradedDTO struct {
	MeetingID string `json:"meeting_id"`
	Reason    string `json:"reason"`
}

func toDegradedDTOs(degraded []application.DegradedWarning) []degradedDTO {
	if len(degraded) == 0 {
		return nil
	}
	out := make([]degradedDTO, 0, len(degraded))
	for _, entry := range degraded {
		out = append(out, degradedDTO{MeetingID: entry.MeetingID, Reason: entry.Reason})
	}
	return out
}

func buildMeetingListParams(values url.Values, principal application.Principal) application.ListMeetingsParams {
	params := application.ListMeetingsParams{Principal: principal}

	if sections := strings.TrimSpace(values.Get("sections")); sections != "" {
		params.SectionIDs = parseCSV(sections)
	}
	if teacher := strings.TrimSpace(values.Get("teacher")); teacher != "" {
		params.TeacherID = teacher
	}
	if after := strings.TrimSpace(values.Get("starts_after")); after != "" {
		if ts := parseTime(after); !ts.IsZero() {
			params.StartsAfter = &ts
		}
	}
	if before := strings.TrimSpace(values.Get("ends_before")); before != "" {
		if ts := parseTime(before); !ts.IsZero() {
			params.EndsBefore = &ts
		}
	}

	return params
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
