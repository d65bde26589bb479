package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/campus-scheduler/internal/application"
)

type agendaService interface {
	VisibleOccurrences(ctx context.Context, params application.AgendaParams) (application.Agenda, error)
}

type AgendaHandler struct {
	service   agendaService
	responder responder
}

func NewAgendaHandler(service agendaService, logger *slog.Logger) *AgendaHandler {
	return &AgendaHandler{service: service, responder: newResponder(logger)}
}

// List serves GET /agenda. Explicit from/to bounds win over the period
// presets; with neither present the service defaults to the current week.
func (h *AgendaHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	params := application.AgendaParams{
		Principal:   principal,
		StudentID:   strings.TrimSpace(query.Get("student_id")),
		WindowStart: parseOptionalTime(query.Get("from")),
		WindowEnd:   parseOptionalTime(query.Get("to")),
	}

	switch strings.ToLower(strings.TrimSpace(query.Get("period"))) {
	case "day":
		params.Period = application.AgendaPeriodDay
	case "week":
		params.Period = application.AgendaPeriodWeek
	case "month":
		params.Period = application.AgendaPeriodMonth
	}
	if reference := parseTime(query.Get("reference")); !reference.IsZero() {
		params.PeriodReference = reference
	}

	agenda, err := h.service.VisibleOccurrences(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	occurrences := make([]occurrenceDTO, 0, len(agenda.Occurrences))
	for _, occurrence := range agenda.Occurrences {
		occurrences = append(occurrences, occurrenceDTO{
			MeetingID: occurrence.MeetingID,
			SectionID: occurrence.SectionID,
			Title:     occurrence.Title,
			Start:     occurrence.Start.UTC().Format(time.RFC3339Nano),
			End:       occurrence.End.UTC().Format(time.RFC3339Nano),
		})
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, agendaResponse{
		Occurrences: occurrences,
		Degraded:    toDegradedDTOs(agenda.Degraded),
	})
}

type agendaResponse struct {
	Occurrences []occurrenceDTO `json:"occurrences"`
	Degraded    []degradedDTO   `json:"degraded,omitempty"`
}

type occurrenceDTO struct {
	MeetingID string `json:"meeting_id"`
	SectionID string `json:"section_id"`
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end"`
}
