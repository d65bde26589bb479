package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/campus-scheduler/internal/application"
)

type enrollmentService interface {
	CreateSection(ctx context.Context, principal application.Principal, input application.SectionInput) (application.Section, error)
	UpdateSectionCapacity(ctx context.Context, principal application.Principal, sectionID string, capacity int) (application.Section, []application.Enrollment, error)
	GetSection(ctx context.Context, sectionID string) (application.Section, error)
	ListSections(ctx context.Context) ([]application.Section, error)
	Enroll(ctx context.Context, params application.EnrollParams) (application.Enrollment, error)
	Withdraw(ctx context.Context, params application.WithdrawParams) (application.WithdrawResult, error)
	Promote(ctx context.Context, principal application.Principal, sectionID string) ([]application.Enrollment, error)
	SectionStats(ctx context.Context, sectionID string) (application.SectionStats, error)
	ListEnrollments(ctx context.Context, sectionID string) ([]application.Enrollment, error)
}

type SectionHandler struct {
	service   enrollmentService
	responder responder
}

func NewSectionHandler(service enrollmentService, logger *slog.Logger) *SectionHandler {
	return &SectionHandler{service: service, responder: newResponder(logger)}
}

func (h *SectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req sectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	section, err := h.service.CreateSection(r.Context(), principal, application.SectionInput{
		Name:     strings.TrimSpace(req.Name),
		Capacity: req.Capacity,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sectionResponse{Section: toSectionDTO(section)})
}

func (h *SectionHandler) UpdateCapacity(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sectionID, ok := SectionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sectionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSectionID)
		return
	}

	var req capacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	section, promoted, err := h.service.UpdateSectionCapacity(r.Context(), principal, sectionID, req.Capacity)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sectionResponse{
		Section:  toSectionDTO(section),
		Promoted: toEnrollmentDTOs(promoted),
	})
}

func (h *SectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sectionID, ok := SectionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sectionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSectionID)
		return
	}

	section, err := h.service.GetSection(r.Context(), sectionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sectionResponse{Section: toSectionDTO(section)})
}

func (h *SectionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sections, err := h.service.ListSections(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]sectionDTO, 0, len(sections))
	for _, section := range sections {
		dtos = append(dtos, toSectionDTO(section))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSectionsResponse{Sections: dtos})
}

func (h *SectionHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sectionID, ok := SectionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sectionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSectionID)
		return
	}

	var req enrollRequest
	if r.Body != nil {
		// The body is optional; students enrolling themselves send none.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	principal, _ := PrincipalFromContext(r.Context())

	record, err := h.service.Enroll(r.Context(), application.EnrollParams{
		Principal: principal,
		SectionID: sectionID,
		StudentID: strings.TrimSpace(req.StudentID),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, enrollmentResponse{Enrollment: toEnrollmentDTO(record)})
}

func (h *SectionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	enrollmentID, ok := EnrollmentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(enrollmentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEnrollmentID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	result, err := h.service.Withdraw(r.Context(), application.WithdrawParams{
		Principal:    principal,
		EnrollmentID: enrollmentID,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, withdrawResponse{
		Cancelled: toEnrollmentDTO(result.Cancelled),
		Promoted:  toEnrollmentDTOs(result.Promoted),
	})
}

func (h *SectionHandler) Promote(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sectionID, ok := SectionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sectionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSectionID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	promoted, err := h.service.Promote(r.Context(), principal, sectionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, promoteResponse{Promoted: toEnrollmentDTOs(promoted)})
}

func (h *SectionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sectionID, ok := SectionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sectionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSectionID)
		return
	}

	stats, err := h.service.SectionStats(r.Context(), sectionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, statsResponse{
		SectionID:       stats.SectionID,
		EnrolledCount:   stats.EnrolledCount,
		WaitlistedCount: stats.WaitlistedCount,
		CancelledCount:  stats.CancelledCount,
		AvailableSlots:  stats.AvailableSlots,
		UtilizationRate: stats.UtilizationRate,
	})
}

func (h *SectionHandler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sectionID, ok := SectionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sectionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSectionID)
		return
	}

	records, err := h.service.ListEnrollments(r.Context(), sectionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEnrollmentsResponse{Enrollments: toEnrollmentDTOs(records)})
}

type sectionRequest struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

type capacityRequest struct {
	Capacity int `json:"capacity"`
}

type enrollRequest struct {
	StudentID string `json:"student_id"`
}

type sectionResponse struct {
	Section  sectionDTO      `json:"section"`
	Promoted []enrollmentDTO `json:"promoted,omitempty"`
}

type listSectionsResponse struct {
	Sections []sectionDTO `json:"sections"`
}

type enrollmentResponse struct {
	Enrollment enrollmentDTO `json:"enrollment"`
}

type withdrawResponse struct {
	Cancelled enrollmentDTO   `json:"cancelled"`
	Promoted  []enrollmentDTO `json:"promoted,omitempty"`
}

type promoteResponse struct {
	Promoted []enrollmentDTO `json:"promoted"`
}

type statsResponse struct {
	SectionID       string  `json:"section_id"`
	EnrolledCount   int     `json:"enrolled_count"`
	WaitlistedCount int     `json:"waitlisted_count"`
	CancelledCount  int     `json:"cancelled_count"`
	AvailableSlots  int     `json:"available_slots"`
	UtilizationRate float64 `json:"utilization_rate"`
}

type listEnrollmentsResponse struct {
	Enrollments []enrollmentDTO `json:"enrollments"`
}

type sectionDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toSectionDTO(section application.Section) sectionDTO {
	return sectionDTO{
		ID:        section.ID,
		Name:      section.Name,
		Capacity:  section.Capacity,
		CreatedAt: section.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: section.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type enrollmentDTO struct {
	ID          string `json:"id"`
	SectionID   string `json:"section_id"`
	StudentID   string `json:"student_id"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
}

func toEnrollmentDTO(record application.Enrollment) enrollmentDTO {
	return enrollmentDTO{
		ID:          record.ID,
		SectionID:   record.SectionID,
		StudentID:   record.StudentID,
		Status:      record.Status,
		RequestedAt: record.RequestedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toEnrollmentDTOs(records []application.Enrollment) []enrollmentDTO {
	if len(records) == 0 {
		return nil
	}
	out := make([]enrollmentDTO, 0, len(records))
	for _, record := range records {
		out = append(out, toEnrollmentDTO(record))
	}
	return out
}
