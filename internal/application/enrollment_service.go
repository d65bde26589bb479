package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/campus-scheduler/internal/enrollment"
	"github.com/example/campus-scheduler/internal/persistence"
)

// SectionStore captures the section persistence interactions needed by the
// service.
type SectionStore interface {
	CreateSection(ctx context.Context, section persistence.Section) error
	UpdateSection(ctx context.Context, section persistence.Section) error
	GetSection(ctx context.Context, id string) (persistence.Section, error)
	ListSections(ctx context.Context) ([]persistence.Section, error)
}

// EnrollmentStore captures the enrollment persistence interactions needed by
// the service. Records are never deleted.
type EnrollmentStore interface {
	CreateEnrollment(ctx context.Context, record persistence.Enrollment) error
	UpdateEnrollment(ctx context.Context, record persistence.Enrollment) error
	GetEnrollment(ctx context.Context, id string) (persistence.Enrollment, error)
	ListEnrollmentsForSection(ctx context.Context, sectionID string) ([]persistence.Enrollment, error)
	ListEnrollmentsForStudent(ctx context.Context, studentID string) ([]persistence.Enrollment, error)
}

// EnrollmentService coordinates capacity-aware enrollment requests. A ledger
// per section serialises admissions so that capacity is never exceeded; the
// service keeps each ledger loaded after first use and writes every state
// transition through to the store.
type EnrollmentService struct {
	sections    SectionStore
	enrollments EnrollmentStore
	cache       CacheInvalidator
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger

	mu      sync.Mutex
	ledgers map[string]*enrollment.Ledger
}

// NewEnrollmentService wires dependencies for enrollment operations. The
// cache is invalidated on every status transition so student and guardian
// agendas reflect enrollment changes immediately.
func NewEnrollmentService(sections SectionStore, enrollments EnrollmentStore, cache CacheInvalidator, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EnrollmentService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EnrollmentService{
		sections:    sections,
		enrollments: enrollments,
		cache:       cache,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
		ledgers:     make(map[string]*enrollment.Ledger),
	}
}

func (s *EnrollmentService) invalidateCache() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}

func (s *EnrollmentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EnrollmentService", operation, attrs...)
}

// CreateSection registers a new section.
func (s *EnrollmentService) CreateSection(ctx context.Context, principal Principal, input SectionInput) (Section, error) {
	if s == nil || s.sections == nil {
		return Section{}, fmt.Errorf("section store not configured")
	}
	if !principal.IsAdmin() {
		return Section{}, ErrUnauthorized
	}

	vErr := &ValidationError{}
	validateSectionCore(input, vErr)
	if vErr.HasErrors() {
		return Section{}, vErr
	}

	createdAt := s.now()
	record := persistence.Section{
		ID:        s.idGenerator(),
		Name:      input.Name,
		Capacity:  input.Capacity,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := s.sections.CreateSection(ctx, record); err != nil {
		return Section{}, mapMeetingRepoError(err)
	}
	return fromPersistenceSection(record), nil
}

// UpdateSectionCapacity changes a section's capacity. Raising capacity
// promotes waitlisted students in request order; lowering it never demotes
// anyone already enrolled.
func (s *EnrollmentService) UpdateSectionCapacity(ctx context.Context, principal Principal, sectionID string, capacity int) (Section, []Enrollment, error) {
	if s == nil || s.sections == nil {
		return Section{}, nil, fmt.Errorf("section store not configured")
	}
	if !principal.IsAdmin() {
		return Section{}, nil, ErrUnauthorized
	}
	if capacity < 0 {
		vErr := &ValidationError{}
		vErr.add("capacity", "capacity must not be negative")
		return Section{}, nil, vErr
	}

	ledger, err := s.ledgerFor(ctx, sectionID)
	if err != nil {
		return Section{}, nil, err
	}

	ledger.SetCapacity(capacity)
	promoted := ledger.PromoteFromWaitlist()

	stored, err := s.sections.GetSection(ctx, sectionID)
	if err != nil {
		s.forgetLedger(sectionID)
		return Section{}, nil, mapMeetingRepoError(err)
	}
	stored.Capacity = capacity
	stored.UpdatedAt = s.now()
	if err := s.sections.UpdateSection(ctx, stored); err != nil {
		s.forgetLedger(sectionID)
		return Section{}, nil, mapMeetingRepoError(err)
	}

	results, err := s.persistTransitions(ctx, promoted)
	if err != nil {
		s.forgetLedger(sectionID)
		return Section{}, nil, err
	}
	if len(results) > 0 {
		s.invalidateCache()
	}
	return fromPersistenceSection(stored), results, nil
}

// GetSection loads one section.
func (s *EnrollmentService) GetSection(ctx context.Context, sectionID string) (Section, error) {
	if s == nil || s.sections == nil {
		return Section{}, fmt.Errorf("section store not configured")
	}
	stored, err := s.sections.GetSection(ctx, sectionID)
	if err != nil {
		return Section{}, mapMeetingRepoError(err)
	}
	return fromPersistenceSection(stored), nil
}

// ListSections enumerates all sections.
func (s *EnrollmentService) ListSections(ctx context.Context) ([]Section, error) {
	if s == nil || s.sections == nil {
		return nil, fmt.Errorf("section store not configured")
	}
	stored, err := s.sections.ListSections(ctx)
	if err != nil {
		return nil, mapMeetingRepoError(err)
	}
	sections := make([]Section, 0, len(stored))
	for _, record := range stored {
		sections = append(sections, fromPersistenceSection(record))
	}
	return sections, nil
}

// Enroll requests a seat for a student. The student lands on the waitlist if
// the section is full.
func (s *EnrollmentService) Enroll(ctx context.Context, params EnrollParams) (result Enrollment, err error) {
	if s == nil || s.enrollments == nil {
		return Enrollment{}, fmt.Errorf("enrollment store not configured")
	}

	logger := s.loggerWith(ctx, "Enroll",
		"principal_id", params.Principal.UserID,
		"section_id", params.SectionID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to enroll student", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("enrollment_id", result.ID, "status", result.Status).InfoContext(ctx, "enrollment recorded")
	}()

	studentID := params.StudentID
	if studentID == "" {
		studentID = params.Principal.UserID
	}
	if studentID != params.Principal.UserID && !params.Principal.IsAdmin() {
		return Enrollment{}, ErrUnauthorized
	}

	ledger, err := s.ledgerFor(ctx, params.SectionID)
	if err != nil {
		return Enrollment{}, err
	}

	record, err := ledger.RequestEnrollment(studentID, s.now())
	if err != nil {
		if errors.Is(err, enrollment.ErrDuplicateActiveEnrollment) {
			return Enrollment{}, ErrDuplicateEnrollment
		}
		return Enrollment{}, err
	}

	persisted := persistence.Enrollment{
		ID:          record.ID,
		SectionID:   record.SectionID,
		StudentID:   record.StudentID,
		Status:      string(record.Status),
		RequestedAt: record.RequestedAt,
	}
	if err := s.enrollments.CreateEnrollment(ctx, persisted); err != nil {
		s.forgetLedger(params.SectionID)
		return Enrollment{}, mapMeetingRepoError(err)
	}
	s.invalidateCache()
	return fromLedgerEnrollment(record), nil
}

// Withdraw cancels an active enrollment and promotes waitlisted students into
// any freed seat.
func (s *EnrollmentService) Withdraw(ctx context.Context, params WithdrawParams) (result WithdrawResult, err error) {
	if s == nil || s.enrollments == nil {
		return WithdrawResult{}, fmt.Errorf("enrollment store not configured")
	}

	logger := s.loggerWith(ctx, "Withdraw",
		"principal_id", params.Principal.UserID,
		"enrollment_id", params.EnrollmentID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to withdraw enrollment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("promoted_count", len(result.Promoted)).InfoContext(ctx, "enrollment withdrawn")
	}()

	stored, err := s.enrollments.GetEnrollment(ctx, params.EnrollmentID)
	if err != nil {
		return WithdrawResult{}, mapMeetingRepoError(err)
	}

	if stored.StudentID != params.Principal.UserID && !params.Principal.IsAdmin() {
		return WithdrawResult{}, ErrUnauthorized
	}

	ledger, err := s.ledgerFor(ctx, stored.SectionID)
	if err != nil {
		return WithdrawResult{}, err
	}

	cancelled, promoted, err := ledger.Withdraw(params.EnrollmentID)
	if err != nil {
		if errors.Is(err, enrollment.ErrNotFound) {
			return WithdrawResult{}, ErrNotFound
		}
		return WithdrawResult{}, err
	}

	if _, err := s.persistTransitions(ctx, append([]enrollment.Enrollment{cancelled}, promoted...)); err != nil {
		s.forgetLedger(stored.SectionID)
		return WithdrawResult{}, err
	}

	s.invalidateCache()
	result = WithdrawResult{Cancelled: fromLedgerEnrollment(cancelled)}
	for _, record := range promoted {
		result.Promoted = append(result.Promoted, fromLedgerEnrollment(record))
	}
	return result, nil
}

// Promote fills open seats from the waitlist in request order. The call is
// idempotent; with no free seats or an empty waitlist it promotes nobody.
func (s *EnrollmentService) Promote(ctx context.Context, principal Principal, sectionID string) ([]Enrollment, error) {
	if s == nil || s.enrollments == nil {
		return nil, fmt.Errorf("enrollment store not configured")
	}
	if !principal.IsAdmin() {
		return nil, ErrUnauthorized
	}

	ledger, err := s.ledgerFor(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	promoted := ledger.PromoteFromWaitlist()
	results, err := s.persistTransitions(ctx, promoted)
	if err != nil {
		s.forgetLedger(sectionID)
		return nil, err
	}
	if len(results) > 0 {
		s.invalidateCache()
	}
	return results, nil
}

// SectionStats summarises a section's occupancy.
func (s *EnrollmentService) SectionStats(ctx context.Context, sectionID string) (SectionStats, error) {
	if s == nil {
		return SectionStats{}, fmt.Errorf("EnrollmentService is nil")
	}

	ledger, err := s.ledgerFor(ctx, sectionID)
	if err != nil {
		return SectionStats{}, err
	}

	stats := ledger.Stats()
	return SectionStats{
		SectionID:       sectionID,
		EnrolledCount:   stats.EnrolledCount,
		WaitlistedCount: stats.WaitlistedCount,
		CancelledCount:  stats.CancelledCount,
		AvailableSlots:  stats.AvailableSlots,
		UtilizationRate: stats.UtilizationRate,
	}, nil
}

// ListEnrollments returns the enrollment history for a section in request
// order.
func (s *EnrollmentService) ListEnrollments(ctx context.Context, sectionID string) ([]Enrollment, error) {
	if s == nil || s.enrollments == nil {
		return nil, fmt.Errorf("enrollment store not configured")
	}
	ledger, err := s.ledgerFor(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	records := ledger.Records()
	results := make([]Enrollment, 0, len(records))
	for _, record := range records {
		results = append(results, fromLedgerEnrollment(record))
	}
	return results, nil
}

// ledgerFor returns the in-memory ledger for a section, loading it from the
// store on first use. The double-checked load keeps concurrent requests for
// the same section behind one ledger instance.
func (s *EnrollmentService) ledgerFor(ctx context.Context, sectionID string) (*enrollment.Ledger, error) {
	s.mu.Lock()
	if ledger, ok := s.ledgers[sectionID]; ok {
		s.mu.Unlock()
		return ledger, nil
	}
	s.mu.Unlock()

	if s.sections == nil {
		return nil, fmt.Errorf("section store not configured")
	}

	stored, err := s.sections.GetSection(ctx, sectionID)
	if err != nil {
		return nil, mapMeetingRepoError(err)
	}

	var existing []enrollment.Enrollment
	if s.enrollments != nil {
		records, err := s.enrollments.ListEnrollmentsForSection(ctx, sectionID)
		if err != nil && !isNotFoundError(err) {
			return nil, err
		}
		for _, record := range records {
			existing = append(existing, enrollment.Enrollment{
				ID:          record.ID,
				SectionID:   record.SectionID,
				StudentID:   record.StudentID,
				Status:      enrollment.Status(record.Status),
				RequestedAt: record.RequestedAt,
			})
		}
	}

	ledger := enrollment.NewLedger(enrollment.Section{ID: stored.ID, Capacity: stored.Capacity}, existing, s.idGenerator)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.ledgers[sectionID]; ok {
		return cached, nil
	}
	s.ledgers[sectionID] = ledger
	return ledger, nil
}

// forgetLedger drops a section's cached ledger so the next operation rebuilds
// it from the store. Called when a write-through fails and the in-memory
// state no longer matches what was persisted.
func (s *EnrollmentService) forgetLedger(sectionID string) {
	s.mu.Lock()
	delete(s.ledgers, sectionID)
	s.mu.Unlock()
}

func (s *EnrollmentService) persistTransitions(ctx context.Context, records []enrollment.Enrollment) ([]Enrollment, error) {
	results := make([]Enrollment, 0, len(records))
	for _, record := range records {
		persisted := persistence.Enrollment{
			ID:          record.ID,
			SectionID:   record.SectionID,
			StudentID:   record.StudentID,
			Status:      string(record.Status),
			RequestedAt: record.RequestedAt,
		}
		if s.enrollments != nil {
			if err := s.enrollments.UpdateEnrollment(ctx, persisted); err != nil {
				return nil, mapMeetingRepoError(err)
			}
		}
		results = append(results, fromLedgerEnrollment(record))
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results, nil
}

func fromLedgerEnrollment(record enrollment.Enrollment) Enrollment {
	return Enrollment{
		ID:          record.ID,
		SectionID:   record.SectionID,
		StudentID:   record.StudentID,
		Status:      string(record.Status),
		RequestedAt: record.RequestedAt,
	}
}

func fromPersistenceSection(record persistence.Section) Section {
	return Section{
		ID:        record.ID,
		Name:      record.Name,
		Capacity:  record.Capacity,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func validateSectionCore(input SectionInput, vErr *ValidationError) {
	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.Capacity < 0 {
		vErr.add("capacity", "capacity must not be negative")
	}
}
