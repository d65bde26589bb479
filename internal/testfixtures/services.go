package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/campus-scheduler/internal/application"
	"github.com/example/campus-scheduler/internal/recurrence"
	"github.com/example/campus-scheduler/internal/scheduler"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// MeetingServiceDeps captures dependencies for constructing a meeting service.
type MeetingServiceDeps struct {
	Meetings    application.MeetingStore
	Roster      application.RosterDirectory
	Rooms       application.RoomCatalog
	Sections    application.SectionCatalog
	Detector    *scheduler.Detector
	Cache       application.CacheInvalidator
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewMeetingService builds a meeting service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewMeetingService(deps MeetingServiceDeps) *application.MeetingService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	detector := deps.Detector
	if detector == nil {
		detector = scheduler.NewDetector(scheduler.NewExpander(recurrence.NewEngine(time.UTC)), 0)
	}
	return application.NewMeetingService(
		deps.Meetings,
		deps.Roster,
		deps.Rooms,
		deps.Sections,
		detector,
		deps.Cache,
		idGen,
		now,
		deps.Logger,
	)
}

// EnrollmentServiceDeps captures dependencies for constructing an enrollment service.
type EnrollmentServiceDeps struct {
	Sections    application.SectionStore
	Enrollments application.EnrollmentStore
	Cache       application.CacheInvalidator
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewEnrollmentService builds an enrollment service using the supplied dependencies.
func (f *ServiceFactory) NewEnrollmentService(deps EnrollmentServiceDeps) *application.EnrollmentService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewEnrollmentService(
		deps.Sections,
		deps.Enrollments,
		deps.Cache,
		idGen,
		now,
		deps.Logger,
	)
}

// AgendaServiceDeps captures dependencies for constructing an agenda service.
type AgendaServiceDeps struct {
	Meetings    application.MeetingStore
	Enrollments application.EnrollmentStore
	Roster      application.RosterDirectory
	Expander    *scheduler.Expander
	Cache       *application.OccurrenceCache
	Now         func() time.Time
}

// NewAgendaService builds an agenda service using the supplied dependencies.
func (f *ServiceFactory) NewAgendaService(deps AgendaServiceDeps) *application.AgendaService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	expander := deps.Expander
	if expander == nil {
		expander = scheduler.NewExpander(recurrence.NewEngine(time.UTC))
	}
	return application.NewAgendaService(
		deps.Meetings,
		deps.Enrollments,
		deps.Roster,
		expander,
		deps.Cache,
		now,
	)
}
