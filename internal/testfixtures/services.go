package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/smart-scheduler/internal/application"
	"github.com/example/smart-scheduler/internal/slotting"
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

// ParticipantServiceDeps captures dependencies for constructing a participant
// service.
type ParticipantServiceDeps struct {
	Participants application.ParticipantRepository
	Busy         application.BusyIntervalStore
	Cache        *application.FreeTimeCache
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewParticipantService builds a participant service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewParticipantService(deps ParticipantServiceDeps) *application.ParticipantService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewParticipantService(
		deps.Participants,
		deps.Busy,
		deps.Cache,
		idGen,
		now,
		deps.Logger,
	)
}

// SlotServiceDeps captures dependencies for constructing a slot service.
type SlotServiceDeps struct {
	Participants application.ParticipantRepository
	Busy         application.BusyIntervalStore
	Events       application.EventRepository
	Generator    *slotting.Generator
	Scorer       *slotting.Scorer
	Cache        *application.FreeTimeCache
	Logger       *slog.Logger
}

// NewSlotService builds a slot service using the supplied dependencies. When
// no generator or scorer is provided, a 30 minute step generator and the
// default scoring weights are used.
func (f *ServiceFactory) NewSlotService(deps SlotServiceDeps) *application.SlotService {
	generator := slotting.NewGenerator(30*time.Minute, 50)
	if deps.Generator != nil {
		generator = *deps.Generator
	}
	scorer := slotting.NewScorer(slotting.DefaultWeights())
	if deps.Scorer != nil {
		scorer = *deps.Scorer
	}
	return application.NewSlotService(
		deps.Participants,
		deps.Busy,
		deps.Events,
		generator,
		scorer,
		deps.Cache,
		deps.Logger,
	)
}

// EventServiceDeps captures dependencies for constructing an event service.
type EventServiceDeps struct {
	Events         application.EventRepository
	Participants   application.ParticipantRepository
	Busy           application.BusyIntervalStore
	Publisher      application.Publisher
	Cache          *application.FreeTimeCache
	IDGenerator    func() string
	Now            func() time.Time
	ConfirmRetries int
	Logger         *slog.Logger
}

// NewEventService builds an event service using the supplied dependencies.
func (f *ServiceFactory) NewEventService(deps EventServiceDeps) *application.EventService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewEventService(
		deps.Events,
		deps.Participants,
		deps.Busy,
		deps.Publisher,
		deps.Cache,
		idGen,
		now,
		deps.ConfirmRetries,
		deps.Logger,
	)
}
