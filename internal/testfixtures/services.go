package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/room-tracker/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers, a controllable clock and a shared in-memory store.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Store       *MemoryStore
	Publisher   *RecordingPublisher
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Store:       NewMemoryStore(),
		Publisher:   &RecordingPublisher{},
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
	if factory.Store == nil {
		factory.Store = NewMemoryStore()
	}
	if factory.Publisher == nil {
		factory.Publisher = &RecordingPublisher{}
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

// WithStore overrides the backing store.
func WithStore(store *MemoryStore) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Store = store
	}
}

// WithLogger sets the logger passed to every service.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// OccupancyService builds the room state machine.
func (f *ServiceFactory) OccupancyService(reservationWindow time.Duration) *application.OccupancyService {
	return application.NewOccupancyServiceWithLogger(
		f.Store,
		f.Store,
		f.Publisher,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		reservationWindow,
		f.Logger,
	)
}

// Sweeper builds an expiry sweeper.
func (f *ServiceFactory) Sweeper(maxOccupation, interval time.Duration) *application.Sweeper {
	return application.NewSweeperWithLogger(
		f.Store,
		f.Publisher,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		maxOccupation,
		interval,
		f.Logger,
	)
}

// RoomService builds the room catalog service.
func (f *ServiceFactory) RoomService() *application.RoomService {
	return application.NewRoomServiceWithLogger(
		f.Store,
		f.Publisher,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
}

// TeamService builds the team service.
func (f *ServiceFactory) TeamService() *application.TeamService {
	return application.NewTeamServiceWithLogger(
		f.Store,
		f.Store,
		f.Publisher,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
}

// HistoryService builds the history query service.
func (f *ServiceFactory) HistoryService() *application.HistoryService {
	return application.NewHistoryServiceWithLogger(f.Store, f.Logger)
}

// StatsService builds the statistics service.
func (f *ServiceFactory) StatsService(minDuration time.Duration) *application.StatsService {
	return application.NewStatsServiceWithLogger(f.Store, f.Store, f.Store, f.Store, minDuration, f.Logger)
}

// BackupService builds the backup and archive service.
func (f *ServiceFactory) BackupService() *application.BackupService {
	return application.NewBackupServiceWithLogger(
		application.BackupServiceDeps{
			Backups:   f.Store,
			Archive:   f.Store,
			Rooms:     f.Store,
			Teams:     f.Store,
			History:   f.Store,
			Publisher: f.Publisher,
		},
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
}

// AddTeam stores a team fixture and returns it.
func (f *ServiceFactory) AddTeam(opts ...TeamOption) application.Team {
	team := NewTeamFixture(opts...).Application()
	f.Store.mu.Lock()
	f.Store.teams[team.ID] = team
	f.Store.mu.Unlock()
	return team
}

// AddRoom stores a FREE room fixture and returns it.
func (f *ServiceFactory) AddRoom(opts ...RoomOption) application.Room {
	room := NewRoomFixture(opts...).Application()
	f.Store.mu.Lock()
	f.Store.rooms[room.ID] = room
	f.Store.mu.Unlock()
	return room
}
