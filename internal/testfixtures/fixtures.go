package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-tracker/internal/application"
	"github.com/example/room-tracker/internal/persistence"
)

var (
	teamCounter    uint64
	roomCounter    uint64
	historyCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Team fixtures -----------------------------

// TeamFixture represents a deterministic team record.
type TeamFixture struct {
	ID         string
	Name       string
	Color      string
	CreatedAt  time.Time
	IsArchived bool
}

// TeamOption configures the generated team fixture.
type TeamOption func(*TeamFixture)

var teamColors = []string{"#E53935", "#1E88E5", "#43A047", "#FDD835", "#8E24AA"}

// NewTeamFixture returns a deterministic team fixture with optional overrides.
func NewTeamFixture(opts ...TeamOption) TeamFixture {
	idx := atomic.AddUint64(&teamCounter, 1)
	fixture := TeamFixture{
		ID:        fmt.Sprintf("team-%03d", idx),
		Name:      fmt.Sprintf("Team %03d", idx),
		Color:     teamColors[int(idx)%len(teamColors)],
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithTeamID overrides the generated team ID.
func WithTeamID(id string) TeamOption {
	return func(f *TeamFixture) {
		f.ID = id
	}
}

// WithTeamName overrides the generated team name.
func WithTeamName(name string) TeamOption {
	return func(f *TeamFixture) {
		f.Name = name
	}
}

// WithTeamColor overrides the generated color.
func WithTeamColor(color string) TeamOption {
	return func(f *TeamFixture) {
		f.Color = color
	}
}

// WithTeamArchived marks the team archived.
func WithTeamArchived() TeamOption {
	return func(f *TeamFixture) {
		f.IsArchived = true
	}
}

// Application returns the fixture as an application.Team value.
func (f TeamFixture) Application() application.Team {
	return application.Team{
		ID:         f.ID,
		Name:       f.Name,
		Color:      f.Color,
		CreatedAt:  f.CreatedAt,
		IsArchived: f.IsArchived,
	}
}

// Persistence returns the fixture as a persistence.Team value.
func (f TeamFixture) Persistence() persistence.Team {
	return persistence.Team{
		ID:         f.ID,
		Name:       f.Name,
		Color:      f.Color,
		CreatedAt:  f.CreatedAt,
		IsArchived: f.IsArchived,
	}
}

// Input returns the fixture as an application.TeamInput.
func (f TeamFixture) Input() application.TeamInput {
	return application.TeamInput{Name: f.Name, Color: f.Color}
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic room record in the FREE state.
type RoomFixture struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := RoomFixture{
		ID:        fmt.Sprintf("room-%03d", idx),
		Name:      fmt.Sprintf("Room %d", idx),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomDescription sets the description on the fixture.
func WithRoomDescription(description string) RoomOption {
	return func(f *RoomFixture) {
		f.Description = description
	}
}

// Application returns the fixture as an application.Room value.
func (f RoomFixture) Application() application.Room {
	return application.Room{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Status:      application.RoomStatusFree,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Room value.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Status:      persistence.RoomStatusFree,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Input returns the fixture as an application.RoomInput.
func (f RoomFixture) Input() application.RoomInput {
	return application.RoomInput{Name: f.Name, Description: f.Description}
}

// ----------------------------- History fixtures -----------------------------

// HistoryFixture represents a deterministic ledger entry.
type HistoryFixture struct {
	ID             string
	RoomID         string
	TeamID         string
	Action         application.HistoryAction
	Timestamp      time.Time
	PreviousStatus *application.RoomStatus
	NewStatus      application.RoomStatus
	ArchivedDate   *time.Time
}

// HistoryOption configures the generated history fixture.
type HistoryOption func(*HistoryFixture)

// NewHistoryFixture returns an entry for roomID and teamID with action at the
// given instant. The statuses default to the usual transition for action.
func NewHistoryFixture(roomID, teamID string, action application.HistoryAction, at time.Time, opts ...HistoryOption) HistoryFixture {
	idx := atomic.AddUint64(&historyCounter, 1)
	previous, next := defaultStatuses(action)
	fixture := HistoryFixture{
		ID:             fmt.Sprintf("hist-%06d", idx),
		RoomID:         roomID,
		TeamID:         teamID,
		Action:         action,
		Timestamp:      at,
		PreviousStatus: previous,
		NewStatus:      next,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithHistoryID overrides the generated entry ID.
func WithHistoryID(id string) HistoryOption {
	return func(f *HistoryFixture) {
		f.ID = id
	}
}

// WithHistoryArchived stamps the archive date.
func WithHistoryArchived(at time.Time) HistoryOption {
	return func(f *HistoryFixture) {
		value := at
		f.ArchivedDate = &value
	}
}

// WithHistoryStatuses overrides the recorded transition.
func WithHistoryStatuses(previous *application.RoomStatus, next application.RoomStatus) HistoryOption {
	return func(f *HistoryFixture) {
		f.PreviousStatus = previous
		f.NewStatus = next
	}
}

func defaultStatuses(action application.HistoryAction) (*application.RoomStatus, application.RoomStatus) {
	free := application.RoomStatusFree
	occupied := application.RoomStatusOccupied
	reserved := application.RoomStatusReserved
	switch action {
	case application.ActionOccupy:
		return &free, application.RoomStatusOccupied
	case application.ActionReserve:
		return &free, application.RoomStatusReserved
	case application.ActionCancelReservation:
		return &reserved, application.RoomStatusFree
	case application.ActionAdminOverride:
		return &free, application.RoomStatusOccupied
	default:
		return &occupied, application.RoomStatusFree
	}
}

// Application returns the fixture as an application.HistoryEntry value.
func (f HistoryFixture) Application() application.HistoryEntry {
	return application.HistoryEntry{
		ID:             f.ID,
		RoomID:         f.RoomID,
		TeamID:         f.TeamID,
		Action:         f.Action,
		Timestamp:      f.Timestamp,
		PreviousStatus: f.PreviousStatus,
		NewStatus:      f.NewStatus,
		ArchivedDate:   f.ArchivedDate,
	}
}

// Persistence returns the fixture as a persistence.HistoryEntry value.
func (f HistoryFixture) Persistence() persistence.HistoryEntry {
	entry := persistence.HistoryEntry{
		ID:           f.ID,
		RoomID:       f.RoomID,
		TeamID:       f.TeamID,
		Action:       string(f.Action),
		Timestamp:    f.Timestamp,
		NewStatus:    string(f.NewStatus),
		ArchivedDate: f.ArchivedDate,
	}
	if f.PreviousStatus != nil {
		previous := string(*f.PreviousStatus)
		entry.PreviousStatus = &previous
	}
	return entry
}

// Visit returns the OCCUPY and FREE entries of a visit by teamID to roomID
// starting at start and lasting d.
func Visit(roomID, teamID string, start time.Time, d time.Duration) []application.HistoryEntry {
	return []application.HistoryEntry{
		NewHistoryFixture(roomID, teamID, application.ActionOccupy, start).Application(),
		NewHistoryFixture(roomID, teamID, application.ActionFree, start.Add(d)).Application(),
	}
}
