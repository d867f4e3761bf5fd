package application

import "time"

// Principal represents the caller invoking an administrative service method.
type Principal struct {
	ActorID string
	IsAdmin bool
}

// RoomStatus enumerates the lifecycle states of a room.
type RoomStatus string

const (
	RoomStatusFree     RoomStatus = "FREE"
	RoomStatusOccupied RoomStatus = "OCCUPIED"
	RoomStatusReserved RoomStatus = "RESERVED"
	RoomStatusOffline  RoomStatus = "OFFLINE"
)

// Valid reports whether s is a known status.
func (s RoomStatus) Valid() bool {
	switch s {
	case RoomStatusFree, RoomStatusOccupied, RoomStatusReserved, RoomStatusOffline:
		return true
	}
	return false
}

// Held reports whether a room in status s has a holding team.
func (s RoomStatus) Held() bool {
	return s == RoomStatusOccupied || s == RoomStatusReserved
}

// HistoryAction enumerates the ledger actions recorded for transitions.
type HistoryAction string

const (
	ActionOccupy            HistoryAction = "OCCUPY"
	ActionReserve           HistoryAction = "RESERVE"
	ActionFree              HistoryAction = "FREE"
	ActionCancelReservation HistoryAction = "CANCEL_RESERVATION"
	ActionAdminOverride     HistoryAction = "ADMIN_OVERRIDE"
)

// Valid reports whether a is a known action.
func (a HistoryAction) Valid() bool {
	switch a {
	case ActionOccupy, ActionReserve, ActionFree, ActionCancelReservation, ActionAdminOverride:
		return true
	}
	return false
}

// Team is a group competing for rooms.
type Team struct {
	ID         string
	Name       string
	Color      string
	CreatedAt  time.Time
	IsArchived bool
}

// TeamInput captures caller provided team fields.
type TeamInput struct {
	Name  string
	Color string
}

// Room is a physical room together with its current holder.
type Room struct {
	ID            string
	Name          string
	Description   string
	Status        RoomStatus
	CurrentTeamID *string
	CurrentTeam   *Team
	OccupiedSince *time.Time
	ReservedUntil *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name        string
	Description string
}

// HistoryEntry is one record in the transition ledger.
type HistoryEntry struct {
	ID             string
	RoomID         string
	TeamID         string
	Action         HistoryAction
	Timestamp      time.Time
	PreviousStatus *RoomStatus
	NewStatus      RoomStatus
	ArchivedDate   *time.Time
}

// HistoryFilter narrows history listings. Results are ordered newest first.
type HistoryFilter struct {
	RoomID          string
	TeamID          string
	Actions         []HistoryAction
	IncludeArchived bool
	ArchivedOnly    bool
	Since           *time.Time
	Limit           int
}

// RoomTransition is a compare-and-set update of a room's holder state.
//
// The update applies only while the stored room still matches ExpectedStatus
// and ExpectedTeamID. The optional deadline guards further require the stored
// timestamps to be at or before the given instants. ExclusiveSlot enforces
// that TeamID holds no other room in Status.
type RoomTransition struct {
	RoomID         string
	ExpectedStatus RoomStatus
	ExpectedTeamID *string

	ReservedUntilAtOrBefore *time.Time
	OccupiedSinceAtOrBefore *time.Time

	Status        RoomStatus
	TeamID        *string
	OccupiedSince *time.Time
	ReservedUntil *time.Time
	UpdatedAt     time.Time

	ExclusiveSlot bool
	History       *HistoryEntry
}

// RoomStats summarises valid visits to a room.
type RoomStats struct {
	RoomID                   string
	TotalVisits              int
	AverageOccupationMinutes *int
	LastOccupiedAt           *time.Time
}

// Visit is an OCCUPY paired with the FREE that closed it.
type Visit struct {
	RoomID          string
	TeamID          string
	Start           time.Time
	End             time.Time
	DurationMinutes int
}

// RoomDetail bundles a room with its statistics and valid visits.
type RoomDetail struct {
	Room   Room
	Stats  RoomStats
	Visits []Visit
}

// DailyStats is the rollup produced when history is archived.
type DailyStats struct {
	Date              time.Time
	TotalOccupations  int
	TotalReservations int
	MostPopularRoomID *string
	TeamActivity      map[string]int
}

// CurrentStats is the live aggregate over rooms and teams.
type CurrentStats struct {
	TotalRooms    int
	FreeRooms     int
	OccupiedRooms int
	ReservedRooms int
	OfflineRooms  int
	ActiveTeams   int
}

// SweepResult reports what a single expiry sweep released.
type SweepResult struct {
	ExpiredReservations int
	ExpiredOccupations  int
	Failures            int
}

// Changed reports whether the sweep released any room.
func (r SweepResult) Changed() bool {
	return r.ExpiredReservations+r.ExpiredOccupations > 0
}

// Snapshot is the domain state captured by a backup.
type Snapshot struct {
	Teams   []Team
	Rooms   []Room
	History []HistoryEntry
}

// Backup is a stored snapshot document.
type Backup struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	Data        []byte
}

// BackupSummary describes a backup without its payload.
type BackupSummary struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	Teams       int
	Rooms       int
	History     int
}

// BackupInput captures caller provided backup fields.
type BackupInput struct {
	Name        string
	Description string
}

// RestoreSummary reports how much of a snapshot was applied.
type RestoreSummary struct {
	Teams          int
	Rooms          int
	History        int
	SkippedRooms   int
	SkippedHistory int

	// ReactivatedHistory counts restored entries that had been archived since
	// the backup was taken; they are included in History.
	ReactivatedHistory int
}

// RestoreResult is the structured outcome of a restore.
type RestoreResult struct {
	Success bool
	Message string
	Summary RestoreSummary
}

// ArchiveRequest drives an archive-and-reset in the store.
type ArchiveRequest struct {
	ArchivedAt  time.Time
	DayStart    time.Time
	DeleteTeams bool
	Summarize   func(entries []HistoryEntry) DailyStats
}

// ArchiveSummary reports the effect of an archive-and-reset.
type ArchiveSummary struct {
	ArchivedHistory int
	DeletedTeams    int
	Stats           DailyStats
}

// ClearArchiveSummary reports rows removed by clearing the archive.
type ClearArchiveSummary struct {
	DeletedHistory int
	DeletedStats   int
	DeletedTeams   int
}

// ArchiveResult is the structured outcome of an archive-and-reset.
type ArchiveResult struct {
	Success bool
	Message string
	Summary ArchiveSummary
}

// RestoreTeamsResult is the structured outcome of restoring archived teams.
type RestoreTeamsResult struct {
	Success  bool
	Message  string
	Restored int
}

// ClearArchiveResult is the structured outcome of clearing the archive.
type ClearArchiveResult struct {
	Success bool
	Message string
	Summary ClearArchiveSummary
}
