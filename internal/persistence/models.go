package persistence

import "time"

// Room status values persisted in the rooms table.
const (
	RoomStatusFree     = "FREE"
	RoomStatusOccupied = "OCCUPIED"
	RoomStatusReserved = "RESERVED"
	RoomStatusOffline  = "OFFLINE"
)

// History action values persisted in the history table.
const (
	ActionOccupy            = "OCCUPY"
	ActionReserve           = "RESERVE"
	ActionFree              = "FREE"
	ActionCancelReservation = "CANCEL_RESERVATION"
	ActionAdminOverride     = "ADMIN_OVERRIDE"
)

// Team represents a competing group that claims rooms.
type Team struct {
	ID         string
	Name       string
	Color      string
	CreatedAt  time.Time
	IsArchived bool
}

// Room represents a physical room and its current holder.
type Room struct {
	ID            string
	Name          string
	Description   string
	Status        string
	CurrentTeamID *string
	OccupiedSince *time.Time
	ReservedUntil *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// CurrentTeam is populated on reads when the room has a holder.
	CurrentTeam *Team
}

// HistoryEntry is an append-only record of a room transition.
type HistoryEntry struct {
	ID             string
	RoomID         string
	TeamID         string
	Action         string
	Timestamp      time.Time
	PreviousStatus *string
	NewStatus      string
	ArchivedDate   *time.Time
}

// DailyStats is the rollup written by the archive operation, one row per day.
type DailyStats struct {
	Date              time.Time
	TotalOccupations  int
	TotalReservations int
	MostPopularRoomID *string
	TeamActivity      map[string]int
	CreatedAt         time.Time
}

// Backup is a named snapshot document.
type Backup struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	Data        []byte
}

// RoomTransition describes a compare-and-set update of a room's holder state.
//
// The update only applies when the stored room still has ExpectedStatus and
// ExpectedTeamID (nil meaning no holder). When ReservedUntilAtOrBefore or
// OccupiedSinceAtOrBefore are set the stored timestamps must also be at or
// before the given instants. With ExclusiveSlot the target team must not hold
// any other room in the target status.
type RoomTransition struct {
	RoomID         string
	ExpectedStatus string
	ExpectedTeamID *string

	ReservedUntilAtOrBefore *time.Time
	OccupiedSinceAtOrBefore *time.Time

	Status        string
	TeamID        *string
	OccupiedSince *time.Time
	ReservedUntil *time.Time
	UpdatedAt     time.Time

	ExclusiveSlot bool
	History       *HistoryEntry
}

// HistoryFilter narrows history queries. Results are ordered newest first.
type HistoryFilter struct {
	RoomID          string
	TeamID          string
	Actions         []string
	IncludeArchived bool
	ArchivedOnly    bool
	Since           *time.Time
	Limit           int
}

// Snapshot is the full domain state replaced by a restore.
type Snapshot struct {
	Teams   []Team
	Rooms   []Room
	History []HistoryEntry
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

// ArchiveRequest drives the archive-and-reset maintenance operation.
//
// Summarize receives the archived entries whose timestamp falls on or after
// DayStart and returns the rollup to upsert for that day.
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
