package persistence

import (
	"context"
	"time"
)

// RoomRepository exposes room storage including race-safe transitions.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	ListRoomsByStatus(ctx context.Context, status string) ([]Room, error)
	CountRooms(ctx context.Context) (int, error)
	// DeleteRoom removes the room together with its history.
	DeleteRoom(ctx context.Context, id string) error
	ApplyTransition(ctx context.Context, transition RoomTransition) (Room, error)
}

// TeamRepository exposes team storage.
type TeamRepository interface {
	CreateTeam(ctx context.Context, team Team) error
	UpdateTeam(ctx context.Context, team Team) error
	GetTeam(ctx context.Context, id string) (Team, error)
	ListTeams(ctx context.Context, includeArchived bool) ([]Team, error)
	// DeleteTeam frees rooms held by the team, stamping them with at, removes
	// its history and the team itself. It reports how many rooms were freed.
	DeleteTeam(ctx context.Context, id string, at time.Time) (int, error)
}

// HistoryRepository exposes read access to the transition ledger.
type HistoryRepository interface {
	ListHistory(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error)
}

// DailyStatsRepository exposes archived daily rollups.
type DailyStatsRepository interface {
	GetDailyStats(ctx context.Context, day time.Time) (DailyStats, error)
	ListDailyStats(ctx context.Context) ([]DailyStats, error)
}

// BackupRepository stores snapshot documents and applies them.
type BackupRepository interface {
	CreateBackup(ctx context.Context, backup Backup) error
	GetBackup(ctx context.Context, id string) (Backup, error)
	ListBackups(ctx context.Context) ([]Backup, error)
	DeleteBackup(ctx context.Context, id string) error
	RestoreSnapshot(ctx context.Context, snapshot Snapshot, at time.Time) (RestoreSummary, error)
}

// ArchiveRepository groups the maintenance operations over archived data.
type ArchiveRepository interface {
	ArchiveAndReset(ctx context.Context, req ArchiveRequest) (ArchiveSummary, error)
	RestoreArchivedTeams(ctx context.Context) (int, error)
	ClearArchive(ctx context.Context, at time.Time) (ClearArchiveSummary, error)
}
