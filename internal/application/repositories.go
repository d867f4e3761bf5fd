package application

import (
	"context"
	"log/slog"
	"time"
)

// RoomRepository captures the room persistence operations used by the services.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) (Room, error)
	GetRoom(ctx context.Context, id string) (Room, error)
	UpdateRoom(ctx context.Context, room Room) (Room, error)
	DeleteRoom(ctx context.Context, id string) error
	ListRooms(ctx context.Context) ([]Room, error)
	ListRoomsByStatus(ctx context.Context, status RoomStatus) ([]Room, error)
	CountRooms(ctx context.Context) (int, error)
	ApplyTransition(ctx context.Context, transition RoomTransition) (Room, error)
}

// TeamRepository captures the team persistence operations used by the services.
type TeamRepository interface {
	CreateTeam(ctx context.Context, team Team) (Team, error)
	GetTeam(ctx context.Context, id string) (Team, error)
	UpdateTeam(ctx context.Context, team Team) (Team, error)
	// DeleteTeam reports how many rooms were freed by the cascade.
	DeleteTeam(ctx context.Context, id string, at time.Time) (int, error)
	ListTeams(ctx context.Context, includeArchived bool) ([]Team, error)
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

// BackupRepository stores snapshot documents and applies snapshots.
type BackupRepository interface {
	CreateBackup(ctx context.Context, backup Backup) (Backup, error)
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

// RoomPublisher receives the full room list after every committed mutation.
// Implementations must not block.
type RoomPublisher interface {
	Publish(rooms []Room)
}

// roomBroadcaster rereads the room list after a commit and hands it to the
// publisher. Failures are logged only.
type roomBroadcaster struct {
	rooms     RoomRepository
	publisher RoomPublisher
}

func (b roomBroadcaster) broadcast(ctx context.Context, logger *slog.Logger) {
	if b.publisher == nil || b.rooms == nil {
		return
	}
	rooms, err := b.rooms.ListRooms(ctx)
	if err != nil {
		logger.WarnContext(ctx, "failed to load rooms for broadcast", "error", err)
		return
	}
	SortRooms(rooms)
	b.publisher.Publish(rooms)
}
