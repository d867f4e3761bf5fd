package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/room-tracker/internal/persistence"
)

var testEpoch = time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "rooms.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.Migrate(context.Background(), nil); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return store
}

func seedTeam(t *testing.T, store *Store, id, name string) persistence.Team {
	t.Helper()
	team := persistence.Team{ID: id, Name: name, Color: "#3366ff", CreatedAt: testEpoch}
	if err := store.CreateTeam(context.Background(), team); err != nil {
		t.Fatalf("CreateTeam(%s) failed: %v", id, err)
	}
	return team
}

func seedRoom(t *testing.T, store *Store, id, name string) persistence.Room {
	t.Helper()
	room := persistence.Room{ID: id, Name: name, CreatedAt: testEpoch, UpdatedAt: testEpoch}
	if err := store.CreateRoom(context.Background(), room); err != nil {
		t.Fatalf("CreateRoom(%s) failed: %v", id, err)
	}
	return room
}

func occupy(t *testing.T, store *Store, roomID, teamID, historyID string, at time.Time) persistence.Room {
	t.Helper()
	previous := persistence.RoomStatusFree
	room, err := store.ApplyTransition(context.Background(), persistence.RoomTransition{
		RoomID:         roomID,
		ExpectedStatus: persistence.RoomStatusFree,
		Status:         persistence.RoomStatusOccupied,
		TeamID:         &teamID,
		OccupiedSince:  &at,
		UpdatedAt:      at,
		ExclusiveSlot:  true,
		History: &persistence.HistoryEntry{
			ID:             historyID,
			RoomID:         roomID,
			TeamID:         teamID,
			Action:         persistence.ActionOccupy,
			Timestamp:      at,
			PreviousStatus: &previous,
			NewStatus:      persistence.RoomStatusOccupied,
		},
	})
	if err != nil {
		t.Fatalf("occupy %s by %s failed: %v", roomID, teamID, err)
	}
	return room
}

func TestStore_MigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	if err := store.Migrate(context.Background(), nil); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestTeamRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	team := seedTeam(t, store, "team-1", "Red")

	t.Run("duplicate active name", func(t *testing.T) {
		err := store.CreateTeam(ctx, persistence.Team{ID: "team-dup", Name: "Red", Color: "#000000", CreatedAt: testEpoch})
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("archived name can be reused", func(t *testing.T) {
		team.IsArchived = true
		if err := store.UpdateTeam(ctx, team); err != nil {
			t.Fatalf("UpdateTeam failed: %v", err)
		}
		seedTeam(t, store, "team-2", "Red")

		active, err := store.ListTeams(ctx, false)
		if err != nil {
			t.Fatalf("ListTeams failed: %v", err)
		}
		if len(active) != 1 || active[0].ID != "team-2" {
			t.Fatalf("expected only team-2 active, got %#v", active)
		}
		all, err := store.ListTeams(ctx, true)
		if err != nil {
			t.Fatalf("ListTeams(all) failed: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 teams including archived, got %d", len(all))
		}
	})

	t.Run("missing team", func(t *testing.T) {
		if _, err := store.GetTeam(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := store.UpdateTeam(ctx, persistence.Team{ID: "missing", Name: "x", Color: "#fff"}); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on update, got %v", err)
		}
	})
}

func TestTeamRepository_DeleteTeamFreesRooms(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	seedTeam(t, store, "team-1", "Red")
	seedRoom(t, store, "room-1", "Room 1")
	occupy(t, store, "room-1", "team-1", "h-1", testEpoch)

	deletedAt := testEpoch.Add(time.Hour)
	freed, err := store.DeleteTeam(ctx, "team-1", deletedAt)
	if err != nil {
		t.Fatalf("DeleteTeam failed: %v", err)
	}
	if freed != 1 {
		t.Fatalf("expected 1 freed room, got %d", freed)
	}

	room, err := store.GetRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if room.Status != persistence.RoomStatusFree || room.CurrentTeamID != nil {
		t.Fatalf("expected room freed, got %#v", room)
	}
	if !room.UpdatedAt.Equal(deletedAt) {
		t.Fatalf("expected updated_at %v, got %v", deletedAt, room.UpdatedAt)
	}

	history, err := store.ListHistory(ctx, persistence.HistoryFilter{IncludeArchived: true})
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected team history removed, got %d entries", len(history))
	}

	if _, err := store.DeleteTeam(ctx, "team-1", deletedAt); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestHistoryRepository_Filters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	seedTeam(t, store, "team-1", "Red")
	seedTeam(t, store, "team-2", "Blue")
	seedRoom(t, store, "room-1", "Room 1")
	seedRoom(t, store, "room-2", "Room 2")
	occupy(t, store, "room-1", "team-1", "h-1", testEpoch)
	occupy(t, store, "room-2", "team-2", "h-2", testEpoch.Add(time.Minute))

	tests := []struct {
		name   string
		filter persistence.HistoryFilter
		want   []string
	}{
		{name: "all newest first", filter: persistence.HistoryFilter{}, want: []string{"h-2", "h-1"}},
		{name: "by room", filter: persistence.HistoryFilter{RoomID: "room-1"}, want: []string{"h-1"}},
		{name: "by team", filter: persistence.HistoryFilter{TeamID: "team-2"}, want: []string{"h-2"}},
		{name: "by action", filter: persistence.HistoryFilter{Actions: []string{persistence.ActionFree}}, want: nil},
		{name: "limit", filter: persistence.HistoryFilter{Limit: 1}, want: []string{"h-2"}},
		{name: "archived only", filter: persistence.HistoryFilter{ArchivedOnly: true}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := store.ListHistory(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListHistory failed: %v", err)
			}
			if len(entries) != len(tt.want) {
				t.Fatalf("expected %d entries, got %d", len(tt.want), len(entries))
			}
			for i, id := range tt.want {
				if entries[i].ID != id {
					t.Fatalf("expected entry %d to be %s, got %s", i, id, entries[i].ID)
				}
			}
		})
	}
}

func TestArchiveRepository_ArchiveAndReset(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	seedTeam(t, store, "team-1", "Red")
	seedRoom(t, store, "room-1", "Room 1")
	occupy(t, store, "room-1", "team-1", "h-1", testEpoch)

	archivedAt := testEpoch.Add(time.Hour)
	dayStart := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	var summarized int
	summary, err := store.ArchiveAndReset(ctx, persistence.ArchiveRequest{
		ArchivedAt: archivedAt,
		DayStart:   dayStart,
		Summarize: func(entries []persistence.HistoryEntry) persistence.DailyStats {
			summarized = len(entries)
			roomID := "room-1"
			return persistence.DailyStats{
				TotalOccupations:  len(entries),
				MostPopularRoomID: &roomID,
				TeamActivity:      map[string]int{"team-1": len(entries)},
			}
		},
	})
	if err != nil {
		t.Fatalf("ArchiveAndReset failed: %v", err)
	}
	if summary.ArchivedHistory != 1 || summarized != 1 {
		t.Fatalf("expected one archived entry summarized, got summary %+v summarized %d", summary, summarized)
	}

	room, err := store.GetRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if room.Status != persistence.RoomStatusFree {
		t.Fatalf("expected room reset to FREE, got %s", room.Status)
	}

	stats, err := store.GetDailyStats(ctx, dayStart)
	if err != nil {
		t.Fatalf("GetDailyStats failed: %v", err)
	}
	if stats.TotalOccupations != 1 || stats.TeamActivity["team-1"] != 1 {
		t.Fatalf("unexpected daily stats %#v", stats)
	}
	if stats.MostPopularRoomID == nil || *stats.MostPopularRoomID != "room-1" {
		t.Fatalf("expected most popular room-1, got %v", stats.MostPopularRoomID)
	}

	archived, err := store.ListHistory(ctx, persistence.HistoryFilter{ArchivedOnly: true})
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(archived) != 1 || archived[0].ArchivedDate == nil || !archived[0].ArchivedDate.Equal(archivedAt) {
		t.Fatalf("expected entry stamped with archive date, got %#v", archived)
	}

	// A second archive on the same day replaces the rollup.
	if _, err := store.ArchiveAndReset(ctx, persistence.ArchiveRequest{ArchivedAt: archivedAt, DayStart: dayStart}); err != nil {
		t.Fatalf("second ArchiveAndReset failed: %v", err)
	}
	all, err := store.ListDailyStats(ctx)
	if err != nil {
		t.Fatalf("ListDailyStats failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one daily rollup, got %d", len(all))
	}
}

func TestArchiveRepository_DeleteTeams(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	seedTeam(t, store, "team-1", "Red")
	seedRoom(t, store, "room-1", "Room 1")
	occupy(t, store, "room-1", "team-1", "h-1", testEpoch)

	summary, err := store.ArchiveAndReset(ctx, persistence.ArchiveRequest{
		ArchivedAt:  testEpoch,
		DayStart:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		DeleteTeams: true,
	})
	if err != nil {
		t.Fatalf("ArchiveAndReset failed: %v", err)
	}
	if summary.DeletedTeams != 1 {
		t.Fatalf("expected 1 deleted team, got %d", summary.DeletedTeams)
	}
	teams, err := store.ListTeams(ctx, true)
	if err != nil {
		t.Fatalf("ListTeams failed: %v", err)
	}
	if len(teams) != 0 {
		t.Fatalf("expected no teams, got %d", len(teams))
	}
}

func TestArchiveRepository_RestoreArchivedTeamsSkipsTakenNames(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	red := seedTeam(t, store, "team-1", "Red")
	blue := seedTeam(t, store, "team-2", "Blue")
	for _, team := range []persistence.Team{red, blue} {
		team.IsArchived = true
		if err := store.UpdateTeam(ctx, team); err != nil {
			t.Fatalf("UpdateTeam failed: %v", err)
		}
	}
	seedTeam(t, store, "team-3", "Red")

	restored, err := store.RestoreArchivedTeams(ctx)
	if err != nil {
		t.Fatalf("RestoreArchivedTeams failed: %v", err)
	}
	if restored != 1 {
		t.Fatalf("expected 1 restored team, got %d", restored)
	}

	team, err := store.GetTeam(ctx, "team-1")
	if err != nil {
		t.Fatalf("GetTeam failed: %v", err)
	}
	if !team.IsArchived {
		t.Fatal("expected team-1 to stay archived because its name is taken")
	}
}

func TestArchiveRepository_ClearArchive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	team := seedTeam(t, store, "team-1", "Red")
	seedRoom(t, store, "room-1", "Room 1")
	occupy(t, store, "room-1", "team-1", "h-1", testEpoch)
	if _, err := store.ArchiveAndReset(ctx, persistence.ArchiveRequest{ArchivedAt: testEpoch, DayStart: testEpoch.Truncate(24 * time.Hour)}); err != nil {
		t.Fatalf("ArchiveAndReset failed: %v", err)
	}
	seedRoom(t, store, "room-2", "Room 2")
	occupy(t, store, "room-2", "team-1", "h-2", testEpoch.Add(time.Minute))
	team.IsArchived = true
	if err := store.UpdateTeam(ctx, team); err != nil {
		t.Fatalf("UpdateTeam failed: %v", err)
	}

	clearedAt := testEpoch.Add(2 * time.Hour)
	summary, err := store.ClearArchive(ctx, clearedAt)
	if err != nil {
		t.Fatalf("ClearArchive failed: %v", err)
	}
	want := persistence.ClearArchiveSummary{DeletedHistory: 1, DeletedStats: 1, DeletedTeams: 1}
	if summary != want {
		t.Fatalf("expected %+v, got %+v", want, summary)
	}

	room, err := store.GetRoom(ctx, "room-2")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if room.Status != persistence.RoomStatusFree || room.CurrentTeamID != nil {
		t.Fatalf("expected room held by the archived team freed, got %#v", room)
	}
	if !room.UpdatedAt.Equal(clearedAt) {
		t.Fatalf("expected updated_at %v, got %v", clearedAt, room.UpdatedAt)
	}
}

func TestBackupRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	older := persistence.Backup{ID: "b-1", Name: "first", CreatedAt: testEpoch, Data: []byte(`{"teams":[]}`)}
	newer := persistence.Backup{ID: "b-2", Name: "second", Description: "after lunch", CreatedAt: testEpoch.Add(time.Hour), Data: []byte(`{}`)}
	for _, backup := range []persistence.Backup{older, newer} {
		if err := store.CreateBackup(ctx, backup); err != nil {
			t.Fatalf("CreateBackup failed: %v", err)
		}
	}

	backups, err := store.ListBackups(ctx)
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 2 || backups[0].ID != "b-2" {
		t.Fatalf("expected newest backup first, got %#v", backups)
	}

	fetched, err := store.GetBackup(ctx, "b-1")
	if err != nil {
		t.Fatalf("GetBackup failed: %v", err)
	}
	if string(fetched.Data) != `{"teams":[]}` {
		t.Fatalf("unexpected backup data %q", fetched.Data)
	}

	if err := store.DeleteBackup(ctx, "b-1"); err != nil {
		t.Fatalf("DeleteBackup failed: %v", err)
	}
	if _, err := store.GetBackup(ctx, "b-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteBackup(ctx, "b-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestBackupRepository_RestoreSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	seedTeam(t, store, "team-1", "Red")
	seedTeam(t, store, "team-gone", "Green")
	seedRoom(t, store, "room-1", "Room 1")
	seedRoom(t, store, "room-2", "Room 2")
	occupy(t, store, "room-2", "team-gone", "h-live", testEpoch)

	holder := "team-1"
	since := testEpoch.Add(-10 * time.Minute)
	snapshot := persistence.Snapshot{
		Teams: []persistence.Team{{ID: "team-1", Name: "Red Renamed", Color: "#ff0000", CreatedAt: testEpoch}},
		Rooms: []persistence.Room{
			{ID: "room-1", Status: persistence.RoomStatusOccupied, CurrentTeamID: &holder, OccupiedSince: &since, UpdatedAt: since},
			{ID: "room-deleted", Status: persistence.RoomStatusFree, UpdatedAt: since},
		},
		History: []persistence.HistoryEntry{
			{ID: "h-1", RoomID: "room-1", TeamID: "team-1", Action: persistence.ActionOccupy, Timestamp: since, NewStatus: persistence.RoomStatusOccupied},
			{ID: "h-orphan", RoomID: "room-deleted", TeamID: "team-1", Action: persistence.ActionOccupy, Timestamp: since, NewStatus: persistence.RoomStatusOccupied},
		},
	}

	restoredAt := testEpoch.Add(time.Hour)
	summary, err := store.RestoreSnapshot(ctx, snapshot, restoredAt)
	if err != nil {
		t.Fatalf("RestoreSnapshot failed: %v", err)
	}
	want := persistence.RestoreSummary{Teams: 1, Rooms: 1, History: 1, SkippedRooms: 1, SkippedHistory: 1}
	if summary != want {
		t.Fatalf("expected %+v, got %+v", want, summary)
	}

	room, err := store.GetRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if room.Status != persistence.RoomStatusOccupied || room.CurrentTeam == nil || room.CurrentTeam.Name != "Red Renamed" {
		t.Fatalf("unexpected restored room %#v", room)
	}
	if !room.UpdatedAt.Equal(restoredAt) {
		t.Fatalf("expected restored room updated_at %v, got %v", restoredAt, room.UpdatedAt)
	}
	other, err := store.GetRoom(ctx, "room-2")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if other.Status != persistence.RoomStatusFree {
		t.Fatalf("expected room-2 reset to FREE, got %s", other.Status)
	}
	if !other.UpdatedAt.Equal(restoredAt) {
		t.Fatalf("expected reset room updated_at %v, got %v", restoredAt, other.UpdatedAt)
	}
	if _, err := store.GetTeam(ctx, "team-gone"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected team outside the snapshot removed, got %v", err)
	}
}

func TestBackupRepository_RestoreSnapshotAfterArchive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	seedTeam(t, store, "team-1", "Red")
	seedRoom(t, store, "room-1", "Room 1")
	occupied := occupy(t, store, "room-1", "team-1", "h-1", testEpoch)

	holder := "team-1"
	snapshot := persistence.Snapshot{
		Teams: []persistence.Team{{ID: "team-1", Name: "Red", Color: "#3366ff", CreatedAt: testEpoch}},
		Rooms: []persistence.Room{
			{ID: "room-1", Status: persistence.RoomStatusOccupied, CurrentTeamID: &holder, OccupiedSince: occupied.OccupiedSince, UpdatedAt: testEpoch},
		},
		History: []persistence.HistoryEntry{
			{ID: "h-1", RoomID: "room-1", TeamID: "team-1", Action: persistence.ActionOccupy, Timestamp: testEpoch, NewStatus: persistence.RoomStatusOccupied},
			{ID: "h-orphan", RoomID: "room-1", TeamID: "team-missing", Action: persistence.ActionOccupy, Timestamp: testEpoch, NewStatus: persistence.RoomStatusOccupied},
		},
	}

	if _, err := store.ArchiveAndReset(ctx, persistence.ArchiveRequest{
		ArchivedAt: testEpoch.Add(time.Hour),
		DayStart:   testEpoch.Truncate(24 * time.Hour),
	}); err != nil {
		t.Fatalf("ArchiveAndReset failed: %v", err)
	}

	summary, err := store.RestoreSnapshot(ctx, snapshot, testEpoch.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("RestoreSnapshot failed: %v", err)
	}
	want := persistence.RestoreSummary{Teams: 1, Rooms: 1, History: 1, SkippedHistory: 1, ReactivatedHistory: 1}
	if summary != want {
		t.Fatalf("expected %+v, got %+v", want, summary)
	}

	live, err := store.ListHistory(ctx, persistence.HistoryFilter{})
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(live) != 1 || live[0].ID != "h-1" || live[0].ArchivedDate != nil {
		t.Fatalf("expected h-1 back in live history, got %#v", live)
	}
	all, err := store.ListHistory(ctx, persistence.HistoryFilter{IncludeArchived: true})
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected the archived copy to be reused, got %d entries", len(all))
	}
}
