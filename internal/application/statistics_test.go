package application_test

import (
	"testing"
	"time"

	"github.com/example/room-tracker/internal/application"
	"github.com/example/room-tracker/internal/testfixtures"
)

func TestComputeRoomStats(t *testing.T) {
	t0 := testfixtures.ReferenceTime()

	t.Run("short visit is excluded but still last occupied", func(t *testing.T) {
		entries := testfixtures.Visit("room-1", "team-1", t0, 2*time.Minute)
		stats := application.ComputeRoomStats("room-1", entries, 0)
		if stats.TotalVisits != 0 {
			t.Fatalf("expected no valid visits, got %d", stats.TotalVisits)
		}
		if stats.AverageOccupationMinutes != nil {
			t.Fatalf("expected nil average, got %d", *stats.AverageOccupationMinutes)
		}
		if stats.LastOccupiedAt == nil || !stats.LastOccupiedAt.Equal(t0) {
			t.Fatalf("expected lastOccupiedAt %v, got %v", t0, stats.LastOccupiedAt)
		}
	})

	t.Run("ten minute visit counts", func(t *testing.T) {
		entries := testfixtures.Visit("room-1", "team-1", t0, 10*time.Minute)
		stats := application.ComputeRoomStats("room-1", entries, 0)
		if stats.TotalVisits != 1 {
			t.Fatalf("expected one visit, got %d", stats.TotalVisits)
		}
		if stats.AverageOccupationMinutes == nil || *stats.AverageOccupationMinutes != 10 {
			t.Fatalf("expected average 10, got %v", stats.AverageOccupationMinutes)
		}
	})

	t.Run("average is rounded", func(t *testing.T) {
		var entries []application.HistoryEntry
		entries = append(entries, testfixtures.Visit("room-1", "team-1", t0, 10*time.Minute)...)
		entries = append(entries, testfixtures.Visit("room-1", "team-2", t0.Add(time.Hour), 15*time.Minute)...)
		stats := application.ComputeRoomStats("room-1", entries, 0)
		if stats.TotalVisits != 2 || stats.AverageOccupationMinutes == nil || *stats.AverageOccupationMinutes != 13 {
			t.Fatalf("expected 2 visits averaging 13 minutes, got %#v", stats)
		}
		if !stats.LastOccupiedAt.Equal(t0.Add(time.Hour)) {
			t.Fatalf("expected newest OCCUPY as last occupied, got %v", stats.LastOccupiedAt)
		}
	})

	t.Run("free by another team does not close the visit", func(t *testing.T) {
		entries := []application.HistoryEntry{
			testfixtures.NewHistoryFixture("room-1", "team-1", application.ActionOccupy, t0).Application(),
			testfixtures.NewHistoryFixture("room-1", "team-2", application.ActionFree, t0.Add(20*time.Minute)).Application(),
		}
		stats := application.ComputeRoomStats("room-1", entries, 0)
		if stats.TotalVisits != 0 {
			t.Fatalf("expected unmatched OCCUPY to be dropped, got %d", stats.TotalVisits)
		}
	})

	t.Run("configurable threshold", func(t *testing.T) {
		entries := testfixtures.Visit("room-1", "team-1", t0, 2*time.Minute)
		stats := application.ComputeRoomStats("room-1", entries, time.Minute)
		if stats.TotalVisits != 1 {
			t.Fatalf("expected visit above a one minute threshold, got %d", stats.TotalVisits)
		}
	})
}

func TestComputeVisits(t *testing.T) {
	t0 := testfixtures.ReferenceTime()

	var entries []application.HistoryEntry
	entries = append(entries, testfixtures.Visit("room-1", "team-1", t0, 5*time.Minute)...)
	entries = append(entries, testfixtures.Visit("room-1", "team-2", t0.Add(time.Hour), time.Minute)...)
	entries = append(entries, testfixtures.Visit("room-1", "team-3", t0.Add(2*time.Hour), 30*time.Minute)...)

	visits := application.ComputeVisits(entries, 0)
	if len(visits) != 2 {
		t.Fatalf("expected two valid visits, got %#v", visits)
	}
	if visits[0].TeamID != "team-3" || visits[0].DurationMinutes != 30 {
		t.Fatalf("expected newest visit first, got %#v", visits[0])
	}
	if visits[1].TeamID != "team-1" || !visits[1].End.Equal(t0.Add(5*time.Minute)) {
		t.Fatalf("unexpected second visit %#v", visits[1])
	}
}

func TestSummarizeDay(t *testing.T) {
	day := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	at := func(minutes int) time.Time { return day.Add(time.Duration(minutes) * time.Minute) }

	entries := []application.HistoryEntry{
		testfixtures.NewHistoryFixture("room-a", "team-1", application.ActionOccupy, at(1)).Application(),
		testfixtures.NewHistoryFixture("room-b", "team-2", application.ActionReserve, at(2)).Application(),
		testfixtures.NewHistoryFixture("room-a", "team-1", application.ActionFree, at(3)).Application(),
		testfixtures.NewHistoryFixture("room-b", "team-2", application.ActionCancelReservation, at(4)).Application(),
		testfixtures.NewHistoryFixture("room-b", "team-1", application.ActionOccupy, at(5)).Application(),
	}

	stats := application.SummarizeDay(day, entries)
	if stats.TotalOccupations != 2 || stats.TotalReservations != 1 {
		t.Fatalf("unexpected totals %#v", stats)
	}
	if stats.TeamActivity["team-1"] != 3 || stats.TeamActivity["team-2"] != 2 {
		t.Fatalf("unexpected team activity %v", stats.TeamActivity)
	}
	if stats.MostPopularRoomID == nil || *stats.MostPopularRoomID != "room-b" {
		t.Fatalf("expected room-b most popular, got %v", stats.MostPopularRoomID)
	}

	t.Run("tie goes to the room reaching the count first", func(t *testing.T) {
		tied := entries[:4]
		stats := application.SummarizeDay(day, tied)
		if stats.MostPopularRoomID == nil || *stats.MostPopularRoomID != "room-a" {
			t.Fatalf("expected room-a on tie, got %v", stats.MostPopularRoomID)
		}
	})

	t.Run("empty day", func(t *testing.T) {
		stats := application.SummarizeDay(day, nil)
		if stats.MostPopularRoomID != nil || stats.TotalOccupations != 0 || len(stats.TeamActivity) != 0 {
			t.Fatalf("expected empty rollup, got %#v", stats)
		}
	})
}

func TestComputeCurrentStats(t *testing.T) {
	rooms := []application.Room{
		{ID: "1", Status: application.RoomStatusFree},
		{ID: "2", Status: application.RoomStatusOccupied},
		{ID: "3", Status: application.RoomStatusReserved},
		{ID: "4", Status: application.RoomStatusOffline},
		{ID: "5", Status: application.RoomStatusFree},
	}
	stats := application.ComputeCurrentStats(rooms, 3)
	want := application.CurrentStats{TotalRooms: 5, FreeRooms: 2, OccupiedRooms: 1, ReservedRooms: 1, OfflineRooms: 1, ActiveTeams: 3}
	if stats != want {
		t.Fatalf("expected %#v, got %#v", want, stats)
	}
}
