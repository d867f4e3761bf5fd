package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/room-tracker/internal/application"
	"github.com/example/room-tracker/internal/config"
	"github.com/example/room-tracker/internal/persistence"
	"github.com/example/room-tracker/internal/testfixtures"
)

func TestRoomRepositoryAdapter_ApplyTransition(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	rooms := newRoomRepositoryAdapter(harness.Rooms)
	teams := newTeamRepositoryAdapter(harness.Teams)
	history := newHistoryRepositoryAdapter(harness.History)

	team, err := teams.CreateTeam(ctx, testfixtures.NewTeamFixture(testfixtures.WithTeamID("team-a")).Application())
	if err != nil {
		t.Fatalf("CreateTeam failed: %v", err)
	}
	room, err := rooms.CreateRoom(ctx, testfixtures.NewRoomFixture(testfixtures.WithRoomID("lab-1")).Application())
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if room.Status != application.RoomStatusFree {
		t.Fatalf("expected FREE room, got %s", room.Status)
	}

	at := testfixtures.ReferenceTime()
	free := application.RoomStatusFree
	occupied, err := rooms.ApplyTransition(ctx, application.RoomTransition{
		RoomID:         room.ID,
		ExpectedStatus: application.RoomStatusFree,
		Status:         application.RoomStatusOccupied,
		TeamID:         &team.ID,
		OccupiedSince:  &at,
		UpdatedAt:      at,
		ExclusiveSlot:  true,
		History: &application.HistoryEntry{
			ID:             "h-1",
			RoomID:         room.ID,
			TeamID:         team.ID,
			Action:         application.ActionOccupy,
			Timestamp:      at,
			PreviousStatus: &free,
			NewStatus:      application.RoomStatusOccupied,
		},
	})
	if err != nil {
		t.Fatalf("ApplyTransition failed: %v", err)
	}
	if occupied.CurrentTeam == nil || occupied.CurrentTeam.ID != team.ID || !occupied.OccupiedSince.Equal(at) {
		t.Fatalf("unexpected room after transition %#v", occupied)
	}

	entries, err := history.ListHistory(ctx, application.HistoryFilter{RoomID: room.ID, Actions: []application.HistoryAction{application.ActionOccupy}})
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(entries) != 1 || entries[0].PreviousStatus == nil || *entries[0].PreviousStatus != application.RoomStatusFree {
		t.Fatalf("unexpected history %#v", entries)
	}

	_, err = rooms.ApplyTransition(ctx, application.RoomTransition{
		RoomID:         room.ID,
		ExpectedStatus: application.RoomStatusFree,
		Status:         application.RoomStatusOffline,
		UpdatedAt:      at,
	})
	if !errors.Is(err, persistence.ErrPreconditionFailed) {
		t.Fatalf("expected persistence error to pass through, got %v", err)
	}
}

func TestArchiveRepositoryAdapter_Summarize(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	factory := testfixtures.NewServiceFactory(testfixtures.WithClock(testfixtures.NewClock(testfixtures.ReferenceTime())))

	teams := newTeamRepositoryAdapter(harness.Teams)
	rooms := newRoomRepositoryAdapter(harness.Rooms)
	team, _ := teams.CreateTeam(ctx, testfixtures.NewTeamFixture().Application())
	room, _ := rooms.CreateRoom(ctx, testfixtures.NewRoomFixture().Application())

	occupancy := application.NewOccupancyService(rooms, teams, nil, factory.IDGenerator.NextFunc(), factory.Clock.NowFunc())
	if _, err := occupancy.Occupy(ctx, room.ID, team.ID); err != nil {
		t.Fatalf("Occupy failed: %v", err)
	}

	var summarized []application.HistoryEntry
	archive := newArchiveRepositoryAdapter(harness.Archive)
	summary, err := archive.ArchiveAndReset(ctx, application.ArchiveRequest{
		ArchivedAt: factory.Clock.Now(),
		DayStart:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Summarize: func(entries []application.HistoryEntry) application.DailyStats {
			summarized = entries
			return application.SummarizeDay(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), entries)
		},
	})
	if err != nil {
		t.Fatalf("ArchiveAndReset failed: %v", err)
	}
	if summary.ArchivedHistory != 1 || len(summarized) != 1 || summary.Stats.TotalOccupations != 1 {
		t.Fatalf("unexpected archive summary %#v (entries %d)", summary, len(summarized))
	}

	stored, err := newDailyStatsRepositoryAdapter(harness.Daily).GetDailyStats(ctx, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetDailyStats failed: %v", err)
	}
	if stored.MostPopularRoomID == nil || *stored.MostPopularRoomID != room.ID {
		t.Fatalf("unexpected stored stats %#v", stored)
	}
}

func TestNewApp_EndToEnd(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hash, err := application.CreateBcryptHash("secret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("CreateBcryptHash failed: %v", err)
	}
	cfg := config.Default()
	cfg.AdminPasswordHash = hash

	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	app := newApp(harness.Store, cfg, logger, clock.NowFunc())
	defer app.hub.Close()

	created, err := app.rooms.SeedRooms(context.Background(), application.DefaultRoomSeeds())
	if err != nil || created != 10 {
		t.Fatalf("SeedRooms: created %d, err %v", created, err)
	}

	sub, err := app.hub.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		app.handler.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/api/teams", `{"name":"Team A","color":"#FF0000"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("team signup failed: %d %s", rec.Code, rec.Body.String())
	}
	var team struct {
		Team struct {
			ID string `json:"id"`
		} `json:"team"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &team)

	rec = do(http.MethodGet, "/api/rooms", "")
	var list struct {
		Rooms []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"rooms"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Rooms) != 10 || list.Rooms[0].Name != "Room 1" || list.Rooms[9].Name != "Room 10" {
		t.Fatalf("unexpected seeded rooms %#v", list.Rooms)
	}

	rec = do(http.MethodPost, "/api/rooms/"+list.Rooms[0].ID+"/occupy", `{"team_id":"`+team.Team.ID+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("occupy failed: %d %s", rec.Code, rec.Body.String())
	}

	select {
	case snapshot := <-sub.C():
		if len(snapshot) != 10 || snapshot[0].Status != application.RoomStatusOccupied {
			t.Fatalf("unexpected broadcast %#v", snapshot[0])
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a broadcast after occupy")
	}

	rec = do(http.MethodGet, "/api/history?room_id="+list.Rooms[0].ID, "")
	var history struct {
		History []struct {
			ID string `json:"id"`
		} `json:"history"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &history)
	if len(history.History) != 1 {
		t.Fatalf("expected one history entry, got %s", rec.Body.String())
	}
	if _, err := ulid.ParseStrict(history.History[0].ID); err != nil {
		t.Fatalf("expected ULID history id, got %q: %v", history.History[0].ID, err)
	}
}

func TestOriginChecker(t *testing.T) {
	if originChecker(nil) != nil {
		t.Fatalf("expected nil checker without origins")
	}

	check := originChecker([]string{"https://board.example"})
	req := httptest.NewRequest(http.MethodGet, "/api/rooms/subscribe", nil)
	req.Header.Set("Origin", "https://board.example")
	if !check(req) {
		t.Fatalf("expected configured origin to be allowed")
	}
	req.Header.Set("Origin", "https://evil.example")
	if check(req) {
		t.Fatalf("expected unknown origin to be rejected")
	}
}
