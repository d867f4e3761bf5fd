package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/room-tracker/internal/application"
	"github.com/example/room-tracker/internal/testfixtures"
)

func TestSweeper_ExpiresReservation(t *testing.T) {
	ctx := context.Background()
	factory := testfixtures.NewServiceFactory()
	svc := factory.OccupancyService(0)
	sweeper := factory.Sweeper(0, 0)

	team := factory.AddTeam()
	room := factory.AddRoom()
	if _, err := svc.Reserve(ctx, room.ID, team.ID); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	published := factory.Publisher.Count()

	factory.Clock.Advance(4 * time.Minute)
	result, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.Changed() {
		t.Fatalf("expected nothing released before the deadline, got %#v", result)
	}
	if factory.Publisher.Count() != published {
		t.Fatalf("expected no publish when nothing changed")
	}

	factory.Clock.Advance(time.Minute)
	result, err = sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.ExpiredReservations != 1 || result.ExpiredOccupations != 0 {
		t.Fatalf("expected one expired reservation, got %#v", result)
	}
	if factory.Publisher.Count() != published+1 {
		t.Fatalf("expected exactly one publish, got %d", factory.Publisher.Count()-published)
	}

	stored, err := factory.Store.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if stored.Status != application.RoomStatusFree || stored.CurrentTeamID != nil {
		t.Fatalf("expected FREE room, got %#v", stored)
	}

	entries := historyFor(t, factory.Store, room.ID)
	if entries[0].Action != application.ActionCancelReservation || entries[0].TeamID != team.ID {
		t.Fatalf("expected CANCEL_RESERVATION for %s, got %#v", team.ID, entries[0])
	}
	assertRoomInvariants(t, factory.Store)
}

func TestSweeper_ExpiresLongOccupation(t *testing.T) {
	ctx := context.Background()
	factory := testfixtures.NewServiceFactory()
	svc := factory.OccupancyService(0)
	sweeper := factory.Sweeper(0, 0)

	team := factory.AddTeam()
	room := factory.AddRoom()
	if _, err := svc.Occupy(ctx, room.ID, team.ID); err != nil {
		t.Fatalf("Occupy failed: %v", err)
	}

	factory.Clock.Advance(59 * time.Minute)
	if result, _ := sweeper.Sweep(ctx); result.Changed() {
		t.Fatalf("expected occupation to survive 59 minutes, got %#v", result)
	}

	factory.Clock.Advance(2 * time.Minute)
	result, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.ExpiredOccupations != 1 {
		t.Fatalf("expected one expired occupation, got %#v", result)
	}

	entries := historyFor(t, factory.Store, room.ID)
	if entries[0].Action != application.ActionFree {
		t.Fatalf("expected FREE entry, got %s", entries[0].Action)
	}

	again, err := sweeper.Sweep(ctx)
	if err != nil || again.Changed() {
		t.Fatalf("expected idempotent second sweep, got %#v, %v", again, err)
	}
}

func TestSweeper_SkipsRoomsChangedConcurrently(t *testing.T) {
	ctx := context.Background()
	factory := testfixtures.NewServiceFactory()
	svc := factory.OccupancyService(0)
	sweeper := factory.Sweeper(0, 0)

	team := factory.AddTeam()
	room := factory.AddRoom()
	if _, err := svc.Reserve(ctx, room.ID, team.ID); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	factory.Clock.Advance(10 * time.Minute)

	factory.Store.TransitionHook = func(application.RoomTransition) {
		factory.Store.SetRoomState(room.ID, application.RoomStatusFree, nil, nil, nil)
	}
	result, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.Changed() || result.Failures != 0 {
		t.Fatalf("expected silent skip, got %#v", result)
	}
	if entries := historyFor(t, factory.Store, room.ID); len(entries) != 1 {
		t.Fatalf("expected no sweep history, got %#v", entries)
	}
}

func TestSweeper_CountsFailuresAndContinues(t *testing.T) {
	ctx := context.Background()
	factory := testfixtures.NewServiceFactory()
	svc := factory.OccupancyService(0)
	sweeper := factory.Sweeper(0, 0)

	first := factory.AddTeam()
	second := factory.AddTeam()
	broken := factory.AddRoom()
	healthy := factory.AddRoom()
	if _, err := svc.Reserve(ctx, broken.ID, first.ID); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if _, err := svc.Reserve(ctx, healthy.ID, second.ID); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	factory.Clock.Advance(10 * time.Minute)

	factory.Store.FailTransitions = map[string]error{broken.ID: errors.New("disk full")}
	result, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.Failures != 1 || result.ExpiredReservations != 1 {
		t.Fatalf("expected one failure and one release, got %#v", result)
	}
}

func TestSweeper_RunStopsWithContext(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	svc := factory.OccupancyService(0)
	sweeper := factory.Sweeper(0, 10*time.Millisecond)

	team := factory.AddTeam()
	room := factory.AddRoom()
	if _, err := svc.Reserve(context.Background(), room.ID, team.ID); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	factory.Clock.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		stored, err := factory.Store.GetRoom(context.Background(), room.ID)
		if err != nil {
			t.Fatalf("GetRoom failed: %v", err)
		}
		if stored.Status == application.RoomStatusFree {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected Run to release the reservation")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after cancellation")
	}
}
