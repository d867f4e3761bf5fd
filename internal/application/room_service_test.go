package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/example/room-tracker/internal/application"
	"github.com/example/room-tracker/internal/testfixtures"
)

func TestRoomService_CreateRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("requires administrator privileges", func(t *testing.T) {
		svc := testfixtures.NewServiceFactory().RoomService()
		_, err := svc.CreateRoom(ctx, application.Principal{}, application.RoomInput{Name: "Lab"})
		if !errors.Is(err, application.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("validates required attributes", func(t *testing.T) {
		svc := testfixtures.NewServiceFactory().RoomService()
		_, err := svc.CreateRoom(ctx, admin, application.RoomInput{Name: "  ", Description: strings.Repeat("x", 501)})

		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["name"]; !ok {
			t.Fatalf("expected name validation error, got %v", vErr.FieldErrors)
		}
		if _, ok := vErr.FieldErrors["description"]; !ok {
			t.Fatalf("expected description validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("creates a free room and publishes", func(t *testing.T) {
		factory := testfixtures.NewServiceFactory()
		room, err := factory.RoomService().CreateRoom(ctx, admin, application.RoomInput{Name: " Lab 1 ", Description: "ground floor"})
		if err != nil {
			t.Fatalf("CreateRoom failed: %v", err)
		}
		if room.ID != "id-0001" || room.Name != "Lab 1" || room.Status != application.RoomStatusFree {
			t.Fatalf("unexpected room %#v", room)
		}
		if factory.Publisher.Count() != 1 {
			t.Fatalf("expected one publish, got %d", factory.Publisher.Count())
		}
	})
}

func TestRoomService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	factory := testfixtures.NewServiceFactory()
	svc := factory.RoomService()
	room := factory.AddRoom()
	team := factory.AddTeam()

	updated, err := svc.UpdateRoom(ctx, admin, room.ID, application.RoomInput{Name: "Renamed", Description: "new"})
	if err != nil {
		t.Fatalf("UpdateRoom failed: %v", err)
	}
	if updated.Name != "Renamed" || updated.Description != "new" {
		t.Fatalf("unexpected room %#v", updated)
	}

	if _, err := svc.UpdateRoom(ctx, admin, "missing", application.RoomInput{Name: "x"}); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	factory.Store.AppendHistory(testfixtures.Visit(room.ID, team.ID, testfixtures.ReferenceTime(), 0)...)
	if err := svc.DeleteRoom(ctx, admin, room.ID); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
	if _, err := svc.GetRoom(ctx, room.ID); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if entries := historyFor(t, factory.Store, room.ID); len(entries) != 0 {
		t.Fatalf("expected history to cascade, got %#v", entries)
	}
	if err := svc.DeleteRoom(ctx, application.Principal{}, room.ID); !errors.Is(err, application.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRoomService_SeedRooms(t *testing.T) {
	ctx := context.Background()
	factory := testfixtures.NewServiceFactory()
	svc := factory.RoomService()

	created, err := svc.SeedRooms(ctx, application.DefaultRoomSeeds())
	if err != nil {
		t.Fatalf("SeedRooms failed: %v", err)
	}
	if created != 10 {
		t.Fatalf("expected 10 rooms, got %d", created)
	}

	created, err = svc.SeedRooms(ctx, application.DefaultRoomSeeds())
	if err != nil || created != 0 {
		t.Fatalf("expected seeding to be skipped, got %d, %v", created, err)
	}

	rooms, err := svc.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if rooms[0].Name != "Room 1" || rooms[1].Name != "Room 2" || rooms[9].Name != "Room 10" {
		t.Fatalf("expected numeric ordering, got %s, %s, %s", rooms[0].Name, rooms[1].Name, rooms[9].Name)
	}
}

func TestSortRooms(t *testing.T) {
	rooms := []application.Room{
		{ID: "a", Name: "Lobby"},
		{ID: "b", Name: "Room 10"},
		{ID: "c", Name: "Room 2"},
		{ID: "d", Name: "annex"},
		{ID: "e", Name: "Lab 2"},
	}
	application.SortRooms(rooms)

	var got []string
	for _, room := range rooms {
		got = append(got, room.ID)
	}
	if strings.Join(got, ",") != "e,c,b,d,a" {
		t.Fatalf("unexpected order %v", got)
	}
}
