package testfixtures

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/room-tracker/internal/application"
	"github.com/example/room-tracker/internal/persistence"
)

func TestServiceFactoryTeamService(t *testing.T) {
	factory := NewServiceFactory()
	svc := factory.TeamService()

	team, err := svc.CreateTeam(context.Background(), application.TeamInput{Name: "Red", Color: "#ff0000"})
	if err != nil {
		t.Fatalf("CreateTeam returned error: %v", err)
	}

	if team.ID != "id-0001" {
		t.Fatalf("expected generated ID id-1, got %q", team.ID)
	}
	if !team.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), team.CreatedAt)
	}
	if _, err := factory.Store.GetTeam(context.Background(), team.ID); err != nil {
		t.Fatalf("expected team in store, got %v", err)
	}
}

func TestMemoryStoreApplyTransition(t *testing.T) {
	ctx := context.Background()
	factory := NewServiceFactory()
	team := factory.AddTeam()
	room := factory.AddRoom()
	now := ReferenceTime()

	occupy := application.RoomTransition{
		RoomID:         room.ID,
		ExpectedStatus: application.RoomStatusFree,
		Status:         application.RoomStatusOccupied,
		TeamID:         &team.ID,
		OccupiedSince:  &now,
		UpdatedAt:      now,
		ExclusiveSlot:  true,
	}

	got, err := factory.Store.ApplyTransition(ctx, occupy)
	if err != nil {
		t.Fatalf("ApplyTransition failed: %v", err)
	}
	if got.CurrentTeam == nil || got.CurrentTeam.ID != team.ID {
		t.Fatalf("expected holder to be populated, got %#v", got.CurrentTeam)
	}

	if _, err := factory.Store.ApplyTransition(ctx, occupy); !errors.Is(err, persistence.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}

	other := factory.AddRoom()
	occupy.RoomID = other.ID
	if _, err := factory.Store.ApplyTransition(ctx, occupy); !errors.Is(err, persistence.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestVisitFixture(t *testing.T) {
	start := ReferenceTime()
	entries := Visit("room-1", "team-1", start, 10*time.Minute)
	if len(entries) != 2 || entries[0].Action != application.ActionOccupy || entries[1].Action != application.ActionFree {
		t.Fatalf("unexpected entries %#v", entries)
	}
	if !entries[1].Timestamp.Equal(start.Add(10 * time.Minute)) {
		t.Fatalf("expected FREE at %v, got %v", start.Add(10*time.Minute), entries[1].Timestamp)
	}
}
