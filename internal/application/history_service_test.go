package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/room-tracker/internal/application"
)

type historyRepoStub struct {
	filter  application.HistoryFilter
	entries []application.HistoryEntry
	err     error
}

func (h *historyRepoStub) ListHistory(ctx context.Context, filter application.HistoryFilter) ([]application.HistoryEntry, error) {
	h.filter = filter
	if h.err != nil {
		return nil, h.err
	}
	return h.entries, nil
}

func TestHistoryService_ListHistory(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{name: "zero uses default", limit: 0, wantLimit: 100},
		{name: "explicit limit is kept", limit: 20, wantLimit: 20},
		{name: "large limit is capped", limit: 5000, wantLimit: 1000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &historyRepoStub{}
			svc := application.NewHistoryService(repo)
			if _, err := svc.ListHistory(ctx, application.HistoryFilter{Limit: tc.limit}); err != nil {
				t.Fatalf("ListHistory failed: %v", err)
			}
			if repo.filter.Limit != tc.wantLimit {
				t.Fatalf("expected limit %d, got %d", tc.wantLimit, repo.filter.Limit)
			}
		})
	}

	t.Run("rejects unknown actions and negative limits", func(t *testing.T) {
		repo := &historyRepoStub{}
		svc := application.NewHistoryService(repo)
		_, err := svc.ListHistory(ctx, application.HistoryFilter{
			Actions: []application.HistoryAction{"TELEPORT"},
			Limit:   -1,
		})
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["action"]; !ok {
			t.Fatalf("expected action error, got %v", vErr.FieldErrors)
		}
		if _, ok := vErr.FieldErrors["limit"]; !ok {
			t.Fatalf("expected limit error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("passes filters through", func(t *testing.T) {
		repo := &historyRepoStub{}
		svc := application.NewHistoryService(repo)
		filter := application.HistoryFilter{
			RoomID:  "room-1",
			TeamID:  "team-1",
			Actions: []application.HistoryAction{application.ActionOccupy},
		}
		if _, err := svc.ListHistory(ctx, filter); err != nil {
			t.Fatalf("ListHistory failed: %v", err)
		}
		if repo.filter.RoomID != "room-1" || repo.filter.TeamID != "team-1" || len(repo.filter.Actions) != 1 {
			t.Fatalf("unexpected filter %#v", repo.filter)
		}
	})
}
