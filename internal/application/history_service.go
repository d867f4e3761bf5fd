package application

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// HistoryService lists the transition ledger.
type HistoryService struct {
	history HistoryRepository
	logger  *slog.Logger
}

// NewHistoryService constructs a history service.
func NewHistoryService(history HistoryRepository) *HistoryService {
	return NewHistoryServiceWithLogger(history, nil)
}

// NewHistoryServiceWithLogger constructs a history service with a specified logger.
func NewHistoryServiceWithLogger(history HistoryRepository, logger *slog.Logger) *HistoryService {
	return &HistoryService{history: history, logger: defaultLogger(logger)}
}

// ListHistory returns live entries matching filter, newest first. A zero limit
// means the default page size.
func (s *HistoryService) ListHistory(ctx context.Context, filter HistoryFilter) (entries []HistoryEntry, err error) {
	if s == nil {
		err = fmt.Errorf("HistoryService is nil")
		return
	}

	logger := serviceLogger(ctx, s.logger, "HistoryService", "ListHistory",
		"room_id", filter.RoomID,
		"team_id", filter.TeamID,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to list history", err)
		}
	}()

	vErr := &ValidationError{}
	for _, action := range filter.Actions {
		if !action.Valid() {
			vErr.add("action", fmt.Sprintf("unknown action %q", action))
		}
	}
	switch {
	case filter.Limit < 0:
		vErr.add("limit", "limit must not be negative")
	case filter.Limit == 0:
		filter.Limit = defaultHistoryLimit
	case filter.Limit > maxHistoryLimit:
		filter.Limit = maxHistoryLimit
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	entries, err = s.history.ListHistory(ctx, filter)
	return
}
