package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StatsService serves statistics derived from rooms, teams and history.
type StatsService struct {
	rooms       RoomRepository
	teams       TeamRepository
	history     HistoryRepository
	daily       DailyStatsRepository
	minDuration time.Duration
	logger      *slog.Logger
}

// NewStatsService constructs a stats service with the default visit threshold.
func NewStatsService(rooms RoomRepository, teams TeamRepository, history HistoryRepository, daily DailyStatsRepository) *StatsService {
	return NewStatsServiceWithLogger(rooms, teams, history, daily, DefaultMinVisitDuration, nil)
}

// NewStatsServiceWithLogger constructs a stats service with a specified logger.
func NewStatsServiceWithLogger(rooms RoomRepository, teams TeamRepository, history HistoryRepository, daily DailyStatsRepository, minDuration time.Duration, logger *slog.Logger) *StatsService {
	if minDuration <= 0 {
		minDuration = DefaultMinVisitDuration
	}
	return &StatsService{
		rooms:       rooms,
		teams:       teams,
		history:     history,
		daily:       daily,
		minDuration: minDuration,
		logger:      defaultLogger(logger),
	}
}

func (s *StatsService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "StatsService", operation, attrs...)
}

// RoomStats computes the visit statistics of a room from its live history.
func (s *StatsService) RoomStats(ctx context.Context, roomID string) (stats RoomStats, err error) {
	if s == nil {
		err = fmt.Errorf("StatsService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RoomStats", "room_id", roomID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to compute room stats", err)
		}
	}()

	if _, err = s.rooms.GetRoom(ctx, roomID); err != nil {
		err = mapStoreError(err, "room")
		return
	}

	var entries []HistoryEntry
	entries, err = s.roomHistory(ctx, roomID)
	if err != nil {
		return
	}
	stats = ComputeRoomStats(roomID, entries, s.minDuration)
	return
}

// RoomDetail returns a room with its statistics and valid visits.
func (s *StatsService) RoomDetail(ctx context.Context, roomID string) (detail RoomDetail, err error) {
	if s == nil {
		err = fmt.Errorf("StatsService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RoomDetail", "room_id", roomID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to load room detail", err)
		}
	}()

	detail.Room, err = s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		err = mapStoreError(err, "room")
		return
	}

	var entries []HistoryEntry
	entries, err = s.roomHistory(ctx, roomID)
	if err != nil {
		return
	}
	detail.Stats = ComputeRoomStats(roomID, entries, s.minDuration)
	detail.Visits = ComputeVisits(entries, s.minDuration)
	return
}

// CurrentStats aggregates the live room states.
func (s *StatsService) CurrentStats(ctx context.Context) (stats CurrentStats, err error) {
	if s == nil {
		err = fmt.Errorf("StatsService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CurrentStats")
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to compute current stats", err)
		}
	}()

	var rooms []Room
	rooms, err = s.rooms.ListRooms(ctx)
	if err != nil {
		return
	}
	var teams []Team
	teams, err = s.teams.ListTeams(ctx, false)
	if err != nil {
		return
	}
	stats = ComputeCurrentStats(rooms, len(teams))
	return
}

// DailyStats returns the archived rollup for the calendar day containing day.
func (s *StatsService) DailyStats(ctx context.Context, day time.Time) (stats DailyStats, err error) {
	if s == nil {
		err = fmt.Errorf("StatsService is nil")
		return
	}

	dayStart := startOfDay(day)
	logger := s.loggerWith(ctx, "DailyStats", "date", dayStart.Format(time.DateOnly))
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to load daily stats", err)
		}
	}()

	stats, err = s.daily.GetDailyStats(ctx, dayStart)
	if err != nil {
		err = mapStoreError(err, "daily stats")
	}
	return
}

// ListDailyStats returns every archived rollup, newest first.
func (s *StatsService) ListDailyStats(ctx context.Context) (stats []DailyStats, err error) {
	if s == nil {
		err = fmt.Errorf("StatsService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListDailyStats")
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to list daily stats", err)
		}
	}()

	stats, err = s.daily.ListDailyStats(ctx)
	return
}

func (s *StatsService) roomHistory(ctx context.Context, roomID string) ([]HistoryEntry, error) {
	return s.history.ListHistory(ctx, HistoryFilter{
		RoomID:  roomID,
		Actions: []HistoryAction{ActionOccupy, ActionFree},
	})
}

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
