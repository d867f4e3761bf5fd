package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/room-tracker/internal/metrics"
	"github.com/example/room-tracker/internal/persistence"
)

const (
	// DefaultMaxOccupation is how long a room may stay occupied before the sweep frees it.
	DefaultMaxOccupation = 60 * time.Minute
	// DefaultSweepInterval is the period of the background sweep.
	DefaultSweepInterval = 60 * time.Second
)

// Sweeper releases expired reservations and stale occupations. Sweep may run
// concurrently with itself and with the state machine.
type Sweeper struct {
	rooms         RoomRepository
	broadcaster   roomBroadcaster
	idGenerator   func() string
	now           func() time.Time
	maxOccupation time.Duration
	interval      time.Duration
	logger        *slog.Logger
}

// NewSweeper constructs a sweeper with default limits.
func NewSweeper(rooms RoomRepository, publisher RoomPublisher, idGenerator func() string, now func() time.Time) *Sweeper {
	return NewSweeperWithLogger(rooms, publisher, idGenerator, now, DefaultMaxOccupation, DefaultSweepInterval, nil)
}

// NewSweeperWithLogger constructs a sweeper with a specified logger and limits.
func NewSweeperWithLogger(rooms RoomRepository, publisher RoomPublisher, idGenerator func() string, now func() time.Time, maxOccupation, interval time.Duration, logger *slog.Logger) *Sweeper {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if maxOccupation <= 0 {
		maxOccupation = DefaultMaxOccupation
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		rooms:         rooms,
		broadcaster:   roomBroadcaster{rooms: rooms, publisher: publisher},
		idGenerator:   idGenerator,
		now:           now,
		maxOccupation: maxOccupation,
		interval:      interval,
		logger:        defaultLogger(logger),
	}
}

func (s *Sweeper) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "Sweeper", operation, attrs...)
}

// Sweep performs one pass over reserved and occupied rooms and publishes the
// room list once when anything was released. Only listing failures are
// returned; per-room failures are logged and counted.
func (s *Sweeper) Sweep(ctx context.Context) (result SweepResult, err error) {
	if s == nil {
		err = fmt.Errorf("Sweeper is nil")
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Sweep")
	started := time.Now()
	defer func() {
		metrics.SweepRunsTotal.Inc()
		metrics.SweepDuration.Observe(time.Since(started).Seconds())
		metrics.SweepReleasedTotal.WithLabelValues("reservation").Add(float64(result.ExpiredReservations))
		metrics.SweepReleasedTotal.WithLabelValues("occupation").Add(float64(result.ExpiredOccupations))
		metrics.SweepFailuresTotal.Add(float64(result.Failures))
		if err != nil {
			logFailure(ctx, logger, "sweep failed", err)
			return
		}
		if result.Changed() || result.Failures > 0 {
			logger.InfoContext(ctx, "sweep released rooms",
				"expired_reservations", result.ExpiredReservations,
				"expired_occupations", result.ExpiredOccupations,
				"failures", result.Failures,
			)
		}
	}()

	now := s.now().UTC()

	var reserved []Room
	reserved, err = s.rooms.ListRoomsByStatus(ctx, RoomStatusReserved)
	if err != nil {
		err = fmt.Errorf("list reserved rooms: %w", err)
		return
	}
	for _, room := range reserved {
		if room.ReservedUntil == nil || room.ReservedUntil.After(now) {
			continue
		}
		released, rerr := s.expire(ctx, room, now, ActionCancelReservation)
		if rerr != nil {
			result.Failures++
			logger.WarnContext(ctx, "failed to expire reservation", "room_id", room.ID, "error", rerr)
			continue
		}
		if released {
			result.ExpiredReservations++
		}
	}

	var occupied []Room
	occupied, err = s.rooms.ListRoomsByStatus(ctx, RoomStatusOccupied)
	if err != nil {
		err = fmt.Errorf("list occupied rooms: %w", err)
		return
	}
	cutoff := now.Add(-s.maxOccupation)
	for _, room := range occupied {
		if room.OccupiedSince == nil || room.OccupiedSince.After(cutoff) {
			continue
		}
		released, rerr := s.expire(ctx, room, now, ActionFree)
		if rerr != nil {
			result.Failures++
			logger.WarnContext(ctx, "failed to expire occupation", "room_id", room.ID, "error", rerr)
			continue
		}
		if released {
			result.ExpiredOccupations++
		}
	}

	if result.Changed() {
		s.broadcaster.broadcast(ctx, logger)
	}
	return
}

// expire frees room if it still matches the scanned pre-image. It reports
// false without error when the room changed in the meantime.
func (s *Sweeper) expire(ctx context.Context, room Room, now time.Time, action HistoryAction) (bool, error) {
	tr := RoomTransition{
		RoomID:         room.ID,
		ExpectedStatus: room.Status,
		ExpectedTeamID: cloneString(room.CurrentTeamID),
		Status:         RoomStatusFree,
		UpdatedAt:      now,
	}
	if room.Status == RoomStatusReserved {
		tr.ReservedUntilAtOrBefore = cloneTime(room.ReservedUntil)
	} else {
		tr.OccupiedSinceAtOrBefore = cloneTime(room.OccupiedSince)
	}
	if room.CurrentTeamID != nil {
		previous := room.Status
		tr.History = &HistoryEntry{
			ID:             s.idGenerator(),
			RoomID:         room.ID,
			TeamID:         *room.CurrentTeamID,
			Action:         action,
			Timestamp:      now,
			PreviousStatus: &previous,
			NewStatus:      RoomStatusFree,
		}
	}

	_, err := s.rooms.ApplyTransition(ctx, tr)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, persistence.ErrPreconditionFailed), errors.Is(err, persistence.ErrNotFound):
		return false, nil
	}
	return false, err
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("Sweeper is nil")
	}

	logger := s.loggerWith(ctx, "Run", "interval", s.interval.String())
	logger.InfoContext(ctx, "sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		// Errors are logged inside Sweep; the loop keeps going.
		_, _ = s.Sweep(ctx)

		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}
