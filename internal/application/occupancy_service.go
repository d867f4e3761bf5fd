package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-tracker/internal/metrics"
	"github.com/example/room-tracker/internal/persistence"
)

// DefaultReservationWindow is how long a reservation holds a room.
const DefaultReservationWindow = 5 * time.Minute

// OccupancyService is the room state machine. Every transition is a single
// conditional store update followed by a room list broadcast.
type OccupancyService struct {
	rooms             RoomRepository
	teams             TeamRepository
	broadcaster       roomBroadcaster
	idGenerator       func() string
	now               func() time.Time
	reservationWindow time.Duration
	logger            *slog.Logger
}

// NewOccupancyService constructs the state machine with the default reservation window.
func NewOccupancyService(rooms RoomRepository, teams TeamRepository, publisher RoomPublisher, idGenerator func() string, now func() time.Time) *OccupancyService {
	return NewOccupancyServiceWithLogger(rooms, teams, publisher, idGenerator, now, DefaultReservationWindow, nil)
}

// NewOccupancyServiceWithLogger constructs the state machine with a specified logger.
func NewOccupancyServiceWithLogger(rooms RoomRepository, teams TeamRepository, publisher RoomPublisher, idGenerator func() string, now func() time.Time, reservationWindow time.Duration, logger *slog.Logger) *OccupancyService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if reservationWindow <= 0 {
		reservationWindow = DefaultReservationWindow
	}
	return &OccupancyService{
		rooms:             rooms,
		teams:             teams,
		broadcaster:       roomBroadcaster{rooms: rooms, publisher: publisher},
		idGenerator:       idGenerator,
		now:               now,
		reservationWindow: reservationWindow,
		logger:            defaultLogger(logger),
	}
}

func (s *OccupancyService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "OccupancyService", operation, attrs...)
}

// Occupy claims a free room for teamID.
func (s *OccupancyService) Occupy(ctx context.Context, roomID, teamID string) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("OccupancyService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Occupy", "room_id", roomID, "team_id", teamID)
	defer s.finish(ctx, logger, "occupy", "room occupied", &err)

	room, err = s.claim(ctx, roomID, teamID, RoomStatusOccupied)
	if err != nil {
		return
	}
	s.broadcaster.broadcast(ctx, logger)
	return
}

// Reserve holds a free room for teamID until the reservation window elapses.
func (s *OccupancyService) Reserve(ctx context.Context, roomID, teamID string) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("OccupancyService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Reserve", "room_id", roomID, "team_id", teamID)
	defer s.finish(ctx, logger, "reserve", "room reserved", &err)

	room, err = s.claim(ctx, roomID, teamID, RoomStatusReserved)
	if err != nil {
		return
	}
	s.broadcaster.broadcast(ctx, logger)
	return
}

// Free releases an occupied or reserved room held by teamID.
func (s *OccupancyService) Free(ctx context.Context, roomID, teamID string) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("OccupancyService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Free", "room_id", roomID, "team_id", teamID)
	defer s.finish(ctx, logger, "free", "room freed", &err)

	room, err = s.release(ctx, roomID, teamID, ActionFree)
	if err != nil {
		return
	}
	s.broadcaster.broadcast(ctx, logger)
	return
}

// CancelReservation releases a reserved room held by teamID.
func (s *OccupancyService) CancelReservation(ctx context.Context, roomID, teamID string) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("OccupancyService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CancelReservation", "room_id", roomID, "team_id", teamID)
	defer s.finish(ctx, logger, "cancel_reservation", "reservation cancelled", &err)

	room, err = s.release(ctx, roomID, teamID, ActionCancelReservation)
	if err != nil {
		return
	}
	s.broadcaster.broadcast(ctx, logger)
	return
}

// AdminSetStatus forces a room into status, bypassing ownership and per-team
// slot rules. A team is required for OCCUPIED and RESERVED.
func (s *OccupancyService) AdminSetStatus(ctx context.Context, principal Principal, roomID string, status RoomStatus, teamID *string) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("OccupancyService is nil")
		return
	}

	logger := s.loggerWith(ctx, "AdminSetStatus",
		"principal_id", principal.ActorID,
		"room_id", roomID,
		"status", string(status),
	)
	defer s.finish(ctx, logger, "admin_set_status", "room status overridden", &err)

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.rooms == nil || s.teams == nil {
		err = fmt.Errorf("repositories not configured")
		return
	}

	teamID = normalizeOptionalString(teamID)
	vErr := &ValidationError{}
	if strings.TrimSpace(roomID) == "" {
		vErr.add("room_id", "room_id is required")
	}
	if !status.Valid() {
		vErr.add("status", "status must be one of FREE, OCCUPIED, RESERVED, OFFLINE")
	} else if status.Held() && teamID == nil {
		vErr.add("team_id", "team_id is required for "+string(status))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var current Room
	current, err = s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		err = mapStoreError(err, "room")
		return
	}
	if teamID != nil {
		if _, err = s.teams.GetTeam(ctx, *teamID); err != nil {
			err = mapStoreError(err, "team")
			return
		}
	}

	now := s.now().UTC()
	tr := RoomTransition{
		RoomID:         roomID,
		ExpectedStatus: current.Status,
		ExpectedTeamID: cloneString(current.CurrentTeamID),
		Status:         status,
		UpdatedAt:      now,
	}
	switch status {
	case RoomStatusOccupied:
		tr.TeamID = teamID
		tr.OccupiedSince = &now
	case RoomStatusReserved:
		until := now.Add(s.reservationWindow)
		tr.TeamID = teamID
		tr.ReservedUntil = &until
	}

	previous := current.Status
	switch {
	case !status.Held() && current.Status.Held() && current.CurrentTeamID != nil:
		tr.History = s.historyEntry(roomID, *current.CurrentTeamID, ActionFree, &previous, status, now)
	case teamID != nil:
		tr.History = s.historyEntry(roomID, *teamID, ActionAdminOverride, &previous, status, now)
	}

	room, err = s.rooms.ApplyTransition(ctx, tr)
	if err != nil {
		err = mapStoreError(err, "room")
		return
	}
	s.broadcaster.broadcast(ctx, logger)
	return
}

func (s *OccupancyService) claim(ctx context.Context, roomID, teamID string, target RoomStatus) (Room, error) {
	if s.rooms == nil || s.teams == nil {
		return Room{}, fmt.Errorf("repositories not configured")
	}
	if vErr := validateTransitionInput(roomID, teamID); vErr.HasErrors() {
		return Room{}, vErr
	}

	current, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return Room{}, mapStoreError(err, "room")
	}
	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		return Room{}, mapStoreError(err, "team")
	}
	if team.IsArchived {
		return Room{}, fmt.Errorf("%w: team is archived", ErrConflict)
	}
	if current.Status != RoomStatusFree {
		return Room{}, fmt.Errorf("%w: room is not free", ErrConflict)
	}

	now := s.now().UTC()
	action := ActionOccupy
	tr := RoomTransition{
		RoomID:         roomID,
		ExpectedStatus: RoomStatusFree,
		Status:         target,
		TeamID:         &teamID,
		UpdatedAt:      now,
		ExclusiveSlot:  true,
	}
	if target == RoomStatusReserved {
		action = ActionReserve
		until := now.Add(s.reservationWindow)
		tr.ReservedUntil = &until
	} else {
		tr.OccupiedSince = &now
	}
	previous := RoomStatusFree
	tr.History = s.historyEntry(roomID, teamID, action, &previous, target, now)

	room, err := s.rooms.ApplyTransition(ctx, tr)
	switch {
	case errors.Is(err, persistence.ErrSlotTaken) && target == RoomStatusReserved:
		return Room{}, fmt.Errorf("%w: team already holds a reservation", ErrConflict)
	case errors.Is(err, persistence.ErrSlotTaken):
		return Room{}, fmt.Errorf("%w: team already occupies another room", ErrConflict)
	case errors.Is(err, persistence.ErrPreconditionFailed):
		return Room{}, fmt.Errorf("%w: room is not free", ErrConflict)
	case err != nil:
		return Room{}, mapStoreError(err, "room")
	}
	return room, nil
}

func (s *OccupancyService) release(ctx context.Context, roomID, teamID string, action HistoryAction) (Room, error) {
	if s.rooms == nil {
		return Room{}, fmt.Errorf("room repository not configured")
	}
	if vErr := validateTransitionInput(roomID, teamID); vErr.HasErrors() {
		return Room{}, vErr
	}

	current, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return Room{}, mapStoreError(err, "room")
	}
	if current.CurrentTeamID == nil || *current.CurrentTeamID != teamID {
		return Room{}, fmt.Errorf("%w: only the holding team may release the room", ErrForbidden)
	}
	if action == ActionCancelReservation && current.Status != RoomStatusReserved {
		return Room{}, fmt.Errorf("%w: room is not reserved", ErrConflict)
	}
	if !current.Status.Held() {
		return Room{}, fmt.Errorf("%w: room is neither occupied nor reserved", ErrConflict)
	}

	now := s.now().UTC()
	previous := current.Status
	room, err := s.rooms.ApplyTransition(ctx, RoomTransition{
		RoomID:         roomID,
		ExpectedStatus: current.Status,
		ExpectedTeamID: &teamID,
		Status:         RoomStatusFree,
		UpdatedAt:      now,
		History:        s.historyEntry(roomID, teamID, action, &previous, RoomStatusFree, now),
	})
	if errors.Is(err, persistence.ErrPreconditionFailed) {
		return Room{}, fmt.Errorf("%w: room was released concurrently", ErrConflict)
	}
	if err != nil {
		return Room{}, mapStoreError(err, "room")
	}
	return room, nil
}

func (s *OccupancyService) historyEntry(roomID, teamID string, action HistoryAction, previous *RoomStatus, next RoomStatus, at time.Time) *HistoryEntry {
	return &HistoryEntry{
		ID:             s.idGenerator(),
		RoomID:         roomID,
		TeamID:         teamID,
		Action:         action,
		Timestamp:      at,
		PreviousStatus: previous,
		NewStatus:      next,
	}
}

func (s *OccupancyService) finish(ctx context.Context, logger *slog.Logger, operation, message string, errp *error) {
	if err := *errp; err != nil {
		metrics.TransitionsTotal.WithLabelValues(operation, ErrorKind(err)).Inc()
		logFailure(ctx, logger, "failed to "+strings.ReplaceAll(operation, "_", " "), err)
		return
	}
	metrics.TransitionsTotal.WithLabelValues(operation, "ok").Inc()
	logger.InfoContext(ctx, message)
}

func validateTransitionInput(roomID, teamID string) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(roomID) == "" {
		vErr.add("room_id", "room_id is required")
	}
	if strings.TrimSpace(teamID) == "" {
		vErr.add("team_id", "team_id is required")
	}
	return vErr
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
