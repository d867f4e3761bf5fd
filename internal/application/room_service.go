package application

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RoomService manages the room catalog. Every change is broadcast.
type RoomService struct {
	rooms       RoomRepository
	broadcaster roomBroadcaster
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms RoomRepository, publisher RoomPublisher, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, publisher, idGenerator, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomRepository, publisher RoomPublisher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{
		rooms:       rooms,
		broadcaster: roomBroadcaster{rooms: rooms, publisher: publisher},
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom validates input and persists a new FREE room for administrators.
func (s *RoomService) CreateRoom(ctx context.Context, principal Principal, input RoomInput) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom",
		"principal_id", principal.ActorID,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to create room", err)
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := validateRoomInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	room = Room{
		ID:          s.idGenerator(),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Status:      RoomStatusFree,
		CreatedAt:   s.now().UTC(),
	}
	room.UpdatedAt = room.CreatedAt

	if s.rooms == nil {
		return
	}

	room, err = s.rooms.CreateRoom(ctx, room)
	if err != nil {
		err = mapStoreError(err, "room")
		return
	}
	s.broadcaster.broadcast(ctx, logger)
	return
}

// UpdateRoom changes the name and description of an existing room.
func (s *RoomService) UpdateRoom(ctx context.Context, principal Principal, roomID string, input RoomInput) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom",
		"principal_id", principal.ActorID,
		"room_id", roomID,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to update room", err)
			return
		}
		logger.InfoContext(ctx, "room updated")
	}()

	var existing Room
	existing, err = s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		err = mapStoreError(err, "room")
		return
	}

	vErr := validateRoomInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Name = strings.TrimSpace(input.Name)
	updated.Description = strings.TrimSpace(input.Description)
	updated.UpdatedAt = s.now().UTC()

	room, err = s.rooms.UpdateRoom(ctx, updated)
	if err != nil {
		err = mapStoreError(err, "room")
		return
	}
	s.broadcaster.broadcast(ctx, logger)
	return
}

// DeleteRoom removes a room together with its history.
func (s *RoomService) DeleteRoom(ctx context.Context, principal Principal, roomID string) error {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteRoom",
		"principal_id", principal.ActorID,
		"room_id", roomID,
	)

	if err := s.rooms.DeleteRoom(ctx, roomID); err != nil {
		err = mapStoreError(err, "room")
		logFailure(ctx, logger, "failed to delete room", err)
		return err
	}

	logger.InfoContext(ctx, "room deleted")
	s.broadcaster.broadcast(ctx, logger)
	return nil
}

// GetRoom returns a single room including its holder.
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (Room, error) {
	if s == nil {
		return Room{}, fmt.Errorf("RoomService is nil")
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return Room{}, mapStoreError(err, "room")
	}
	return room, nil
}

// ListRooms returns every room in display order.
func (s *RoomService) ListRooms(ctx context.Context) (rooms []Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListRooms")
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to list rooms", err)
			return
		}
		logger.With("result_count", len(rooms)).DebugContext(ctx, "rooms listed")
	}()

	var raw []Room
	raw, err = s.rooms.ListRooms(ctx)
	if err != nil {
		return
	}

	rooms = make([]Room, len(raw))
	copy(rooms, raw)
	SortRooms(rooms)
	return
}

// SeedRooms creates the given rooms when the catalog is empty. It reports how
// many rooms were created.
func (s *RoomService) SeedRooms(ctx context.Context, seeds []RoomInput) (created int, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SeedRooms")
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to seed rooms", err)
			return
		}
		if created > 0 {
			logger.InfoContext(ctx, "rooms seeded", "created", created)
		}
	}()

	var count int
	count, err = s.rooms.CountRooms(ctx)
	if err != nil || count > 0 {
		return
	}

	for _, seed := range seeds {
		if vErr := validateRoomInput(seed); vErr.HasErrors() {
			err = vErr
			return
		}
		now := s.now().UTC()
		if _, err = s.rooms.CreateRoom(ctx, Room{
			ID:          s.idGenerator(),
			Name:        strings.TrimSpace(seed.Name),
			Description: strings.TrimSpace(seed.Description),
			Status:      RoomStatusFree,
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			err = mapStoreError(err, "room")
			return
		}
		created++
	}
	if created > 0 {
		s.broadcaster.broadcast(ctx, logger)
	}
	return
}

// DefaultRoomSeeds returns the ten numbered rooms created on first start.
func DefaultRoomSeeds() []RoomInput {
	seeds := make([]RoomInput, 0, 10)
	for i := 1; i <= 10; i++ {
		seeds = append(seeds, RoomInput{
			Name:        fmt.Sprintf("Room %d", i),
			Description: fmt.Sprintf("Room number %d", i),
		})
	}
	return seeds
}

var roomNumberPattern = regexp.MustCompile(`\d+`)

// SortRooms orders rooms by the first number in their name, then by name and ID.
// Rooms without a number sort after numbered ones.
func SortRooms(rooms []Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		ni, oki := roomNumber(rooms[i].Name)
		nj, okj := roomNumber(rooms[j].Name)
		if oki != okj {
			return oki
		}
		if oki && ni != nj {
			return ni < nj
		}
		if !strings.EqualFold(rooms[i].Name, rooms[j].Name) {
			return strings.ToLower(rooms[i].Name) < strings.ToLower(rooms[j].Name)
		}
		return rooms[i].ID < rooms[j].ID
	})
}

func roomNumber(name string) (int, bool) {
	match := roomNumberPattern.FindString(name)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := &ValidationError{}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		vErr.add("name", "name is required")
	} else if len(name) > 100 {
		vErr.add("name", "name must be at most 100 characters")
	}
	if len(input.Description) > 500 {
		vErr.add("description", "description must be at most 500 characters")
	}

	return vErr
}
