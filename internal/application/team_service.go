package application

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

var teamColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// TeamService handles team signup and administration.
type TeamService struct {
	teams       TeamRepository
	rooms       RoomRepository
	broadcaster roomBroadcaster
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTeamService constructs a team service with the provided dependencies.
func NewTeamService(teams TeamRepository, rooms RoomRepository, publisher RoomPublisher, idGenerator func() string, now func() time.Time) *TeamService {
	return NewTeamServiceWithLogger(teams, rooms, publisher, idGenerator, now, nil)
}

// NewTeamServiceWithLogger constructs a team service with a specified logger.
func NewTeamServiceWithLogger(teams TeamRepository, rooms RoomRepository, publisher RoomPublisher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TeamService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TeamService{
		teams:       teams,
		rooms:       rooms,
		broadcaster: roomBroadcaster{rooms: rooms, publisher: publisher},
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *TeamService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TeamService", operation, attrs...)
}

// CreateTeam registers a new team. Names are unique among active teams.
func (s *TeamService) CreateTeam(ctx context.Context, input TeamInput) (team Team, err error) {
	if s == nil {
		err = fmt.Errorf("TeamService is nil")
		return
	}
	if s.teams == nil {
		err = fmt.Errorf("team repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateTeam", "name", strings.TrimSpace(input.Name))
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to create team", err)
			return
		}
		logger.With("team_id", team.ID).InfoContext(ctx, "team created")
	}()

	input = normalizeTeamInput(input)
	if vErr := validateTeamInput(input); vErr.HasErrors() {
		err = vErr
		return
	}
	if err = s.ensureNameAvailable(ctx, "", input.Name); err != nil {
		return
	}

	team, err = s.teams.CreateTeam(ctx, Team{
		ID:        s.idGenerator(),
		Name:      input.Name,
		Color:     input.Color,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		err = mapStoreError(err, "team")
	}
	return
}

// GetTeam returns a team by ID.
func (s *TeamService) GetTeam(ctx context.Context, teamID string) (Team, error) {
	if s == nil {
		return Team{}, fmt.Errorf("TeamService is nil")
	}
	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		return Team{}, mapStoreError(err, "team")
	}
	return team, nil
}

// ListTeams returns teams by creation time, optionally including archived ones.
func (s *TeamService) ListTeams(ctx context.Context, includeArchived bool) (teams []Team, err error) {
	if s == nil {
		err = fmt.Errorf("TeamService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListTeams", "include_archived", includeArchived)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to list teams", err)
		}
	}()

	teams, err = s.teams.ListTeams(ctx, includeArchived)
	return
}

// UpdateTeam changes the name and color of a team.
func (s *TeamService) UpdateTeam(ctx context.Context, principal Principal, teamID string, input TeamInput) (team Team, err error) {
	if s == nil {
		err = fmt.Errorf("TeamService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateTeam",
		"principal_id", principal.ActorID,
		"team_id", teamID,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to update team", err)
			return
		}
		logger.InfoContext(ctx, "team updated")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	var existing Team
	existing, err = s.teams.GetTeam(ctx, teamID)
	if err != nil {
		err = mapStoreError(err, "team")
		return
	}

	input = normalizeTeamInput(input)
	if vErr := validateTeamInput(input); vErr.HasErrors() {
		err = vErr
		return
	}
	if !existing.IsArchived {
		if err = s.ensureNameAvailable(ctx, teamID, input.Name); err != nil {
			return
		}
	}

	existing.Name = input.Name
	existing.Color = input.Color
	team, err = s.teams.UpdateTeam(ctx, existing)
	if err != nil {
		err = mapStoreError(err, "team")
		return
	}
	// Rooms embed their holder, so subscribers need the new name and color.
	s.broadcaster.broadcast(ctx, logger)
	return
}

// DeleteTeam removes a team, freeing any rooms it holds and deleting its history.
func (s *TeamService) DeleteTeam(ctx context.Context, principal Principal, teamID string) (freed int, err error) {
	if s == nil {
		err = fmt.Errorf("TeamService is nil")
		return
	}

	logger := s.loggerWith(ctx, "DeleteTeam",
		"principal_id", principal.ActorID,
		"team_id", teamID,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to delete team", err)
			return
		}
		logger.InfoContext(ctx, "team deleted", "freed_rooms", freed)
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	freed, err = s.teams.DeleteTeam(ctx, teamID, s.now())
	if err != nil {
		err = mapStoreError(err, "team")
		return
	}
	if freed > 0 {
		s.broadcaster.broadcast(ctx, logger)
	}
	return
}

// ArchiveTeam hides a team from signup listings. The team must not hold a room.
func (s *TeamService) ArchiveTeam(ctx context.Context, principal Principal, teamID string) (team Team, err error) {
	if s == nil {
		err = fmt.Errorf("TeamService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ArchiveTeam",
		"principal_id", principal.ActorID,
		"team_id", teamID,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to archive team", err)
			return
		}
		logger.InfoContext(ctx, "team archived")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	team, err = s.teams.GetTeam(ctx, teamID)
	if err != nil {
		err = mapStoreError(err, "team")
		return
	}
	if team.IsArchived {
		return
	}

	if s.rooms != nil {
		var rooms []Room
		rooms, err = s.rooms.ListRooms(ctx)
		if err != nil {
			return
		}
		for _, room := range rooms {
			if room.CurrentTeamID != nil && *room.CurrentTeamID == teamID {
				err = fmt.Errorf("%w: team still holds room %s", ErrConflict, room.Name)
				return
			}
		}
	}

	team.IsArchived = true
	team, err = s.teams.UpdateTeam(ctx, team)
	if err != nil {
		err = mapStoreError(err, "team")
	}
	return
}

func (s *TeamService) ensureNameAvailable(ctx context.Context, teamID, name string) error {
	active, err := s.teams.ListTeams(ctx, false)
	if err != nil {
		return err
	}
	for _, other := range active {
		if other.ID != teamID && strings.EqualFold(other.Name, name) {
			return fmt.Errorf("%w: team name %q is already taken", ErrConflict, name)
		}
	}
	return nil
}

func normalizeTeamInput(input TeamInput) TeamInput {
	return TeamInput{
		Name:  strings.TrimSpace(input.Name),
		Color: strings.ToUpper(strings.TrimSpace(input.Color)),
	}
}

func validateTeamInput(input TeamInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "name is required")
	} else if len(input.Name) > 50 {
		vErr.add("name", "name must be at most 50 characters")
	}
	if !teamColorPattern.MatchString(input.Color) {
		vErr.add("color", "color must be a hex value like #FF0000")
	}
	return vErr
}
