package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/room-tracker/internal/persistence"
)

const teamSelect = `SELECT id, name, color, created_at, is_archived FROM teams`

// TeamRepository implements persistence.TeamRepository using SQLite
type TeamRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewTeamRepository creates a new SQLite team repository
func NewTeamRepository(pool *ConnectionPool) *TeamRepository {
	return &TeamRepository{pool: pool, helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// CreateTeam inserts a new team.
func (r *TeamRepository) CreateTeam(ctx context.Context, team persistence.Team) error {
	if team.ID == "" || strings.TrimSpace(team.Name) == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO teams (id, name, color, created_at, is_archived)
		VALUES (?, ?, ?, ?, ?)
	`, team.ID, team.Name, team.Color, formatTime(team.CreatedAt), boolToInt(team.IsArchived))
	return r.mapper.MapError(err)
}

// UpdateTeam updates name, color and archive flag.
func (r *TeamRepository) UpdateTeam(ctx context.Context, team persistence.Team) error {
	result, err := r.helper.Exec(ctx, `
		UPDATE teams SET name = ?, color = ?, is_archived = ? WHERE id = ?
	`, team.Name, team.Color, boolToInt(team.IsArchived), team.ID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetTeam retrieves a team by ID.
func (r *TeamRepository) GetTeam(ctx context.Context, id string) (persistence.Team, error) {
	if id == "" {
		return persistence.Team{}, persistence.ErrNotFound
	}
	team, err := scanTeam(r.helper.QueryRow(ctx, teamSelect+" WHERE id = ?", id))
	if err != nil {
		return persistence.Team{}, r.mapper.MapError(err)
	}
	return team, nil
}

// ListTeams returns teams ordered by creation time.
func (r *TeamRepository) ListTeams(ctx context.Context, includeArchived bool) ([]persistence.Team, error) {
	query := teamSelect
	if !includeArchived {
		query += " WHERE is_archived = 0"
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var teams []persistence.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return teams, nil
}

// DeleteTeam frees the team's rooms, removes its history and the team.
func (r *TeamRepository) DeleteTeam(ctx context.Context, id string, at time.Time) (int, error) {
	if id == "" {
		return 0, persistence.ErrNotFound
	}

	var freed int
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(ctx, tx, `
			UPDATE rooms
			SET status = 'FREE', current_team_id = NULL, occupied_since = NULL, reserved_until = NULL, updated_at = ?
			WHERE current_team_id = ?
		`, formatTime(at), id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if freed, err = rowsAffected(result); err != nil {
			return err
		}

		if _, err := r.helper.ExecTx(ctx, tx, "DELETE FROM history WHERE team_id = ?", id); err != nil {
			return r.mapper.MapError(err)
		}
		result, err = r.helper.ExecTx(ctx, tx, "DELETE FROM teams WHERE id = ?", id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireAffected(result)
	})
	if err != nil {
		return 0, err
	}
	return freed, nil
}

func scanTeam(row rowScanner) (persistence.Team, error) {
	var (
		team      persistence.Team
		createdAt string
		archived  int
	)
	if err := row.Scan(&team.ID, &team.Name, &team.Color, &createdAt, &archived); err != nil {
		return persistence.Team{}, err
	}
	var err error
	if team.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Team{}, err
	}
	team.IsArchived = archived == 1
	return team, nil
}
