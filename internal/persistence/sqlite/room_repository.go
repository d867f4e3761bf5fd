package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/room-tracker/internal/persistence"
)

const roomSelect = `
	SELECT r.id, r.name, r.description, r.status, r.current_team_id, r.occupied_since, r.reserved_until,
	       r.created_at, r.updated_at,
	       t.id, t.name, t.color, t.created_at, t.is_archived
	FROM rooms r
	LEFT JOIN teams t ON t.id = r.current_team_id
`

// RoomRepository implements persistence.RoomRepository using SQLite
type RoomRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewRoomRepository creates a new SQLite room repository
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateRoom inserts a new room in the FREE state.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" || strings.TrimSpace(room.Name) == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO rooms (id, name, description, status, created_at, updated_at)
		VALUES (?, ?, ?, 'FREE', ?, ?)
	`,
		room.ID,
		room.Name,
		room.Description,
		formatTime(room.CreatedAt),
		formatTime(room.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateRoom updates the descriptive fields of a room.
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE rooms SET name = ?, description = ?, updated_at = ?
		WHERE id = ?
	`, room.Name, room.Description, formatTime(room.UpdatedAt), room.ID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetRoom retrieves a room by ID including its holder.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}
	room, err := scanRoom(r.helper.QueryRow(ctx, roomSelect+" WHERE r.id = ?", id))
	if err != nil {
		return persistence.Room{}, r.mapper.MapError(err)
	}
	return room, nil
}

// ListRooms returns all rooms ordered by name then ID.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	return r.queryRooms(ctx, roomSelect+" ORDER BY r.name ASC, r.id ASC")
}

// ListRoomsByStatus returns rooms currently in status.
func (r *RoomRepository) ListRoomsByStatus(ctx context.Context, status string) ([]persistence.Room, error) {
	return r.queryRooms(ctx, roomSelect+" WHERE r.status = ? ORDER BY r.name ASC, r.id ASC", status)
}

// CountRooms reports the number of rooms.
func (r *RoomRepository) CountRooms(ctx context.Context) (int, error) {
	var count int
	if err := r.helper.QueryRow(ctx, "SELECT COUNT(*) FROM rooms").Scan(&count); err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// DeleteRoom removes a room and its history.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(ctx, tx, "DELETE FROM history WHERE room_id = ?", id); err != nil {
			return r.mapper.MapError(err)
		}
		result, err := r.helper.ExecTx(ctx, tx, "DELETE FROM rooms WHERE id = ?", id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireAffected(result)
	})
}

// ApplyTransition performs a compare-and-set update of the room holder state
// and appends the optional history entry in the same transaction.
func (r *RoomRepository) ApplyTransition(ctx context.Context, tr persistence.RoomTransition) (persistence.Room, error) {
	var room persistence.Room
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if tr.ExclusiveSlot && tr.TeamID != nil {
				var held int
				err := r.helper.QueryRowTx(ctx, tx, `
					SELECT COUNT(*) FROM rooms WHERE current_team_id = ? AND status = ? AND id <> ?
				`, *tr.TeamID, tr.Status, tr.RoomID).Scan(&held)
				if err != nil {
					return r.mapper.MapError(err)
				}
				if held > 0 {
					return persistence.ErrSlotTaken
				}
			}

			query := `
				UPDATE rooms
				SET status = ?, current_team_id = ?, occupied_since = ?, reserved_until = ?, updated_at = ?
				WHERE id = ? AND status = ? AND current_team_id IS ?
			`
			args := []any{
				tr.Status,
				nullableString(tr.TeamID),
				formatNullableTime(tr.OccupiedSince),
				formatNullableTime(tr.ReservedUntil),
				formatTime(tr.UpdatedAt),
				tr.RoomID,
				tr.ExpectedStatus,
				nullableString(tr.ExpectedTeamID),
			}
			if tr.ReservedUntilAtOrBefore != nil {
				query += " AND reserved_until <= ?"
				args = append(args, formatTime(*tr.ReservedUntilAtOrBefore))
			}
			if tr.OccupiedSinceAtOrBefore != nil {
				query += " AND occupied_since <= ?"
				args = append(args, formatTime(*tr.OccupiedSinceAtOrBefore))
			}

			result, err := r.helper.ExecTx(ctx, tx, query, args...)
			if err != nil {
				return r.mapper.MapError(err)
			}
			affected, err := rowsAffected(result)
			if err != nil {
				return err
			}
			if affected == 0 {
				// A missing room surfaces as ErrNotFound via sql.ErrNoRows;
				// an existing one means the pre-image no longer matched.
				var exists int
				if err := r.helper.QueryRowTx(ctx, tx, "SELECT 1 FROM rooms WHERE id = ?", tr.RoomID).Scan(&exists); err != nil {
					return r.mapper.MapError(err)
				}
				return persistence.ErrPreconditionFailed
			}

			if tr.History != nil {
				if err := insertHistory(ctx, r.helper, tx, *tr.History); err != nil {
					return r.mapper.MapError(err)
				}
			}

			room, err = scanRoom(r.helper.QueryRowTx(ctx, tx, roomSelect+" WHERE r.id = ?", tr.RoomID))
			return r.mapper.MapError(err)
		})
	})
	if err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}

func (r *RoomRepository) queryRooms(ctx context.Context, query string, args ...any) ([]persistence.Room, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return rooms, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (persistence.Room, error) {
	var (
		room                                 persistence.Room
		teamID, occupiedSince, reservedUntil sql.NullString
		createdAt, updatedAt                 string
		joinedID, joinedName, joinedColor    sql.NullString
		joinedCreatedAt                      sql.NullString
		joinedArchived                       sql.NullInt64
	)
	err := row.Scan(
		&room.ID, &room.Name, &room.Description, &room.Status,
		&teamID, &occupiedSince, &reservedUntil,
		&createdAt, &updatedAt,
		&joinedID, &joinedName, &joinedColor, &joinedCreatedAt, &joinedArchived,
	)
	if err != nil {
		return persistence.Room{}, err
	}

	room.CurrentTeamID = stringPtr(teamID)
	if room.OccupiedSince, err = parseNullableTime("occupied_since", occupiedSince); err != nil {
		return persistence.Room{}, err
	}
	if room.ReservedUntil, err = parseNullableTime("reserved_until", reservedUntil); err != nil {
		return persistence.Room{}, err
	}
	if room.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Room{}, err
	}

	if joinedID.Valid {
		team := persistence.Team{
			ID:         joinedID.String,
			Name:       joinedName.String,
			Color:      joinedColor.String,
			IsArchived: joinedArchived.Int64 == 1,
		}
		if team.CreatedAt, err = parseTime("team created_at", joinedCreatedAt.String); err != nil {
			return persistence.Room{}, err
		}
		room.CurrentTeam = &team
	}
	return room, nil
}

func rowsAffected(result sql.Result) (int, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

func requireAffected(result sql.Result) error {
	affected, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
