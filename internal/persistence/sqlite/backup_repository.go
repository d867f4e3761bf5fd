package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/room-tracker/internal/persistence"
)

// BackupRepository implements persistence.BackupRepository using SQLite
type BackupRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewBackupRepository creates a new SQLite backup repository
func NewBackupRepository(pool *ConnectionPool) *BackupRepository {
	return &BackupRepository{pool: pool, helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// CreateBackup stores a snapshot document.
func (r *BackupRepository) CreateBackup(ctx context.Context, backup persistence.Backup) error {
	if backup.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO backups (id, name, description, created_at, data) VALUES (?, ?, ?, ?, ?)
	`, backup.ID, backup.Name, backup.Description, formatTime(backup.CreatedAt), string(backup.Data))
	return r.mapper.MapError(err)
}

// GetBackup retrieves a backup including its document.
func (r *BackupRepository) GetBackup(ctx context.Context, id string) (persistence.Backup, error) {
	backup, err := scanBackup(r.helper.QueryRow(ctx, `
		SELECT id, name, description, created_at, data FROM backups WHERE id = ?
	`, id))
	if err != nil {
		return persistence.Backup{}, r.mapper.MapError(err)
	}
	return backup, nil
}

// ListBackups returns all backups, newest first.
func (r *BackupRepository) ListBackups(ctx context.Context) ([]persistence.Backup, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, name, description, created_at, data FROM backups ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var backups []persistence.Backup
	for rows.Next() {
		backup, err := scanBackup(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		backups = append(backups, backup)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return backups, nil
}

// DeleteBackup removes a backup.
func (r *BackupRepository) DeleteBackup(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, "DELETE FROM backups WHERE id = ?", id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// RestoreSnapshot replaces teams, room states and live history with the
// snapshot inside one transaction, stamping every room with at. Rooms that no
// longer exist are skipped, as are history rows whose room or team is absent
// after the team replacement. A snapshot row archived since the backup was
// taken is moved back into the live ledger.
func (r *BackupRepository) RestoreSnapshot(ctx context.Context, snapshot persistence.Snapshot, at time.Time) (persistence.RestoreSummary, error) {
	var summary persistence.RestoreSummary
	restoredAt := formatTime(at)
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		summary = persistence.RestoreSummary{}

		if _, err := r.helper.ExecTx(ctx, tx, "DELETE FROM history WHERE archived_date IS NULL"); err != nil {
			return r.mapper.MapError(err)
		}
		if _, err := r.helper.ExecTx(ctx, tx, `
			UPDATE rooms SET status = 'FREE', current_team_id = NULL, occupied_since = NULL, reserved_until = NULL, updated_at = ?
		`, restoredAt); err != nil {
			return r.mapper.MapError(err)
		}

		deleteTeams := "DELETE FROM teams"
		ids := make([]any, 0, len(snapshot.Teams))
		for _, team := range snapshot.Teams {
			ids = append(ids, team.ID)
		}
		if len(ids) > 0 {
			deleteTeams += " WHERE id NOT IN (" + strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + ")"
		}
		if _, err := r.helper.ExecTx(ctx, tx, deleteTeams, ids...); err != nil {
			return r.mapper.MapError(err)
		}

		for _, team := range snapshot.Teams {
			_, err := r.helper.ExecTx(ctx, tx, `
				INSERT INTO teams (id, name, color, created_at, is_archived)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					name = excluded.name,
					color = excluded.color,
					is_archived = excluded.is_archived
			`, team.ID, team.Name, team.Color, formatTime(team.CreatedAt), boolToInt(team.IsArchived))
			if err != nil {
				return r.mapper.MapError(err)
			}
			summary.Teams++
		}

		for _, room := range snapshot.Rooms {
			result, err := r.helper.ExecTx(ctx, tx, `
				UPDATE rooms
				SET status = ?, current_team_id = ?, occupied_since = ?, reserved_until = ?, updated_at = ?
				WHERE id = ?
			`,
				room.Status,
				nullableString(room.CurrentTeamID),
				formatNullableTime(room.OccupiedSince),
				formatNullableTime(room.ReservedUntil),
				restoredAt,
				room.ID,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			affected, err := rowsAffected(result)
			if err != nil {
				return err
			}
			if affected == 0 {
				summary.SkippedRooms++
				continue
			}
			summary.Rooms++
		}

		for _, entry := range snapshot.History {
			reactivated, err := r.reactivateHistory(ctx, tx, entry)
			if err != nil {
				return err
			}
			if reactivated {
				summary.ReactivatedHistory++
				summary.History++
				continue
			}

			result, err := r.helper.ExecTx(ctx, tx, `
				INSERT INTO history (id, room_id, team_id, action, timestamp, previous_status, new_status)
				SELECT ?, ?, ?, ?, ?, ?, ?
				WHERE EXISTS (SELECT 1 FROM rooms WHERE id = ?)
				  AND EXISTS (SELECT 1 FROM teams WHERE id = ?)
				  AND NOT EXISTS (SELECT 1 FROM history WHERE id = ?)
			`,
				entry.ID,
				entry.RoomID,
				entry.TeamID,
				entry.Action,
				formatTime(entry.Timestamp),
				nullableString(entry.PreviousStatus),
				entry.NewStatus,
				entry.RoomID,
				entry.TeamID,
				entry.ID,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			affected, err := rowsAffected(result)
			if err != nil {
				return err
			}
			if affected == 0 {
				summary.SkippedHistory++
				continue
			}
			summary.History++
		}
		return nil
	})
	if err != nil {
		return persistence.RestoreSummary{}, err
	}
	return summary, nil
}

// reactivateHistory clears the archive stamp of an entry archived after the
// backup was taken, rewriting it with the snapshot values. It reports false
// when no archived row with that ID exists or its room or team is gone.
func (r *BackupRepository) reactivateHistory(ctx context.Context, tx *sql.Tx, entry persistence.HistoryEntry) (bool, error) {
	result, err := r.helper.ExecTx(ctx, tx, `
		UPDATE history
		SET room_id = ?, team_id = ?, action = ?, timestamp = ?, previous_status = ?, new_status = ?, archived_date = NULL
		WHERE id = ? AND archived_date IS NOT NULL
		  AND EXISTS (SELECT 1 FROM rooms WHERE id = ?)
		  AND EXISTS (SELECT 1 FROM teams WHERE id = ?)
	`,
		entry.RoomID,
		entry.TeamID,
		entry.Action,
		formatTime(entry.Timestamp),
		nullableString(entry.PreviousStatus),
		entry.NewStatus,
		entry.ID,
		entry.RoomID,
		entry.TeamID,
	)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	affected, err := rowsAffected(result)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func scanBackup(row rowScanner) (persistence.Backup, error) {
	var (
		backup          persistence.Backup
		createdAt, data string
	)
	if err := row.Scan(&backup.ID, &backup.Name, &backup.Description, &createdAt, &data); err != nil {
		return persistence.Backup{}, err
	}
	var err error
	if backup.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Backup{}, err
	}
	backup.Data = []byte(data)
	return backup, nil
}
