package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/room-tracker/internal/persistence"
)

// ArchiveRepository implements persistence.ArchiveRepository using SQLite
type ArchiveRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewArchiveRepository creates a new SQLite archive repository
func NewArchiveRepository(pool *ConnectionPool) *ArchiveRepository {
	return &ArchiveRepository{pool: pool, helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// ArchiveAndReset stamps live history as archived, upserts the day's rollup,
// frees every room and optionally removes all history and teams.
func (r *ArchiveRepository) ArchiveAndReset(ctx context.Context, req persistence.ArchiveRequest) (persistence.ArchiveSummary, error) {
	var summary persistence.ArchiveSummary
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		summary = persistence.ArchiveSummary{}

		result, err := r.helper.ExecTx(ctx, tx,
			"UPDATE history SET archived_date = ? WHERE archived_date IS NULL", formatTime(req.ArchivedAt))
		if err != nil {
			return r.mapper.MapError(err)
		}
		if summary.ArchivedHistory, err = rowsAffected(result); err != nil {
			return err
		}

		dayStart := req.DayStart
		query, args := buildHistoryQuery(persistence.HistoryFilter{ArchivedOnly: true, Since: &dayStart})
		rows, err := r.helper.QueryTx(ctx, tx, query, args...)
		if err != nil {
			return r.mapper.MapError(err)
		}
		entries, err := collectHistory(rows)
		rows.Close()
		if err != nil {
			return r.mapper.MapError(err)
		}

		if req.Summarize != nil {
			summary.Stats = req.Summarize(entries)
		}
		summary.Stats.Date = req.DayStart
		summary.Stats.CreatedAt = req.ArchivedAt
		if err := upsertDailyStats(ctx, r.helper, tx, summary.Stats); err != nil {
			return r.mapper.MapError(err)
		}

		if _, err := r.helper.ExecTx(ctx, tx, `
			UPDATE rooms
			SET status = 'FREE', current_team_id = NULL, occupied_since = NULL, reserved_until = NULL, updated_at = ?
		`, formatTime(req.ArchivedAt)); err != nil {
			return r.mapper.MapError(err)
		}

		if !req.DeleteTeams {
			return nil
		}
		if _, err := r.helper.ExecTx(ctx, tx, "DELETE FROM history"); err != nil {
			return r.mapper.MapError(err)
		}
		result, err = r.helper.ExecTx(ctx, tx, "DELETE FROM teams")
		if err != nil {
			return r.mapper.MapError(err)
		}
		deleted, _ := result.RowsAffected()
		summary.DeletedTeams = int(deleted)
		return nil
	})
	if err != nil {
		return persistence.ArchiveSummary{}, err
	}
	return summary, nil
}

// RestoreArchivedTeams clears the archive flag on archived teams whose name
// is not taken by an active team. It reports how many teams were restored.
func (r *ArchiveRepository) RestoreArchivedTeams(ctx context.Context) (int, error) {
	var restored int
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		restored = 0
		rows, err := r.helper.QueryTx(ctx, tx, "SELECT id FROM teams WHERE is_archived = 1 ORDER BY created_at DESC, id ASC")
		if err != nil {
			return r.mapper.MapError(err)
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return r.mapper.MapError(err)
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return r.mapper.MapError(err)
		}

		for _, id := range ids {
			result, err := r.helper.ExecTx(ctx, tx, `
				UPDATE teams SET is_archived = 0
				WHERE id = ? AND NOT EXISTS (
					SELECT 1 FROM teams active
					WHERE active.is_archived = 0 AND active.name = teams.name
				)
			`, id)
			if err != nil {
				return r.mapper.MapError(err)
			}
			affected, err := rowsAffected(result)
			if err != nil {
				return err
			}
			restored += affected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return restored, nil
}

// ClearArchive deletes archived history, every daily rollup and archived teams.
func (r *ArchiveRepository) ClearArchive(ctx context.Context, at time.Time) (persistence.ClearArchiveSummary, error) {
	var summary persistence.ClearArchiveSummary
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		summary = persistence.ClearArchiveSummary{}

		result, err := r.helper.ExecTx(ctx, tx, "DELETE FROM history WHERE archived_date IS NOT NULL")
		if err != nil {
			return r.mapper.MapError(err)
		}
		if summary.DeletedHistory, err = rowsAffected(result); err != nil {
			return err
		}

		result, err = r.helper.ExecTx(ctx, tx, "DELETE FROM daily_stats")
		if err != nil {
			return r.mapper.MapError(err)
		}
		if summary.DeletedStats, err = rowsAffected(result); err != nil {
			return err
		}

		if _, err := r.helper.ExecTx(ctx, tx, `
			UPDATE rooms
			SET status = 'FREE', current_team_id = NULL, occupied_since = NULL, reserved_until = NULL, updated_at = ?
			WHERE current_team_id IN (SELECT id FROM teams WHERE is_archived = 1)
		`, formatTime(at)); err != nil {
			return r.mapper.MapError(err)
		}
		result, err = r.helper.ExecTx(ctx, tx, "DELETE FROM teams WHERE is_archived = 1")
		if err != nil {
			return r.mapper.MapError(err)
		}
		if summary.DeletedTeams, err = rowsAffected(result); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return persistence.ClearArchiveSummary{}, err
	}
	return summary, nil
}
