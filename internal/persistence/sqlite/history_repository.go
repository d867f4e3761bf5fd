package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/room-tracker/internal/persistence"
)

const historySelect = `
	SELECT id, room_id, team_id, action, timestamp, previous_status, new_status, archived_date
	FROM history
`

// HistoryRepository implements persistence.HistoryRepository using SQLite
type HistoryRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewHistoryRepository creates a new SQLite history repository
func NewHistoryRepository(pool *ConnectionPool) *HistoryRepository {
	return &HistoryRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// ListHistory returns entries matching filter, newest first.
func (r *HistoryRepository) ListHistory(ctx context.Context, filter persistence.HistoryFilter) ([]persistence.HistoryEntry, error) {
	query, args := buildHistoryQuery(filter)
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()
	return collectHistory(rows)
}

func buildHistoryQuery(filter persistence.HistoryFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	switch {
	case filter.ArchivedOnly:
		clauses = append(clauses, "archived_date IS NOT NULL")
	case !filter.IncludeArchived:
		clauses = append(clauses, "archived_date IS NULL")
	}
	if filter.RoomID != "" {
		clauses = append(clauses, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.TeamID != "" {
		clauses = append(clauses, "team_id = ?")
		args = append(args, filter.TeamID)
	}
	if len(filter.Actions) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.Actions)), ",")
		clauses = append(clauses, "action IN ("+placeholders+")")
		for _, action := range filter.Actions {
			args = append(args, action)
		}
	}
	if filter.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, formatTime(*filter.Since))
	}

	query := historySelect
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	return query, args
}

func collectHistory(rows *sql.Rows) ([]persistence.HistoryEntry, error) {
	var entries []persistence.HistoryEntry
	for rows.Next() {
		var (
			entry                  persistence.HistoryEntry
			timestamp              string
			previous, archivedDate sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.RoomID, &entry.TeamID, &entry.Action, &timestamp, &previous, &entry.NewStatus, &archivedDate); err != nil {
			return nil, err
		}
		var err error
		if entry.Timestamp, err = parseTime("timestamp", timestamp); err != nil {
			return nil, err
		}
		if entry.ArchivedDate, err = parseNullableTime("archived_date", archivedDate); err != nil {
			return nil, err
		}
		entry.PreviousStatus = stringPtr(previous)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func insertHistory(ctx context.Context, helper *QueryHelper, tx *sql.Tx, entry persistence.HistoryEntry) error {
	_, err := helper.ExecTx(ctx, tx, `
		INSERT INTO history (id, room_id, team_id, action, timestamp, previous_status, new_status, archived_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.RoomID,
		entry.TeamID,
		entry.Action,
		formatTime(entry.Timestamp),
		nullableString(entry.PreviousStatus),
		entry.NewStatus,
		formatNullableTime(entry.ArchivedDate),
	)
	return err
}
