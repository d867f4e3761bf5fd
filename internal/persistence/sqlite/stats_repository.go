package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/room-tracker/internal/persistence"
)

const dailyStatsSelect = `
	SELECT date, total_occupations, total_reservations, most_popular_room_id, team_activity, created_at
	FROM daily_stats
`

// DailyStatsRepository implements persistence.DailyStatsRepository using SQLite
type DailyStatsRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewDailyStatsRepository creates a new SQLite daily stats repository
func NewDailyStatsRepository(pool *ConnectionPool) *DailyStatsRepository {
	return &DailyStatsRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// GetDailyStats returns the rollup for the calendar day of day.
func (r *DailyStatsRepository) GetDailyStats(ctx context.Context, day time.Time) (persistence.DailyStats, error) {
	stats, err := scanDailyStats(r.helper.QueryRow(ctx, dailyStatsSelect+" WHERE date = ?", day.Format(dateLayout)))
	if err != nil {
		return persistence.DailyStats{}, r.mapper.MapError(err)
	}
	return stats, nil
}

// ListDailyStats returns all rollups, newest day first.
func (r *DailyStatsRepository) ListDailyStats(ctx context.Context) ([]persistence.DailyStats, error) {
	rows, err := r.helper.Query(ctx, dailyStatsSelect+" ORDER BY date DESC")
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var all []persistence.DailyStats
	for rows.Next() {
		stats, err := scanDailyStats(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		all = append(all, stats)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return all, nil
}

func upsertDailyStats(ctx context.Context, helper *QueryHelper, tx *sql.Tx, stats persistence.DailyStats) error {
	activity := stats.TeamActivity
	if activity == nil {
		activity = map[string]int{}
	}
	encoded, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("failed to encode team activity: %w", err)
	}

	_, err = helper.ExecTx(ctx, tx, `
		INSERT INTO daily_stats (date, total_occupations, total_reservations, most_popular_room_id, team_activity, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_occupations = excluded.total_occupations,
			total_reservations = excluded.total_reservations,
			most_popular_room_id = excluded.most_popular_room_id,
			team_activity = excluded.team_activity
	`,
		stats.Date.Format(dateLayout),
		stats.TotalOccupations,
		stats.TotalReservations,
		nullableString(stats.MostPopularRoomID),
		string(encoded),
		formatTime(stats.CreatedAt),
	)
	return err
}

func scanDailyStats(row rowScanner) (persistence.DailyStats, error) {
	var (
		stats           persistence.DailyStats
		date, createdAt string
		mostPopular     sql.NullString
		activity        string
	)
	if err := row.Scan(&date, &stats.TotalOccupations, &stats.TotalReservations, &mostPopular, &activity, &createdAt); err != nil {
		return persistence.DailyStats{}, err
	}

	var err error
	if stats.Date, err = time.Parse(dateLayout, date); err != nil {
		return persistence.DailyStats{}, fmt.Errorf("failed to parse date: %w", err)
	}
	if stats.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.DailyStats{}, err
	}
	if err := json.Unmarshal([]byte(activity), &stats.TeamActivity); err != nil {
		return persistence.DailyStats{}, fmt.Errorf("failed to decode team activity: %w", err)
	}
	stats.MostPopularRoomID = stringPtr(mostPopular)
	return stats, nil
}
