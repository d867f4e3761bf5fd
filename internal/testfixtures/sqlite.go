package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/room-tracker/internal/persistence"
	"github.com/example/room-tracker/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style persistence tests.
type SQLiteHarness struct {
	Store   *sqlite.Store
	Rooms   persistence.RoomRepository
	Teams   persistence.TeamRepository
	History persistence.HistoryRepository
	Daily   persistence.DailyStatsRepository
	Backups persistence.BackupRepository
	Archive persistence.ArchiveRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "rooms.db")

	storage, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background(), nil); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store:   storage,
		Rooms:   storage,
		Teams:   storage,
		History: storage,
		Daily:   storage,
		Backups: storage,
		Archive: storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
