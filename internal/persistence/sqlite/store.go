package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/room-tracker/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store aggregates the SQLite repositories over a single connection pool so
// one value satisfies every persistence interface.
type Store struct {
	*RoomRepository
	*TeamRepository
	*HistoryRepository
	*DailyStatsRepository
	*BackupRepository
	*ArchiveRepository

	pool *ConnectionPool
}

// Open returns a Store for dsn using the default connection settings.
func Open(dsn string) (*Store, error) {
	return OpenWithConfig(migration.DefaultSQLiteConfig(dsn))
}

// OpenWithConfig returns a Store using cfg.
func OpenWithConfig(cfg migration.SQLiteConfig) (*Store, error) {
	pool, err := NewConnectionPool(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{
		RoomRepository:       NewRoomRepository(pool),
		TeamRepository:       NewTeamRepository(pool),
		HistoryRepository:    NewHistoryRepository(pool),
		DailyStatsRepository: NewDailyStatsRepository(pool),
		BackupRepository:     NewBackupRepository(pool),
		ArchiveRepository:    NewArchiveRepository(pool),
		pool:                 pool,
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context, logger *slog.Logger) error {
	manager := migration.NewMigrationManager(
		migration.NewFileScanner(migrationFiles),
		migration.NewSQLiteExecutor(s.pool.DB()),
		"migrations",
		logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.DB().PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}
