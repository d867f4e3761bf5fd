package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type migrationManager struct {
	scanner  FileScanner
	executor Executor
	dir      string
	logger   *slog.Logger
}

// NewMigrationManager creates a MigrationManager applying the files found in dir.
func NewMigrationManager(scanner FileScanner, executor Executor, dir string, logger *slog.Logger) MigrationManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &migrationManager{
		scanner:  scanner,
		executor: executor,
		dir:      dir,
		logger:   logger.With("component", "migration"),
	}
}

// RunMigrations executes all pending migrations in sequential order
func (m *migrationManager) RunMigrations(ctx context.Context) error {
	start := time.Now()

	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		m.logger.ErrorContext(ctx, "failed to initialize schema_migrations table", "error", err)
		return fmt.Errorf("failed to initialize version table: %w", err)
	}

	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to resolve pending migrations", "error", err)
		return err
	}
	if len(pending) == 0 {
		m.logger.InfoContext(ctx, "database schema up to date")
		return nil
	}

	for i, migration := range pending {
		logger := m.logger.With("version", migration.Version, "description", migration.Description)
		logger.InfoContext(ctx, "applying migration", "position", i+1, "pending", len(pending))

		migrationStart := time.Now()
		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}

		elapsed := time.Since(migrationStart)
		if err := m.executor.RecordMigration(ctx, migration, elapsed); err != nil {
			logger.ErrorContext(ctx, "failed to record migration", "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "record migration", err)
		}
		logger.InfoContext(ctx, "migration applied", "duration", elapsed)
	}

	m.logger.InfoContext(ctx, "migrations completed", "applied", len(pending), "duration", time.Since(start))
	return nil
}

// GetPendingMigrations returns list of migrations that need to be applied
func (m *migrationManager) GetPendingMigrations(ctx context.Context) ([]Migration, error) {
	available, err := m.scanner.ScanMigrations(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	if err := validateSequence(available, applied); err != nil {
		return nil, err
	}

	appliedSet := make(map[string]bool, len(applied))
	for _, record := range applied {
		appliedSet[record.Version] = true
	}

	var pending []Migration
	for _, migration := range available {
		if !appliedSet[migration.Version] {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

// GetMigrationStatus returns status information about migrations
func (m *migrationManager) GetMigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		return nil, err
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	status := &MigrationStatus{
		PendingCount:      len(pending),
		AppliedMigrations: applied,
		PendingMigrations: pending,
	}
	highest := -1
	for _, record := range applied {
		if v := versionNumber(record.Version); v > highest {
			highest = v
			status.CurrentVersion = record.Version
		}
	}
	return status, nil
}

// validateSequence rejects gaps in the available versions, applied versions
// without a file, and applied files whose content changed.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	byVersion := make(map[int]Migration, len(available))
	for _, migration := range available {
		byVersion[versionNumber(migration.Version)] = migration
	}

	if len(available) > 0 {
		first := versionNumber(available[0].Version)
		last := versionNumber(available[len(available)-1].Version)
		for v := first; v <= last; v++ {
			if _, ok := byVersion[v]; !ok {
				return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, v)
			}
		}
	}

	for _, record := range applied {
		migration, ok := byVersion[versionNumber(record.Version)]
		if !ok {
			return fmt.Errorf("%w: applied migration %s not found in available migrations", ErrVersionConflict, record.Version)
		}
		if record.Checksum != "" && migration.Checksum != record.Checksum {
			return NewMigrationError(record.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return nil
}
