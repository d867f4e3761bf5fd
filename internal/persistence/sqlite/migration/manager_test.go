package migration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"
)

type mockFileScanner struct {
	migrations []Migration
	scanError  error
}

func (m *mockFileScanner) ScanMigrations(string) ([]Migration, error) {
	if m.scanError != nil {
		return nil, m.scanError
	}
	return m.migrations, nil
}

func (m *mockFileScanner) ValidateFileName(string) error { return nil }

type mockExecutor struct {
	applied        []AppliedMigration
	executionError error
	executed       []string
}

func (m *mockExecutor) ExecuteMigration(_ context.Context, migration Migration) error {
	if m.executionError != nil {
		return m.executionError
	}
	m.executed = append(m.executed, migration.Version)
	return nil
}

func (m *mockExecutor) InitializeVersionTable(context.Context) error { return nil }

func (m *mockExecutor) RecordMigration(_ context.Context, migration Migration, d time.Duration) error {
	m.applied = append(m.applied, AppliedMigration{Version: migration.Version, Checksum: migration.Checksum, ExecutionTime: d})
	return nil
}

func (m *mockExecutor) GetAppliedVersions(context.Context) ([]AppliedMigration, error) {
	return m.applied, nil
}

func TestMigrationManager_RunMigrations(t *testing.T) {
	t.Run("applies only pending migrations in order", func(t *testing.T) {
		scanner := &mockFileScanner{migrations: []Migration{
			{Version: "001", Checksum: "a"},
			{Version: "002", Checksum: "b"},
			{Version: "003", Checksum: "c"},
		}}
		executor := &mockExecutor{applied: []AppliedMigration{{Version: "001", Checksum: "a"}}}

		if err := NewMigrationManager(scanner, executor, ".", nil).RunMigrations(context.Background()); err != nil {
			t.Fatalf("RunMigrations failed: %v", err)
		}
		if len(executor.executed) != 2 || executor.executed[0] != "002" || executor.executed[1] != "003" {
			t.Fatalf("unexpected execution order %v", executor.executed)
		}
	})

	t.Run("rejects gaps in the sequence", func(t *testing.T) {
		scanner := &mockFileScanner{migrations: []Migration{{Version: "001"}, {Version: "003"}}}
		err := NewMigrationManager(scanner, &mockExecutor{}, ".", nil).RunMigrations(context.Background())
		if !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})

	t.Run("rejects edited applied migrations", func(t *testing.T) {
		scanner := &mockFileScanner{migrations: []Migration{{Version: "001", Checksum: "new"}}}
		executor := &mockExecutor{applied: []AppliedMigration{{Version: "001", Checksum: "old"}}}
		err := NewMigrationManager(scanner, executor, ".", nil).RunMigrations(context.Background())
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("expected ErrChecksumMismatch, got %v", err)
		}
	})

	t.Run("wraps execution failures", func(t *testing.T) {
		scanner := &mockFileScanner{migrations: []Migration{{Version: "001"}}}
		executor := &mockExecutor{executionError: errors.New("boom")}
		err := NewMigrationManager(scanner, executor, ".", nil).RunMigrations(context.Background())
		if !errors.Is(err, ErrMigrationFailed) {
			t.Fatalf("expected ErrMigrationFailed, got %v", err)
		}
		var migrationErr *MigrationError
		if !errors.As(err, &migrationErr) || migrationErr.Version != "001" {
			t.Fatalf("expected MigrationError for 001, got %v", err)
		}
	})
}

func TestMigrationManager_RealDatabase(t *testing.T) {
	db, err := NewConnectionManager(TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "migrate.db"))).GetConnection()
	if err != nil {
		t.Fatalf("GetConnection failed: %v", err)
	}
	defer db.Close()

	files := fstest.MapFS{
		"001_create_items.sql": {Data: []byte("CREATE TABLE items (id TEXT PRIMARY KEY, name TEXT NOT NULL);")},
		"002_seed_items.sql":   {Data: []byte("INSERT INTO items (id, name) VALUES ('a', 'first');\nINSERT INTO items (id, name) VALUES ('b', 'second');")},
	}
	manager := NewMigrationManager(NewFileScanner(files), NewSQLiteExecutor(db), ".", nil)

	ctx := context.Background()
	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("second RunMigrations failed: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected seed rows applied once, got %d", count)
	}

	status, err := manager.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if status.CurrentVersion != "002" || status.PendingCount != 0 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestSQLiteExecutor_RollsBackFailedMigration(t *testing.T) {
	db, err := NewConnectionManager(TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "rollback.db"))).GetConnection()
	if err != nil {
		t.Fatalf("GetConnection failed: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	executor := NewSQLiteExecutor(db)
	err = executor.ExecuteMigration(ctx, Migration{
		Version: "001",
		SQL:     "CREATE TABLE t (id TEXT);\nINSERT INTO missing_table VALUES (1);",
	})
	var dbErr *DatabaseError
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected DatabaseError, got %v", err)
	}

	var name string
	err = db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 't'").Scan(&name)
	if err == nil {
		t.Fatal("expected table creation to be rolled back")
	}
}
