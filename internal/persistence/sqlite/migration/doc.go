// Package migration applies versioned SQL migrations to the SQLite store.
//
// Migration files are read from an fs.FS (normally the embedded migrations
// directory of the sqlite package) and follow the naming convention
// {version}_{description}.sql, e.g. "001_initial_schema.sql". Applied
// versions are tracked in the schema_migrations table so each file runs once.
//
//	manager := NewMigrationManager(NewFileScanner(files), NewSQLiteExecutor(db), ".", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
