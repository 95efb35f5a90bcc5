package iocache

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/schema"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// bootstrapMigrations are applied directly when an analysis store opens, so a
// fresh database is usable without running the migrate command first.
var bootstrapMigrations = []string{
	"000001_create_analysis_runs.up.sql",
	"000002_create_test_risks.up.sql",
}

// MigrationResult describes what a call to MigrateAnalysis did.
type MigrationResult struct {
	FromVersion uint
	ToVersion   uint
	Changed     bool
}

// String renders the result the way the CLI reports it.
func (r MigrationResult) String() string {
	if !r.Changed {
		return fmt.Sprintf("No migration needed. Database is already at version %d", r.ToVersion)
	}
	return fmt.Sprintf("Successfully migrated from version %d to version %d", r.FromVersion, r.ToVersion)
}

// migrationSource returns the embedded migrations of one backend.
func migrationSource(backend schema.DatabaseBackend) (fs.FS, error) {
	sub, err := fs.Sub(migrationsFS, path.Join("migrations", string(backend)))
	if err != nil {
		return nil, fmt.Errorf("failed to access migrations for %s: %w", backend, err)
	}
	return sub, nil
}

// bootstrapSchema creates the analysis tables if they do not exist yet.
func bootstrapSchema(db *sql.DB, backend schema.DatabaseBackend) error {
	src, err := migrationSource(backend)
	if err != nil {
		return err
	}
	for _, name := range bootstrapMigrations {
		ddl, err := fs.ReadFile(src, name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(ddl)); err != nil {
			return fmt.Errorf("failed to apply %s: %w", name, err)
		}
	}
	return nil
}

// MigrateAnalysis runs database migrations for the analysis store.
//   - If targetVersion < 0, it migrates to the latest version.
//   - If targetVersion == 0, it rolls back all migrations.
//   - If targetVersion > 0, it migrates to the specified version.
func MigrateAnalysis(backend schema.DatabaseBackend, connStr string, targetVersion int) (MigrationResult, error) {
	var result MigrationResult
	if backend == schema.NoneBackend {
		return result, errors.New("migrations are not supported for NoneBackend")
	}

	db, err := openDatabase(backend, connStr, contract.GetAnalysisDBFilePath())
	if err != nil {
		return result, err
	}
	defer func() { _ = db.Close() }()

	var driver database.Driver
	switch backend {
	case schema.SQLiteBackend:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	case schema.MySQLBackend:
		driver, err = mysql.WithInstance(db, &mysql.Config{})
	case schema.PostgreSQLBackend:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	}
	if err != nil {
		return result, fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}

	src, err := migrationSource(backend)
	if err != nil {
		return result, err
	}
	sourceDriver, err := iofs.New(src, ".")
	if err != nil {
		return result, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "cpkwatch", driver)
	if err != nil {
		return result, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	current, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return result, fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return result, fmt.Errorf("database is in a dirty state at version %d. Please fix manually or force version", current)
	}
	result.FromVersion = current

	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	if errors.Is(err, migrate.ErrNoChange) {
		result.ToVersion = current
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("failed to migrate analysis store: %w", err)
	}

	next, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return result, fmt.Errorf("failed to read migrated version: %w", err)
	}
	result.ToVersion = next
	result.Changed = true
	return result, nil
}
