package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"bear-kitchen/internal/shared"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // Pure Go sqlite driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const dsnFormat = "file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"

// DB provides a centralized database connection
type DB struct {
	SQL  *sql.DB
	path string
}

// NewDB initializes the SQLite database and runs migrations.
// Storage that cannot be read or migrated is reported as shared.ErrStorage
// and never repaired.
func NewDB(dbPath string, logger zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w: %w", shared.ErrStorage, err)
	}

	// The schema must be current before any repository touches it.
	if err := RunMigrations(dbPath, logger); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", fmt.Sprintf(dsnFormat, dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w: %w", shared.ErrStorage, err)
	}
	// One connection keeps every storage operation on a single logical thread.
	db.SetMaxOpenConns(1)

	if err := checkIntegrity(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{SQL: db, path: dbPath}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.SQL.Close()
}

// Path returns the file the database lives in.
func (d *DB) Path() string {
	return d.path
}

// SchemaVersion reports the last applied migration.
func (d *DB) SchemaVersion(ctx context.Context) (uint, error) {
	var (
		version int64
		dirty   bool
	)
	err := d.SQL.QueryRowContext(ctx, "SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &dirty)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w: %w", shared.ErrStorage, err)
	}
	if dirty {
		return uint(version), fmt.Errorf("schema version %d is dirty: %w", version, shared.ErrStorage)
	}
	return uint(version), nil
}

// RunMigrations applies database migrations using golang-migrate.
// Re-running against an up to date database is a no-op.
func RunMigrations(databasePath string, logger zerolog.Logger) error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create iofs driver: %w", err)
	}

	databaseURL := fmt.Sprintf("sqlite://%s", databasePath)

	m, err := migrate.NewWithSourceInstance("iofs", d, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w: %w", shared.ErrStorage, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug().Str("path", databasePath).Msg("database schema already current")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w: %w", shared.ErrStorage, err)
	}

	version, _, _ := m.Version()
	logger.Info().Str("path", databasePath).Uint("version", version).Msg("database migrations applied")
	return nil
}

func checkIntegrity(db *sql.DB) error {
	var result string
	if err := db.QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("failed to check database integrity: %w: %w", shared.ErrStorage, err)
	}
	if result != "ok" {
		return fmt.Errorf("database integrity check failed: %s: %w", result, shared.ErrStorage)
	}
	return nil
}
