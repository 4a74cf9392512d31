package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

func newMigrate(ctx context.Context, driver Driver, dsn string) (*migrate.Migrate, error) {
	conn, err := Connect(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}

	var target database.Driver
	switch driver {
	case DriverSQLite:
		target, err = sqlite.WithInstance(conn, &sqlite.Config{})
	case DriverPostgres:
		target, err = postgres.WithInstance(conn, &postgres.Config{})
	}
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create %s migrate driver: %w", driver, err)
	}

	sub, err := fs.Sub(migrationsFS, "migrations/"+string(driver))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to access migrations directory: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "gradebook", target)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// Migrate moves the schema and returns the version it ends on.
//   - target < 0 migrates to the latest version.
//   - target == 0 rolls every migration back.
//   - target > 0 migrates to exactly that version.
func Migrate(ctx context.Context, driver Driver, dsn string, target int) (uint, error) {
	m, err := newMigrate(ctx, driver, dsn)
	if err != nil {
		return 0, err
	}
	defer func() { _, _ = m.Close() }()

	if _, dirty, err := m.Version(); err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("failed to get current migration version: %w", err)
	} else if dirty {
		return 0, errors.New("database is in a dirty migration state; fix it manually or force a version")
	}

	switch {
	case target < 0:
		err = m.Up()
	case target == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(target))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migration failed: %w", err)
	}
	v, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	return v, err
}

// Version reports the current schema version. A database that was never
// migrated reports 0.
func Version(ctx context.Context, driver Driver, dsn string) (uint, bool, error) {
	m, err := newMigrate(ctx, driver, dsn)
	if err != nil {
		return 0, false, err
	}
	defer func() { _, _ = m.Close() }()
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}
