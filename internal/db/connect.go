package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

const (
	defaultSQLiteDSN   = "file:gradebook.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	defaultPostgresDSN = "postgres://localhost:5432/gradebook?sslmode=disable"
)

func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sqlite", "sqlite3", "":
		return DriverSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", s)
	}
}

func (d Driver) sqlName() string {
	if d == DriverPostgres {
		return "pgx" // pgx stdlib driver
	}
	return "sqlite" // modernc driver
}

func (d Driver) dsn(dsn string) string {
	if dsn != "" {
		return dsn
	}
	if d == DriverPostgres {
		return defaultPostgresDSN
	}
	return defaultSQLiteDSN
}

// Connect opens and pings a handle without touching the schema.
func Connect(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
	db, err := sql.Open(driver.sqlName(), driver.dsn(dsn))
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer; an in-memory database also lives only as long as its
		// last connection
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite pragmas: %w", err)
		}
	}
	return db, nil
}

// Open opens a DB and migrates it to the latest schema.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	db, err := Connect(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	// db stays open while migrations run on their own handle, which keeps a
	// shared in-memory sqlite database alive between the two.
	if _, err := Migrate(ctx, driver, dsn, -1); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
