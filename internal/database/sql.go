package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported SQL drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ConnectSQL opens and pings a SQL database. In-memory SQLite databases are
// pinned to one connection so every query sees the same schema.
func ConnectSQL(ctx context.Context, driver, dsn string, timeout time.Duration) (*sqlx.DB, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("sql connect: unsupported driver %q", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sql ping: %w", err)
	}
	return db, nil
}

func newMigrator(db *sqlx.DB, driver string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	var inst migratedb.Driver
	switch driver {
	case DriverPostgres:
		inst, err = migratepg.WithInstance(db.DB, &migratepg.Config{})
	case DriverSQLite:
		inst, err = migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	default:
		err = fmt.Errorf("unsupported driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, driver, inst)
	if err != nil {
		return nil, fmt.Errorf("migrate instance: %w", err)
	}
	return m, nil
}

// Migrate applies every pending embedded migration. A dirty schema is forced
// back to its recorded version first.
func Migrate(db *sqlx.DB, driver string) error {
	m, err := newMigrator(db, driver)
	if err != nil {
		return err
	}
	ver, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration version: %w", err)
	}
	if dirty {
		if err := m.Force(int(ver)); err != nil {
			return fmt.Errorf("force migration version %d: %w", ver, err)
		}
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// MigrateDown reverts every applied migration.
func MigrateDown(db *sqlx.DB, driver string) error {
	m, err := newMigrator(db, driver)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("revert migrations: %w", err)
	}
	return nil
}

// MigrationVersion reports the applied schema version (0 when none).
func MigrationVersion(db *sqlx.DB, driver string) (uint, bool, error) {
	m, err := newMigrator(db, driver)
	if err != nil {
		return 0, false, err
	}
	ver, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return ver, dirty, err
}

// DriverFromDSN guesses the driver for a DSN: postgres URLs and key/value
// strings map to postgres, everything else to sqlite.
func DriverFromDSN(dsn string) string {
	d := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://") || strings.Contains(d, "host=") {
		return DriverPostgres
	}
	return DriverSQLite
}
