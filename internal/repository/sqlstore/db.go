// Package sqlstore persists telemetry through sqlx on PostgreSQL (pgx) or
// SQLite.
package sqlstore

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"taxrecon/db"
	"taxrecon/internal/config"
)

// Supported driver names.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

// NewDB opens a connection pool for the configured driver.
func NewDB(cfg *config.DBConfig) (*sqlx.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverPostgres
	}
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("sqlstore.NewDB: unsupported driver %q", driver)
	}

	conn, err := sqlx.Connect(driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One connection keeps in-memory databases shared and writes serialized.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(cfg.MaxOpen)
		conn.SetMaxIdleConns(cfg.MaxIdle)
	}
	return conn, nil
}

// Migrate applies every pending embedded migration. SQLite migrates through
// conn itself, which may be an in-memory database. PostgreSQL migrates over a
// separate connection that is closed afterwards, leaving conn's pool intact.
func Migrate(cfg *config.DBConfig, conn *sqlx.DB) error {
	target := conn
	if conn.DriverName() != DriverSQLite {
		own, err := NewDB(cfg)
		if err != nil {
			return fmt.Errorf("sqlstore.Migrate: %w", err)
		}
		target = own
	}

	m, err := NewMigrator(target)
	if err != nil {
		if target != conn {
			_ = target.Close()
		}
		return err
	}
	if target != conn {
		defer m.Close()
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlstore.Migrate: up: %w", err)
	}
	version, dirty, _ := m.Version()
	log.Info().Uint("version", version).Bool("dirty", dirty).Str("driver", target.DriverName()).
		Msg("sqlstore.Migrate: schema up to date")
	return nil
}

// NewMigrator builds a migrate instance over an open connection. Closing the
// returned instance also closes conn.
func NewMigrator(conn *sqlx.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(db.Migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("sqlstore.NewMigrator: loading migrations: %w", err)
	}

	var driver database.Driver
	switch conn.DriverName() {
	case DriverSQLite:
		driver, err = sqlite3.WithInstance(conn.DB, &sqlite3.Config{})
	default:
		driver, err = postgres.WithInstance(conn.DB, &postgres.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore.NewMigrator: database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, conn.DriverName(), driver)
	if err != nil {
		return nil, fmt.Errorf("sqlstore.NewMigrator: %w", err)
	}
	return m, nil
}
