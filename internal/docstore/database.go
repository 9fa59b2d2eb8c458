package docstore

import (
	"context"
	"embed"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratesqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations
var migrationFiles embed.FS

// NewDB creates a new database connection pool for the "mysql" or "sqlite3" driver.
func NewDB(driver, dsn string) (*sqlx.DB, error) {
	// sqlx.Connect opens a connection and pings it to verify it's alive.
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == "sqlite3" {
		// One connection keeps in-memory databases shared and writes serialized.
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// ApplyMigrations runs all up migrations embedded for the pool's driver.
func ApplyMigrations(db *sqlx.DB) error {
	driverName := db.DriverName()
	sourceDriver, err := iofs.New(migrationFiles, "migrations/"+driverName)
	if err != nil {
		return fmt.Errorf("failed to read migrations for %s: %w", driverName, err)
	}

	var dbDriver database.Driver
	switch driverName {
	case "mysql":
		dbDriver, err = migratemysql.WithInstance(db.DB, &migratemysql.Config{})
	case "sqlite3":
		dbDriver, err = migratesqlite3.WithInstance(db.DB, &migratesqlite3.Config{})
	default:
		err = fmt.Errorf("no migrations for driver %q", driverName)
	}
	if err != nil {
		sourceDriver.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// The migrate instance is not closed: that would close the caller's pool.
	m, err := migrate.NewWithInstance("iofs", sourceDriver, driverName, dbDriver)
	if err != nil {
		sourceDriver.Close()
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Open builds the Store selected by driver. SQL drivers get their migrations
// applied; the returned pool is nil for non-SQL drivers.
func Open(ctx context.Context, driver, dsn, mongoURI, mongoDatabase string) (Store, *sqlx.DB, error) {
	switch driver {
	case "mysql", "sqlite3":
		db, err := NewDB(driver, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := ApplyMigrations(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return NewSQLStore(db), db, nil
	case "mongo":
		store, err := NewMongoStore(ctx, mongoURI, mongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case "memory":
		return NewMemoryStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported document store driver %q", driver)
	}
}
