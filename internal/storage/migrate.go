package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations brings the SQLite schema at dbPath up to date.
func RunMigrations(dbPath string) error {
	// Separate connection so the migrator's Close does not touch the repository pool
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer db.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}
	return Migrate(migrationsFS, "sqlite", driver)
}

// Migrate applies every pending up migration found under migrations/ in
// fsys to driver. An already current schema is not an error.
func Migrate(fsys fs.FS, dbName string, driver database.Driver) error {
	src, err := iofs.New(fsys, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dbName, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run %s migrations: %w", dbName, err)
	}
	return nil
}
