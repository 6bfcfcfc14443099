package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var slotMigrations embed.FS

// migrateSlotSchema brings the kv table at dbPath up to date and reports the
// resulting schema version. The migrator owns its own handle: closing it
// closes the underlying *sql.DB.
func migrateSlotSchema(dbPath string) (uint, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open migration handle: %w", err)
	}
	defer db.Close()

	target, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("sqlite migration driver: %w", err)
	}
	source, err := iofs.New(slotMigrations, "migrations")
	if err != nil {
		return 0, fmt.Errorf("embedded migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", target)
	if err != nil {
		return 0, fmt.Errorf("migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply slot migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("slot schema version %d is dirty", version)
	}
	return version, nil
}
