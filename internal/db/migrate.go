// Package db provides database schema migration management.
package db

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	apperrors "github.com/tetondan64/recordergear/backend/internal/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// newMigrate builds a migrate instance over the embedded migration files.
// The caller owns db; the instance is not closed here because closing it
// would close the connection.
func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMigration, "reading embedded migrations", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMigration, "creating migration driver", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMigration, "creating migrate instance", err)
	}
	return m, nil
}

// MigrateUp applies all pending migrations.
func MigrateUp(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return apperrors.Wrap(apperrors.ErrMigration, "applying migrations", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil {
		return apperrors.Wrap(apperrors.ErrMigration, "rolling back migration", err)
	}
	return nil
}

// MigrationVersion returns the current schema version and whether the
// database is in a dirty state. A fresh database reports version 0.
func MigrationVersion(db *sql.DB) (uint, bool, error) {
	m, err := newMigrate(db)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, apperrors.Wrap(apperrors.ErrMigration, "reading schema version", err)
	}
	return version, dirty, nil
}
