// Package migration applies versioned schema migrations to the entitlement
// database.
package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Runner wraps golang-migrate with the service's connection handling
type Runner struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// NewRunner opens the database and prepares the migration source. The caller
// must Close the runner; that also closes the connection.
func NewRunner(dsn, sourcePath string, log *zap.Logger) (*Runner, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+sourcePath, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare migration source: %w", err)
	}

	return &Runner{m: m, log: log}, nil
}

// Apply runs every pending migration
func (r *Runner) Apply() error {
	err := r.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		r.log.Info("schema already current")
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, _ := r.m.Version()
	r.log.Info("schema migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Rollback reverts every applied migration
func (r *Runner) Rollback() error {
	err := r.m.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		r.log.Info("nothing to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	r.log.Info("schema rolled back")
	return nil
}

// Steps applies n migrations; negative n reverts
func (r *Runner) Steps(n int) error {
	err := r.m.Steps(n)
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply %d migration steps: %w", n, err)
	}
	return nil
}

// Version reports the current schema version and whether it is dirty
func (r *Runner) Version() (uint, bool, error) {
	version, dirty, err := r.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Force overwrites the recorded version. Only for repairing a dirty schema
// after a failed migration.
func (r *Runner) Force(version int) error {
	r.log.Warn("forcing schema version", zap.Int("version", version))
	return r.m.Force(version)
}

// Close releases the migration source and the database connection
func (r *Runner) Close() error {
	sourceErr, dbErr := r.m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	return dbErr
}
