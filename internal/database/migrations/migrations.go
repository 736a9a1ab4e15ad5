package migrations

import (
	"embed"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/uptrace/bun"

	"ms-reservation/internal/logger"
)

//go:embed sql/*.sql
var SQL embed.FS

// Options configures the runner. An empty Dir uses the migrations compiled
// into the binary.
type Options struct {
	Dir         string
	AutoMigrate bool
}

// ErrDirtySchema means a migration failed halfway. The schema has to be
// repaired by hand and then forced to the last good version.
var ErrDirtySchema = errors.New("schema is dirty")

// migrator is the subset of *migrate.Migrate the runner drives.
type migrator interface {
	Version() (uint, bool, error)
	Up() error
	Down() error
	Migrate(version uint) error
	Force(version int) error
	Close() (error, error)
}

// Runner handles database migrations
type Runner struct {
	bunDB    *bun.DB
	options  Options
	migrator migrator
	logger   *logger.Logger
}

func NewRunner(bunDB *bun.DB, opts Options, log *logger.Logger) *Runner {
	return &Runner{bunDB: bunDB, options: opts, logger: log}
}

func (r *Runner) initialize() error {
	if r.migrator != nil {
		return nil
	}
	driver, err := postgres.WithInstance(r.bunDB.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres migration driver: %w", err)
	}

	var m *migrate.Migrate
	if r.options.Dir != "" {
		if _, err := os.Stat(r.options.Dir); os.IsNotExist(err) {
			return fmt.Errorf("migrations directory does not exist: %s", r.options.Dir)
		}
		m, err = migrate.NewWithDatabaseInstance("file://"+r.options.Dir, "postgres", driver)
	} else {
		src, srcErr := iofs.New(SQL, "sql")
		if srcErr != nil {
			return fmt.Errorf("failed to open embedded migrations: %w", srcErr)
		}
		m, err = migrate.NewWithInstance("iofs", src, "postgres", driver)
	}
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	r.migrator = m
	return nil
}

// Up applies every pending migration. It refuses to run on a dirty schema.
func (r *Runner) Up() error {
	if err := r.initialize(); err != nil {
		return err
	}
	version, dirty, err := r.migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		r.logger.Error("DATABASE", fmt.Sprintf("Migration %d did not complete; repair it and force version %d", version, int(version)-1))
		return fmt.Errorf("%w at version %d", ErrDirtySchema, version)
	}
	if err := r.migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	r.logVersion()
	return nil
}

// Down rolls back all migrations
func (r *Runner) Down() error {
	if err := r.initialize(); err != nil {
		return err
	}
	if err := r.migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// To migrates up or down to version.
func (r *Runner) To(version uint) error {
	if err := r.initialize(); err != nil {
		return err
	}
	if err := r.migrator.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration to version %d failed: %w", version, err)
	}
	r.logVersion()
	return nil
}

// Force records version as applied and clears the dirty flag without running
// anything. -1 means no migration applied.
func (r *Runner) Force(version int) error {
	if err := r.initialize(); err != nil {
		return err
	}
	if err := r.migrator.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	r.logger.Warn("DATABASE", fmt.Sprintf("Schema version forced to %d", version))
	return nil
}

// Version returns 0 when nothing was applied yet.
func (r *Runner) Version() (uint, bool, error) {
	if err := r.initialize(); err != nil {
		return 0, false, err
	}
	version, dirty, err := r.migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (r *Runner) logVersion() {
	if version, _, err := r.migrator.Version(); err == nil {
		r.logger.LogDatabase("MIGRATE", "schema_migrations", fmt.Sprintf("schema version %d", version))
	}
}

// Close frees resources associated with the migrator
func (r *Runner) Close() error {
	if r.migrator == nil {
		return nil
	}
	sourceErr, databaseErr := r.migrator.Close()
	if sourceErr != nil {
		return fmt.Errorf("error closing migrator source: %w", sourceErr)
	}
	if databaseErr != nil {
		return fmt.Errorf("error closing migrator database: %w", databaseErr)
	}
	return nil
}
