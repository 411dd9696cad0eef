package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/vikal-platform/vikal/migrations"
)

// ErrDirtySchema means an earlier migration failed halfway. It has to be
// repaired by hand with `migrate force` before the service can start.
var ErrDirtySchema = errors.New("database schema is dirty")

// RunMigrations brings the quota and stats schema up to date. An empty dir
// uses the migrations embedded in the binary; otherwise dir is read from
// disk.
func RunMigrations(dsn, dir string) error {
	m, source, err := newMigrator(dsn, dir)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if ver, dirty, err := m.Version(); err == nil && dirty {
		return fmt.Errorf("%w at version %d", ErrDirtySchema, ver)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}

	ver, _, _ := m.Version()
	slog.Info("database: schema up to date", "version", ver, "source", source)
	return nil
}

func newMigrator(dsn, dir string) (*migrate.Migrate, string, error) {
	if dir != "" {
		m, err := migrate.New("file://"+dir, dsn)
		return m, dir, err
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, "", err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	return m, "embedded", err
}
