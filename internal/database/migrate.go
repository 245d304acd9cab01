package database

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	iofs "github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Direction of a migration run.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

func newMigrator(ctx context.Context, db *sqlx.DB) (*migrate.Migrate, func() error, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to acquire migration connection: %w", err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to initialize postgres driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		_ = driver.Close()
		return nil, nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = source.Close()
		_ = driver.Close()
		return nil, nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	closeFn := func() error {
		srcErr, dbErr := m.Close()
		return errors.Join(srcErr, dbErr)
	}
	return m, closeFn, nil
}

// Migrate applies (or rolls back) every bundled migration.
func Migrate(ctx context.Context, db *sqlx.DB, dir Direction, log zerolog.Logger) (err error) {
	m, closeFn, err := newMigrator(ctx, db)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeFn(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close migrator: %w", closeErr)
		}
	}()

	version, dirty, verr := m.Version()
	switch {
	case errors.Is(verr, migrate.ErrNilVersion):
		log.Info().Msg("no migrations have been applied yet")
	case verr != nil:
		log.Warn().Err(verr).Msg("failed to read migration version")
	default:
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("current migration state")
	}

	if dirty {
		log.Warn().Uint("version", version).Msg("database is dirty, forcing version")
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version %d: %w", version, err)
		}
	}

	switch dir {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", dir)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Str("direction", string(dir)).Msg("no migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to migrate %s: %w", dir, err)
	}

	log.Info().Str("direction", string(dir)).Msg("migrations applied")
	return nil
}
