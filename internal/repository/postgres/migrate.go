package postgres

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies every pending up migration. Running it against an
// up-to-date schema is a no-op.
func Migrate(databaseURL string, logger zerolog.Logger) error {
	m, closeDB, err := newMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer closeDB()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info().Msg("No new migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("Database migrations applied")
	return nil
}

// MigrateDown rolls back the given number of migrations
func MigrateDown(databaseURL string, steps int, logger zerolog.Logger) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive")
	}

	m, closeDB, err := newMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	logger.Info().Int("steps", steps).Msg("Database migrations rolled back")
	return nil
}

func newMigrator(databaseURL string) (*migrate.Migrate, func(), error) {
	// pgx/v5/stdlib keeps migrations on the same driver as the pool
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open migration connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping database for migrations: %w", err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create migration driver: %w", err)
	}

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create migrator: %w", err)
	}

	closeDB := func() {
		// closing the migrator closes the database handle as well
		m.Close()
	}
	return m, closeDB, nil
}
