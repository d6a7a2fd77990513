package helper

//nolint:revive
import (
	"chalet/config"
	"chalet/migrations"
	"errors"
	"fmt"
	"net"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

func getDBName(config *config.Config, baseName string) string {
	if config.DB.Postgres.Prefix != "" {
		return config.DB.Postgres.Prefix + baseName
	}

	return baseName
}

// getConnection reads the schema embedded in the binary and applies it to the write database.
func getConnection(config *config.Config) (*migrate.Migrate, error) {
	write := config.DB.Postgres.Write

	connectionString := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s&x-migrations-table=%s",
		write.Username,
		write.Password,
		net.JoinHostPort(write.Host, write.Port),
		getDBName(config, write.Name),
		write.SSLMode,
		config.DB.Postgres.MigrationTable,
	)

	source, err := iofs.New(migrations.Postgres, migrations.PostgresDir)
	if err != nil {
		return nil, fmt.Errorf("error reading embedded migrations: %w", err)
	}

	mig, err := migrate.NewWithSourceInstance("iofs", source, connectionString)
	if err != nil {
		return nil, fmt.Errorf("error creating migrate instance: %w", err)
	}

	return mig, nil
}

func run(config *config.Config, action string, apply func(mig *migrate.Migrate) error) error {
	mig, err := getConnection(config)
	if err != nil {
		return err
	}

	defer mig.Close()

	if err := apply(mig); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error running %s migration: %w", action, err)
	}

	version, dirty, err := mig.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("error reading migration version: %w", err)
	}

	log.Info().Str("action", action).Uint("version", version).Bool("dirty", dirty).Msg("Database migration finished")

	return nil
}

// Up applies every pending migration.
func Up(config *config.Config) error {
	return run(config, "up", func(mig *migrate.Migrate) error { return mig.Up() })
}

func StepUp(config *config.Config) error {
	return run(config, "step-up", func(mig *migrate.Migrate) error { return mig.Steps(1) })
}

// Down rolls back the latest migration only.
func Down(config *config.Config) error {
	return run(config, "down", func(mig *migrate.Migrate) error { return mig.Steps(-1) })
}

// Drop rolls back every migration.
func Drop(config *config.Config) error {
	return run(config, "drop", func(mig *migrate.Migrate) error { return mig.Down() })
}

// Force marks version as applied and clean after a failed migration was repaired by hand.
func Force(config *config.Config, version int) error {
	return run(config, "force", func(mig *migrate.Migrate) error { return mig.Force(version) })
}

// Version only reports the current version.
func Version(config *config.Config) error {
	return run(config, "version", func(*migrate.Migrate) error { return nil })
}
