package swapdb

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:generate sqlc generate -f ../sqlc.yaml

//go:embed sqlc/migrations/*.up.sql sqlc/migrations/*.down.sql
var sqlSchemas embed.FS

// applyMigrations brings the target database up to the latest schema using
// the migrations found under path in the given file system.
func applyMigrations(fs embed.FS, driver database.Driver, path,
	dbName string) error {

	source, err := iofs.New(fs, path)
	if err != nil {
		return fmt.Errorf("unable to open migrations: %w", err)
	}

	migrator, err := migrate.NewWithInstance(
		"migrations", source, dbName, driver,
	)
	if err != nil {
		return err
	}

	version, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}

	log.Infof("Applying migrations from version=%v, dirty=%v", version,
		dirty)

	err = migrator.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("unable to migrate: %w", err)
	}

	return nil
}
