package commands

import (
	"database/sql"

	"github.com/OliverSieweke/supermarket-customer-behavior/am"
	"github.com/OliverSieweke/supermarket-customer-behavior/db"
	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
	"github.com/OliverSieweke/supermarket-customer-behavior/logger"
)

// openDatabase opens the configured SQLite database and runs migrations.
// An explicit path overrides the configured one. Callers own the returned
// handle and must Close it.
func openDatabase(path string) (*sql.DB, error) {
	if path == "" {
		cfg, err := am.Load()
		if err != nil {
			return nil, errors.Wrap(err, "failed to load configuration")
		}
		path = cfg.Database.Path
	}

	database, err := db.Open(path, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", path)
	}

	if err := db.Migrate(database, logger.Logger); err != nil {
		database.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	return database, nil
}
