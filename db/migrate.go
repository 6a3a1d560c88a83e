package db

import (
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
	"github.com/OliverSieweke/supermarket-customer-behavior/sym"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

const migrationsDir = "sqlite/migrations"

// bootstrapVersion is the migration that creates schema_migrations itself.
const bootstrapVersion = "000"

// Migrate brings the schema up to date, applying each pending migration in
// its own transaction. A nil logger runs silently.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	files, err := migrationFiles()
	if err != nil {
		return err
	}

	for _, filename := range files {
		version := migrationVersion(filename)

		applied, err := migrationApplied(db, version)
		if err != nil {
			// schema_migrations does not exist until the bootstrap migration ran.
			if version != bootstrapVersion {
				return errors.Newf("schema_migrations table missing, but migration is not %s: %s",
					bootstrapVersion, filename)
			}
		} else if applied {
			if logger != nil {
				logger.Debugw("Skipping migration (already applied)",
					"migration", filename, "version", version)
			}
			continue
		}

		if logger != nil {
			logger.Infow("Applying migration", "migration", filename, "version", version)
		}
		if err := applyMigration(db, filename, version); err != nil {
			return err
		}
	}

	if logger != nil {
		logger.Infow("Migrations complete",
			"symbol", sym.DB, "total_migrations", len(files))
	}
	return nil
}

// migrationFiles lists the embedded .sql migrations in apply order. Filenames
// are NNN_description.sql, so a lexical sort runs the bootstrap first.
func migrationFiles() ([]string, error) {
	entries, err := migrations.ReadDir(migrationsDir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}

	files := []string{}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// migrationVersion extracts the numeric prefix of a migration filename.
func migrationVersion(filename string) string {
	return strings.Split(filename, "_")[0]
}

// migrationApplied reports whether a version is recorded in schema_migrations.
// Errors when the table does not exist yet.
func migrationApplied(db *sql.DB, version string) (bool, error) {
	var applied bool
	err := db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)",
		version).Scan(&applied)
	if err != nil {
		return false, err
	}
	return applied, nil
}

// applyMigration executes one migration and records its version, both inside
// a single transaction. The bootstrap migration creates schema_migrations and
// then records itself through the same insert.
func applyMigration(db *sql.DB, filename, version string) error {
	script, err := migrations.ReadFile(path.Join(migrationsDir, filename))
	if err != nil {
		return errors.Wrapf(err, "read %s", filename)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrapf(err, "begin tx for %s", filename)
	}

	if _, err := tx.Exec(string(script)); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "execute %s", filename)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "record %s", filename)
	}
	return errors.Wrapf(tx.Commit(), "commit %s", filename)
}
