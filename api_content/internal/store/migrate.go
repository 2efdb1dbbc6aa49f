package store

import (
	"database/sql"
	"embed"

	"tastesync/pkg/database"
	"tastesync/pkg/logging"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the schema up to date.
func Migrate(db *sql.DB, logger logging.Logger) error {
	return database.Migrate(db, migrations, "migrations", logger)
}
