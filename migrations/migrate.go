package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var embedMigrations embed.FS

// Migrate applies the embedded schema migrations for the given dialect:
// "pgx" for the hub's Postgres, "sqlite3" for the device-local vault file.
// Both dialects carry the same logical schema, so a device replica and the
// hub store entities, key epochs and audit entries identically.
func Migrate(db *sql.DB, dialect string) error {
	if db == nil {
		return fmt.Errorf("migration error: db is nil")
	}

	var dir string
	switch dialect {
	case "pgx", "postgres":
		dir = "postgres"
	case "sqlite3", "sqlite":
		dir = "sqlite"
	default:
		return fmt.Errorf("migration error: unsupported dialect %q", dialect)
	}

	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("migration error setting dialect for db: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}
