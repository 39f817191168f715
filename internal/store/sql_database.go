package store

import (
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/migrations"
)

// DB wraps a SQL connection together with the placeholder dialect its
// queries must be built with and an error classifier for the driver.
type DB struct {
	*sql.DB
	builder            sq.StatementBuilderType
	dialect            string
	errorClassificator ErrorClassificator
	logger             *logger.Logger
}

// Migrate applies the embedded goose migrations for the DB's dialect.
func (db *DB) Migrate() error {
	return migrations.Migrate(db.DB, db.dialect)
}

// ErrorClassificator decides whether a failed database operation is worth
// retrying. Implementations are driver specific.
type ErrorClassificator interface {
	Classify(err error) ErrorClassification
}
