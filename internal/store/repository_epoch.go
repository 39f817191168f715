// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/models"
)

// epochRepository is the SQL-backed implementation of [EpochRepository].
type epochRepository struct {
	*DB
	logger *logger.Logger
}

// NewEpochRepository constructs an [EpochRepository] backed by the given
// database connection and logger.
func NewEpochRepository(db *DB, logger *logger.Logger) EpochRepository {
	return &epochRepository{
		DB:     db,
		logger: logger,
	}
}

// Save implements [EpochRepository].
func (r *epochRepository) Save(ctx context.Context, epoch models.KeyEpoch, wrappedDEK []byte) error {
	log := logger.FromContext(ctx)

	query, args, err := r.builder.
		Insert("key_epochs").
		Columns("key_id", "company_id", "created_at", "status", "wrapped_dek").
		Values(epoch.KeyID, epoch.CompanyID, epoch.CreatedAt, string(epoch.Status), wrappedDEK).
		Suffix(`ON CONFLICT (key_id) DO UPDATE SET
			status = excluded.status,
			wrapped_dek = excluded.wrapped_dek`).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "epochRepository.Save").
			Str("key_id", epoch.KeyID).
			Str("status", string(epoch.Status)).
			Msg("failed to upsert key epoch")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// List implements [EpochRepository].
func (r *epochRepository) List(ctx context.Context, companyID string) ([]EpochRecord, error) {
	query, args, err := r.builder.
		Select("key_id", "company_id", "created_at", "status", "wrapped_dek").
		From("key_epochs").
		Where(sq.Eq{"company_id": companyID}).
		OrderBy("created_at", "key_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	records := make([]EpochRecord, 0, 4)
	for rows.Next() {
		var rec EpochRecord
		var status string
		if err = rows.Scan(&rec.Epoch.KeyID, &rec.Epoch.CompanyID, &rec.Epoch.CreatedAt, &status, &rec.WrappedDEK); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		rec.Epoch.Status = models.EpochStatus(status)
		records = append(records, rec)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return records, nil
}
