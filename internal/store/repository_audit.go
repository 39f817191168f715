// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/models"
)

// auditRepository is the SQL-backed implementation of [AuditRepository].
// The table is append-only by construction: this type exposes no update or
// delete statement, and nothing else writes to audit_log.
type auditRepository struct {
	*DB
	logger *logger.Logger
}

// NewAuditRepository constructs an [AuditRepository] backed by the given
// database connection and logger.
func NewAuditRepository(db *DB, logger *logger.Logger) AuditRepository {
	return &auditRepository{
		DB:     db,
		logger: logger,
	}
}

// Append implements [AuditRepository].
func (r *auditRepository) Append(ctx context.Context, entry models.AuditEntry) error {
	log := logger.FromContext(ctx)

	var conflict sql.NullString
	if entry.Conflict != nil {
		raw, err := json.Marshal(entry.Conflict)
		if err != nil {
			return fmt.Errorf("encode conflict descriptor: %w", err)
		}
		conflict = sql.NullString{String: string(raw), Valid: true}
	}

	query, args, err := r.builder.
		Insert("audit_log").
		Columns("id", "company_id", "entity_id", "entity_type", "actor_device", "ts", "kind", "summary", "conflict").
		Values(entry.ID, entry.CompanyID, entry.EntityID, string(entry.EntityType),
			entry.ActorDevice, entry.Timestamp, string(entry.Kind), entry.Summary, conflict).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "auditRepository.Append").
			Str("entity_id", entry.EntityID).
			Str("kind", string(entry.Kind)).
			Msg("failed to append audit entry")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// ConflictsSince implements [AuditRepository].
func (r *auditRepository) ConflictsSince(ctx context.Context, companyID string, since time.Time) ([]models.ConflictDescriptor, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.builder.
		Select("conflict").
		From("audit_log").
		Where(sq.And{
			sq.Eq{"company_id": companyID, "kind": string(models.AuditConflict)},
			sq.GtOrEq{"ts": since},
		}).
		OrderBy("ts", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "auditRepository.ConflictsSince").
			Str("company_id", companyID).
			Msg("failed to query conflicts")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	conflicts := make([]models.ConflictDescriptor, 0, 16)
	for rows.Next() {
		var raw sql.NullString
		if err = rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		if !raw.Valid {
			// A CONFLICT entry without a descriptor would be a writer bug;
			// skip it rather than fail the whole query.
			continue
		}

		var descriptor models.ConflictDescriptor
		if err = json.Unmarshal([]byte(raw.String), &descriptor); err != nil {
			return nil, fmt.Errorf("decode conflict descriptor: %w", err)
		}
		conflicts = append(conflicts, descriptor)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return conflicts, nil
}
