// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/models"
)

// entityRepository is the SQL-backed implementation of [EntityRepository].
// The entity row carries the merge metadata (vector, tombstone, actor);
// the ciphered fields live in the entity_fields table keyed by field name,
// so "entities still referencing epoch X" is a plain indexed query instead
// of a scan over serialized blobs.
type entityRepository struct {
	*DB
	logger *logger.Logger
}

// NewEntityRepository constructs an [EntityRepository] backed by the given
// database connection and logger.
func NewEntityRepository(db *DB, logger *logger.Logger) EntityRepository {
	return &entityRepository{
		DB:     db,
		logger: logger,
	}
}

const entityColumns = "company_id, id, type, vector, last_modified_by, deleted, deleted_at, updated_at"

// Save implements [EntityRepository]. The entity row upsert and the field
// replacement run in one transaction: a reader never observes a revision
// with half of its fields swapped.
func (r *entityRepository) Save(ctx context.Context, entity models.Entity) error {
	log := logger.FromContext(ctx)

	vector, err := json.Marshal(entity.Vector)
	if err != nil {
		return fmt.Errorf("encode version vector: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "entityRepository.Save").Msg("failed to begin transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	upsert := r.builder.
		Insert("entities").
		Columns("company_id", "id", "type", "vector", "last_modified_by", "deleted", "deleted_at", "updated_at").
		Values(entity.CompanyID, entity.ID, string(entity.Type), string(vector),
			entity.LastModifiedBy, entity.Deleted, entity.DeletedAt, entity.UpdatedAt).
		Suffix(`ON CONFLICT (company_id, id) DO UPDATE SET
			vector = excluded.vector,
			last_modified_by = excluded.last_modified_by,
			deleted = excluded.deleted,
			deleted_at = excluded.deleted_at,
			updated_at = excluded.updated_at`)

	query, args, err := upsert.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "entityRepository.Save").
			Str("entity_id", entity.ID).
			Msg("failed to upsert entity row")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	del := r.builder.
		Delete("entity_fields").
		Where(sq.Eq{"company_id": entity.CompanyID, "entity_id": entity.ID})
	query, args, err = del.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if len(entity.Fields) > 0 {
		ins := r.builder.
			Insert("entity_fields").
			Columns("company_id", "entity_id", "name", "key_id", "ciphertext")
		for name, field := range entity.Fields {
			ins = ins.Values(entity.CompanyID, entity.ID, name, field.KeyID, field.Ciphertext)
		}
		query, args, err = ins.ToSql()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			log.Err(err).
				Str("func", "entityRepository.Save").
				Str("entity_id", entity.ID).
				Msg("failed to insert entity fields")
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return nil
}

// Get implements [EntityRepository].
func (r *entityRepository) Get(ctx context.Context, companyID, entityID string) (models.Entity, error) {
	query, args, err := r.builder.
		Select(entityColumns).
		From("entities").
		Where(sq.Eq{"company_id": companyID, "id": entityID}).
		ToSql()
	if err != nil {
		return models.Entity{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	row := r.DB.QueryRowContext(ctx, query, args...)
	entity, err := scanEntity(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Entity{}, ErrEntityNotFound
	}
	if err != nil {
		return models.Entity{}, err
	}

	fields, err := r.loadFields(ctx, companyID, []string{entityID})
	if err != nil {
		return models.Entity{}, err
	}
	entity.Fields = fields[entityID]
	if entity.Fields == nil {
		entity.Fields = make(map[string]models.EncryptedField)
	}

	return entity, nil
}

// ListByKeyEpoch implements [EntityRepository].
func (r *entityRepository) ListByKeyEpoch(ctx context.Context, companyID, keyID string, limit int) ([]models.Entity, error) {
	sel := r.builder.
		Select("e.company_id", "e.id", "e.type", "e.vector", "e.last_modified_by", "e.deleted", "e.deleted_at", "e.updated_at").
		Options("DISTINCT").
		From("entities e").
		Join("entity_fields f ON f.company_id = e.company_id AND f.entity_id = e.id").
		Where(sq.Eq{"e.company_id": companyID, "f.key_id": keyID}).
		OrderBy("e.id")
	if limit > 0 {
		sel = sel.Limit(uint64(limit))
	}

	return r.queryEntities(ctx, companyID, sel)
}

// CountByKeyEpoch implements [EntityRepository].
func (r *entityRepository) CountByKeyEpoch(ctx context.Context, companyID, keyID string) (int, error) {
	query, args, err := r.builder.
		Select("COUNT(DISTINCT entity_id)").
		From("entity_fields").
		Where(sq.Eq{"company_id": companyID, "key_id": keyID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var count int
	if err = r.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return count, nil
}

// ListModifiedSince implements [EntityRepository].
func (r *entityRepository) ListModifiedSince(ctx context.Context, companyID string, since time.Time, limit int) ([]models.Entity, error) {
	sel := r.builder.
		Select(entityColumns).
		From("entities").
		Where(sq.And{
			sq.Eq{"company_id": companyID},
			sq.Gt{"updated_at": since},
		}).
		OrderBy("updated_at", "id")
	if limit > 0 {
		sel = sel.Limit(uint64(limit))
	}

	return r.queryEntities(ctx, companyID, sel)
}

func (r *entityRepository) queryEntities(ctx context.Context, companyID string, sel sq.SelectBuilder) ([]models.Entity, error) {
	log := logger.FromContext(ctx)

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "entityRepository.queryEntities").
			Str("company_id", companyID).
			Msg("failed to execute entity query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	entities := make([]models.Entity, 0, 32)
	ids := make([]string, 0, 32)

	for rows.Next() {
		entity, scanErr := scanEntity(rows.Scan)
		if scanErr != nil {
			return nil, scanErr
		}
		entities = append(entities, entity)
		ids = append(ids, entity.ID)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	if len(entities) == 0 {
		return entities, nil
	}

	fields, err := r.loadFields(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}
	for i := range entities {
		entities[i].Fields = fields[entities[i].ID]
		if entities[i].Fields == nil {
			entities[i].Fields = make(map[string]models.EncryptedField)
		}
	}

	return entities, nil
}

func (r *entityRepository) loadFields(ctx context.Context, companyID string, entityIDs []string) (map[string]map[string]models.EncryptedField, error) {
	query, args, err := r.builder.
		Select("entity_id", "name", "key_id", "ciphertext").
		From("entity_fields").
		Where(sq.Eq{"company_id": companyID, "entity_id": entityIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	out := make(map[string]map[string]models.EncryptedField, len(entityIDs))
	for rows.Next() {
		var entityID, name string
		var field models.EncryptedField
		if err = rows.Scan(&entityID, &name, &field.KeyID, &field.Ciphertext); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		if out[entityID] == nil {
			out[entityID] = make(map[string]models.EncryptedField, 8)
		}
		out[entityID][name] = field
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return out, nil
}

// scanEntity scans one entity row (without fields) via the given scan
// function, so it works for both QueryRow and Rows iteration.
func scanEntity(scan func(...any) error) (models.Entity, error) {
	var entity models.Entity
	var entityType string
	var vector []byte
	var deletedAt sql.NullTime

	err := scan(
		&entity.CompanyID,
		&entity.ID,
		&entityType,
		&vector,
		&entity.LastModifiedBy,
		&entity.Deleted,
		&deletedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Entity{}, err
		}
		return models.Entity{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	entity.Type = models.EntityType(entityType)
	if deletedAt.Valid {
		at := deletedAt.Time
		entity.DeletedAt = &at
	}
	if err = json.Unmarshal(vector, &entity.Vector); err != nil {
		return models.Entity{}, fmt.Errorf("decode version vector: %w", err)
	}

	return entity, nil
}
