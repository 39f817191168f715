// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"

	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/models"
)

// deviceRepository is the SQL-backed implementation of [DeviceRepository].
type deviceRepository struct {
	*DB
	logger *logger.Logger
}

// NewDeviceRepository constructs a [DeviceRepository] backed by the given
// database connection and logger.
func NewDeviceRepository(db *DB, logger *logger.Logger) DeviceRepository {
	return &deviceRepository{
		DB:     db,
		logger: logger,
	}
}

// Register implements [DeviceRepository].
func (r *deviceRepository) Register(ctx context.Context, device models.Device) error {
	log := logger.FromContext(ctx)

	query, args, err := r.builder.
		Insert("devices").
		Columns("device_id", "company_id", "registered_at", "revoked", "revoked_at").
		Values(device.DeviceID, device.CompanyID, device.RegisteredAt, device.Revoked, device.RevokedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		if postgresError(err) == pgerrcode.UniqueViolation {
			return ErrDeviceAlreadyExists
		}
		log.Err(err).
			Str("func", "deviceRepository.Register").
			Str("device_id", device.DeviceID).
			Msg("failed to register device")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// Get implements [DeviceRepository].
func (r *deviceRepository) Get(ctx context.Context, companyID, deviceID string) (models.Device, error) {
	query, args, err := r.builder.
		Select("device_id", "company_id", "registered_at", "revoked", "revoked_at").
		From("devices").
		Where(sq.Eq{"company_id": companyID, "device_id": deviceID}).
		ToSql()
	if err != nil {
		return models.Device{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var device models.Device
	var revokedAt sql.NullTime
	err = r.DB.QueryRowContext(ctx, query, args...).Scan(
		&device.DeviceID,
		&device.CompanyID,
		&device.RegisteredAt,
		&device.Revoked,
		&revokedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Device{}, ErrDeviceNotFound
	}
	if err != nil {
		return models.Device{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	if revokedAt.Valid {
		at := revokedAt.Time
		device.RevokedAt = &at
	}

	return device, nil
}

// Revoke implements [DeviceRepository].
func (r *deviceRepository) Revoke(ctx context.Context, companyID, deviceID string, at time.Time) error {
	log := logger.FromContext(ctx)

	query, args, err := r.builder.
		Update("devices").
		Set("revoked", true).
		Set("revoked_at", at).
		Where(sq.Eq{"company_id": companyID, "device_id": deviceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "deviceRepository.Revoke").
			Str("device_id", deviceID).
			Msg("failed to revoke device")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}
