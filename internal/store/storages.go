// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package store

import (
	"github.com/tallyvault/tallyvault/internal/logger"
)

// NewStorages wires the full SQL repository set on top of one connection.
func NewStorages(db *DB, logger *logger.Logger) Storages {
	return Storages{
		Entities: NewEntityRepository(db, logger),
		Audit:    NewAuditRepository(db, logger),
		Epochs:   NewEpochRepository(db, logger),
		Devices:  NewDeviceRepository(db, logger),
	}
}
