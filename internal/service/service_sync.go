// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package service

import (
	"context"
	"time"

	"github.com/tallyvault/tallyvault/internal/audit"
	"github.com/tallyvault/tallyvault/internal/engine"
	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/models"
)

// syncService is the concrete implementation of SyncService. It is a thin
// application boundary over the synchronization engine: transports and the
// TUI talk to this type, never to the engine directly.
type syncService struct {
	engine   *engine.Engine
	recorder *audit.Recorder
	logger   *logger.Logger
}

// NewSyncService constructs a SyncService on top of the given engine.
func NewSyncService(eng *engine.Engine, recorder *audit.Recorder, logger *logger.Logger) SyncService {
	return &syncService{
		engine:   eng,
		recorder: recorder,
		logger:   logger,
	}
}

// ApplyLocalEdit implements SyncService.
func (s *syncService) ApplyLocalEdit(ctx context.Context, edit engine.LocalEdit) (models.Entity, error) {
	if edit.EntityID == "" {
		logger.FromContext(ctx).Error().
			Str("func", "syncService.ApplyLocalEdit").
			Msg("edit without entity id")
		return models.Entity{}, ErrInvalidDataProvided
	}

	return s.engine.ApplyLocalEdit(ctx, edit)
}

// IngestBatch implements SyncService.
func (s *syncService) IngestBatch(ctx context.Context, batch models.BatchRequest) (models.BatchResult, error) {
	if batch.DeviceID == "" {
		logger.FromContext(ctx).Error().
			Str("func", "syncService.IngestBatch").
			Msg("batch without device id")
		return models.BatchResult{}, ErrInvalidDataProvided
	}

	return s.engine.IngestRemoteBatch(ctx, batch)
}

// Conflicts implements SyncService.
func (s *syncService) Conflicts(ctx context.Context, since time.Time) ([]models.ConflictDescriptor, error) {
	return s.recorder.Conflicts(ctx, s.engine.CompanyID(), since)
}
