// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package service

import (
	"context"

	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/internal/rotation"
	"github.com/tallyvault/tallyvault/models"
)

// rotationService is the concrete implementation of RotationService. All
// epoch lifecycle logic lives in the coordinator; the service exists so that
// transports and background jobs depend on an interface they can mock.
type rotationService struct {
	coordinator *rotation.Coordinator
	logger      *logger.Logger
}

// NewRotationService constructs a RotationService on top of the coordinator.
func NewRotationService(coordinator *rotation.Coordinator, logger *logger.Logger) RotationService {
	return &rotationService{
		coordinator: coordinator,
		logger:      logger,
	}
}

// EnsureReady implements RotationService.
func (s *rotationService) EnsureReady(ctx context.Context) error {
	return s.coordinator.EnsureActiveEpoch(ctx)
}

// StartRotation implements RotationService.
func (s *rotationService) StartRotation(ctx context.Context) (models.RotationStatus, error) {
	return s.coordinator.StartRotation(ctx)
}

// RewrapNext implements RotationService.
func (s *rotationService) RewrapNext(ctx context.Context, batchSize int) (models.RotationStatus, error) {
	return s.coordinator.RewrapNext(ctx, batchSize)
}

// Finalize implements RotationService.
func (s *rotationService) Finalize(ctx context.Context) (models.RotationStatus, error) {
	return s.coordinator.Finalize(ctx)
}

// Cancel implements RotationService.
func (s *rotationService) Cancel(ctx context.Context) error {
	return s.coordinator.Cancel(ctx)
}

// Status implements RotationService.
func (s *rotationService) Status(ctx context.Context) (models.RotationStatus, error) {
	return s.coordinator.Status(ctx)
}

// Epochs implements RotationService.
func (s *rotationService) Epochs(ctx context.Context) ([]models.KeyEpochRecord, error) {
	return s.coordinator.ExportEpochs(ctx)
}

// AdoptEpochs implements RotationService.
func (s *rotationService) AdoptEpochs(ctx context.Context, records []models.KeyEpochRecord) error {
	return s.coordinator.ImportEpochs(ctx, records)
}
