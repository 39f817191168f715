package service

import (
	"context"
	"time"

	"github.com/tallyvault/tallyvault/internal/engine"
	"github.com/tallyvault/tallyvault/models"
)

// SyncService is the application-facing surface of the synchronization
// engine: local edits, remote batch ingestion and conflict history.
type SyncService interface {
	ApplyLocalEdit(ctx context.Context, edit engine.LocalEdit) (models.Entity, error)
	IngestBatch(ctx context.Context, batch models.BatchRequest) (models.BatchResult, error)
	Conflicts(ctx context.Context, since time.Time) ([]models.ConflictDescriptor, error)
}

// RotationService drives the key epoch lifecycle for one company.
type RotationService interface {
	// EnsureReady restores persisted epochs and creates the first one on a
	// fresh install. Must be called once before any other operation.
	EnsureReady(ctx context.Context) error

	StartRotation(ctx context.Context) (models.RotationStatus, error)
	RewrapNext(ctx context.Context, batchSize int) (models.RotationStatus, error)
	Finalize(ctx context.Context) (models.RotationStatus, error)
	Cancel(ctx context.Context) error
	Status(ctx context.Context) (models.RotationStatus, error)

	// Epochs exports the company's epoch set with KEK-wrapped key material
	// for other replicas to adopt.
	Epochs(ctx context.Context) ([]models.KeyEpochRecord, error)

	// AdoptEpochs merges a remote replica's epoch set into this one, so both
	// replicas seal under the same active epoch.
	AdoptEpochs(ctx context.Context, records []models.KeyEpochRecord) error
}

// DeviceService manages replica registration, credentials and revocation.
type DeviceService interface {
	// RegisterDevice creates the device record and issues its first credential.
	RegisterDevice(ctx context.Context, deviceID string) (models.Device, models.Token, error)

	// IssueToken issues a fresh credential for an already registered,
	// non-revoked device.
	IssueToken(ctx context.Context, deviceID string) (models.Token, error)

	// Authenticate validates a raw credential and returns the device it names.
	// Revoked devices fail with [ErrDeviceRevoked] even when the token itself
	// is still within its validity window.
	Authenticate(ctx context.Context, tokenString string) (models.Device, error)

	// RevokeDevice invalidates the device's credentials and triggers a key
	// rotation so the revoked replica's key material goes stale.
	RevokeDevice(ctx context.Context, deviceID string) (models.RotationStatus, error)
}
