package store

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

import (
	"context"
	"time"

	"github.com/tallyvault/tallyvault/models"
)

// EntityRepository is the only write path into the entity table. All
// writers go through the synchronization engine or the rotation
// coordinator, never directly — enforced as an API boundary, not a runtime
// check.
type EntityRepository interface {
	// Get returns one entity snapshot. Fails with [ErrEntityNotFound] when
	// the id is unknown to this replica.
	Get(ctx context.Context, companyID, entityID string) (models.Entity, error)

	// Save upserts the entity row and replaces its field set atomically.
	Save(ctx context.Context, entity models.Entity) error

	// ListByKeyEpoch returns up to limit entities that still have at least
	// one field wrapped under the given key epoch. This is the rotation
	// coordinator's resumable selection criterion: interrupted rewraps
	// restart from the same predicate, so progress is never lost or
	// duplicated.
	ListByKeyEpoch(ctx context.Context, companyID, keyID string, limit int) ([]models.Entity, error)

	// CountByKeyEpoch counts entities still referencing the key epoch.
	CountByKeyEpoch(ctx context.Context, companyID, keyID string) (int, error)

	// ListModifiedSince returns entities whose stored revision changed
	// after the given instant. Used by the device push job, not by merges.
	ListModifiedSince(ctx context.Context, companyID string, since time.Time, limit int) ([]models.Entity, error)
}

// AuditRepository persists the append-only audit/conflict log.
type AuditRepository interface {
	// Append writes one immutable entry. There is deliberately no update
	// or delete counterpart.
	Append(ctx context.Context, entry models.AuditEntry) error

	// ConflictsSince returns the conflict descriptors recorded at or after
	// the given instant, oldest first, for UI surfacing.
	ConflictsSince(ctx context.Context, companyID string, since time.Time) ([]models.ConflictDescriptor, error)
}

// EpochRecord pairs persisted epoch metadata with its KEK-wrapped key
// material. The wrapped DEK is nil for retired epochs.
type EpochRecord struct {
	Epoch      models.KeyEpoch
	WrappedDEK []byte
}

// EpochRepository persists key epoch metadata and wrapped key material.
type EpochRepository interface {
	// Save upserts the epoch row, replacing status and wrapped material.
	Save(ctx context.Context, epoch models.KeyEpoch, wrappedDEK []byte) error

	// List returns every epoch of the company, oldest first.
	List(ctx context.Context, companyID string) ([]EpochRecord, error)
}

// DeviceRepository tracks the replicas of a company and their revocation
// state.
type DeviceRepository interface {
	// Register inserts a device. Fails with [ErrDeviceAlreadyExists] when
	// the device id is already registered for the company.
	Register(ctx context.Context, device models.Device) error

	// Get returns one device. Fails with [ErrDeviceNotFound].
	Get(ctx context.Context, companyID, deviceID string) (models.Device, error)

	// Revoke marks the device's credentials invalid. Idempotent.
	Revoke(ctx context.Context, companyID, deviceID string, at time.Time) error
}

// Storages bundles the repository set a company's sync core runs on.
type Storages struct {
	Entities EntityRepository
	Audit    AuditRepository
	Epochs   EpochRepository
	Devices  DeviceRepository
}
