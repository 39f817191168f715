// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

// Package rotation implements the key rotation coordinator: epoch
// advancement, incremental re-wrapping of stored ciphertexts, finalization,
// and device revocation. Rotation runs concurrently with normal sync; the
// coordinator takes the company lock only for the duration of one rewrap
// batch, so merges interleave between batches instead of stalling behind the
// whole rotation.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tallyvault/tallyvault/internal/audit"
	"github.com/tallyvault/tallyvault/internal/crypto"
	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/internal/store"
	"github.com/tallyvault/tallyvault/models"
)

// DefaultBatchSize bounds one RewrapNext pass when the caller passes zero.
const DefaultBatchSize = 50

// Coordinator drives a company's key epoch lifecycle. All methods are safe
// for concurrent use with the synchronization engine sharing the same mutex.
type Coordinator struct {
	companyID string
	deviceID  string

	entities store.EntityRepository
	epochs   store.EpochRepository
	devices  store.DeviceRepository
	keyring  crypto.Keyring
	audit    *audit.Recorder
	logger   *logger.Logger

	// mu is the company lock shared with the engine. Held per batch, never
	// across the whole rotation.
	mu *sync.Mutex

	// rewrapped counts entities this coordinator re-wrapped since the current
	// rotation started. Guarded by mu.
	rewrapped int

	// paused is set by Cancel and cleared when the rotation resumes or ends.
	// Process-local: a restarted replica drives the rotation again. Guarded
	// by mu.
	paused bool
}

// NewCoordinator constructs the rotation coordinator for one company replica.
// The mutex must be the same instance handed to the synchronization engine.
func NewCoordinator(companyID, deviceID string, storages store.Storages, keyring crypto.Keyring,
	recorder *audit.Recorder, mu *sync.Mutex, logger *logger.Logger) *Coordinator {
	return &Coordinator{
		companyID: companyID,
		deviceID:  deviceID,
		entities:  storages.Entities,
		epochs:    storages.Epochs,
		devices:   storages.Devices,
		keyring:   keyring,
		audit:     recorder,
		logger:    logger,
		mu:        mu,
	}
}

// EnsureActiveEpoch restores persisted epochs into the keyring and creates
// the first epoch on a fresh install. Called once at startup before any
// entity is sealed.
func (c *Coordinator) EnsureActiveEpoch(ctx context.Context) error {
	if err := c.RestoreFromStore(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.keyring.ActiveEpoch(); ok {
		return nil
	}

	epoch, err := c.keyring.CreateEpoch()
	if err != nil {
		return err
	}
	if err = c.persistEpochs(ctx); err != nil {
		return err
	}
	return c.audit.RotationStep(ctx, c.companyID, c.deviceID,
		fmt.Sprintf("initial epoch %s created", epoch.KeyID))
}

// StartRotation creates a fresh ACTIVE epoch and moves the previous one to
// RETIRING. While a rotation is already being driven it fails with
// [ErrRotationInProgress]; a rotation paused by Cancel is resumed instead of
// stacking a third epoch — the selection predicate "entities still
// referencing the retiring epoch" makes resumption free.
func (c *Coordinator) StartRotation(ctx context.Context) (models.RotationStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if retiring, ok := c.keyring.RetiringEpoch(); ok {
		if !c.paused {
			return models.RotationStatus{}, ErrRotationInProgress
		}

		c.paused = false
		logger.FromContext(ctx).Info().
			Str("func", "Coordinator.StartRotation").
			Str("retiring_key_id", retiring.KeyID).
			Msg("paused rotation resumed")
		if err := c.audit.RotationStep(ctx, c.companyID, c.deviceID,
			fmt.Sprintf("rotation resumed: epoch %s retiring", retiring.KeyID)); err != nil {
			return models.RotationStatus{}, err
		}
		return c.statusLocked(ctx)
	}

	if _, ok := c.keyring.ActiveEpoch(); !ok {
		return models.RotationStatus{}, ErrNoActiveEpoch
	}

	epoch, err := c.keyring.CreateEpoch()
	if err != nil {
		if errors.Is(err, crypto.ErrRotationOverlap) {
			return models.RotationStatus{}, ErrRotationInProgress
		}
		return models.RotationStatus{}, err
	}
	c.rewrapped = 0

	if err = c.persistEpochs(ctx); err != nil {
		return models.RotationStatus{}, err
	}

	summary := fmt.Sprintf("rotation started: epoch %s created", epoch.KeyID)
	if retiring, ok := c.keyring.RetiringEpoch(); ok {
		summary = fmt.Sprintf("rotation started: epoch %s created, epoch %s retiring", epoch.KeyID, retiring.KeyID)
	}
	if err = c.audit.RotationStep(ctx, c.companyID, c.deviceID, summary); err != nil {
		return models.RotationStatus{}, err
	}

	return c.statusLocked(ctx)
}

// RewrapNext re-wraps up to batchSize entities still referencing the
// retiring epoch and persists each one before moving on. Interrupting
// between batches loses nothing: already-rewrapped entities no longer match
// the selection predicate.
func (c *Coordinator) RewrapNext(ctx context.Context, batchSize int) (models.RotationStatus, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	retiring, ok := c.keyring.RetiringEpoch()
	if !ok {
		return models.RotationStatus{}, ErrNoRotationInProgress
	}
	active, ok := c.keyring.ActiveEpoch()
	if !ok {
		return models.RotationStatus{}, ErrNoActiveEpoch
	}

	moved, err := c.rewrapBatchLocked(ctx, retiring.KeyID, active.KeyID, batchSize)
	if err != nil {
		return models.RotationStatus{}, err
	}
	c.rewrapped += moved

	if moved > 0 {
		summary := fmt.Sprintf("rewrapped %d entities from epoch %s to %s", moved, retiring.KeyID, active.KeyID)
		if err = c.audit.RotationStep(ctx, c.companyID, c.deviceID, summary); err != nil {
			return models.RotationStatus{}, err
		}
	}

	return c.statusLocked(ctx)
}

// rewrapBatchLocked re-wraps up to limit entities from one epoch to another,
// persisting each entity before moving on, and reports how many it moved.
// Assumes c.mu is held.
func (c *Coordinator) rewrapBatchLocked(ctx context.Context, fromKeyID, toKeyID string, limit int) (int, error) {
	batch, err := c.entities.ListByKeyEpoch(ctx, c.companyID, fromKeyID, limit)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, entity := range batch {
		next := entity.Clone()
		for name, field := range next.Fields {
			if field.KeyID != fromKeyID {
				continue
			}
			rewrapped, rewrapErr := c.keyring.Rewrap(field, fromKeyID, toKeyID)
			if rewrapErr != nil {
				return moved, fmt.Errorf("rewrap entity %s field %q: %w", entity.ID, name, rewrapErr)
			}
			next.Fields[name] = rewrapped
		}
		next.UpdatedAt = time.Now()

		if err = c.entities.Save(ctx, next); err != nil {
			return moved, err
		}
		moved++
	}

	return moved, nil
}

// Finalize retires the RETIRING epoch and zeroes its key material. It
// refuses with [ErrRewrapIncomplete] while any entity still references the
// epoch: retiring a key that live ciphertext depends on would be data loss.
func (c *Coordinator) Finalize(ctx context.Context) (models.RotationStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	retiring, ok := c.keyring.RetiringEpoch()
	if !ok {
		return models.RotationStatus{}, ErrNoRotationInProgress
	}

	remaining, err := c.entities.CountByKeyEpoch(ctx, c.companyID, retiring.KeyID)
	if err != nil {
		return models.RotationStatus{}, err
	}
	if remaining > 0 {
		return models.RotationStatus{}, fmt.Errorf("%w: %d left", ErrRewrapIncomplete, remaining)
	}

	if err = c.keyring.RetireEpoch(retiring.KeyID); err != nil {
		return models.RotationStatus{}, err
	}
	c.paused = false

	// The metadata row survives retirement; the wrapped material does not.
	retired := retiring
	retired.Status = models.EpochRetired
	if err = c.epochs.Save(ctx, retired, nil); err != nil {
		return models.RotationStatus{}, err
	}
	if err = c.persistEpochs(ctx); err != nil {
		return models.RotationStatus{}, err
	}

	summary := fmt.Sprintf("rotation finalized: epoch %s retired, material discarded", retiring.KeyID)
	if err = c.audit.RotationStep(ctx, c.companyID, c.deviceID, summary); err != nil {
		return models.RotationStatus{}, err
	}

	return c.statusLocked(ctx)
}

// Cancel stops driving the current rotation. The RETIRING epoch keeps its
// material and stays decryptable; a later StartRotation resumes the same
// rotation instead of stacking a third epoch. The pause is process-local:
// after a restart the rotation is driven again.
func (c *Coordinator) Cancel(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	retiring, ok := c.keyring.RetiringEpoch()
	if !ok {
		return ErrNoRotationInProgress
	}
	c.paused = true

	summary := fmt.Sprintf("rotation paused: epoch %s remains retiring", retiring.KeyID)
	return c.audit.RotationStep(ctx, c.companyID, c.deviceID, summary)
}

// RevokeDevice marks the device's credentials invalid and starts a key
// rotation so the revoked device's copy of the key material goes stale.
// Plaintext already synced to the device cannot be clawed back; the rotation
// bounds the damage to data it has already seen.
func (c *Coordinator) RevokeDevice(ctx context.Context, deviceID string) (models.RotationStatus, error) {
	if err := c.devices.Revoke(ctx, c.companyID, deviceID, time.Now()); err != nil {
		return models.RotationStatus{}, err
	}
	if err := c.audit.RotationStep(ctx, c.companyID, c.deviceID,
		fmt.Sprintf("device %s revoked, key rotation triggered", deviceID)); err != nil {
		return models.RotationStatus{}, err
	}

	status, err := c.StartRotation(ctx)
	if errors.Is(err, ErrRotationInProgress) {
		// An in-flight rotation already serves the purpose.
		return c.Status(ctx)
	}
	return status, err
}

// Status reports where the rotation currently stands.
func (c *Coordinator) Status(ctx context.Context) (models.RotationStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked(ctx)
}

// statusLocked assumes c.mu is held.
func (c *Coordinator) statusLocked(ctx context.Context) (models.RotationStatus, error) {
	status := models.RotationStatus{State: models.RotationIdle}

	if active, ok := c.keyring.ActiveEpoch(); ok {
		status.ActiveKeyID = active.KeyID
	}

	retiring, ok := c.keyring.RetiringEpoch()
	if !ok {
		return status, nil
	}

	remaining, err := c.entities.CountByKeyEpoch(ctx, c.companyID, retiring.KeyID)
	if err != nil {
		return models.RotationStatus{}, err
	}

	status.State = models.RotationRewrapping
	if c.paused {
		status.State = models.RotationPaused
	}
	status.RetiringKeyID = retiring.KeyID
	status.Remaining = remaining
	status.Rewrapped = c.rewrapped
	return status, nil
}

// persistEpochs writes the keyring's current epoch set through the epoch
// repository so a restart restores the same rotation state.
func (c *Coordinator) persistEpochs(ctx context.Context) error {
	if active, ok := c.keyring.ActiveEpoch(); ok {
		wrapped, err := c.keyring.WrappedDEK(active.KeyID)
		if err != nil {
			return err
		}
		if err = c.epochs.Save(ctx, active, wrapped); err != nil {
			return err
		}
	}
	if retiring, ok := c.keyring.RetiringEpoch(); ok {
		wrapped, err := c.keyring.WrappedDEK(retiring.KeyID)
		if err != nil {
			return err
		}
		if err = c.epochs.Save(ctx, retiring, wrapped); err != nil {
			return err
		}
	}
	return nil
}

// RestoreFromStore reloads persisted epochs into the keyring after a restart.
// RETIRED epochs restore metadata only; their material is gone for good.
func (c *Coordinator) RestoreFromStore(ctx context.Context) error {
	records, err := c.epochs.List(ctx, c.companyID)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err = c.keyring.RestoreEpoch(rec.Epoch, rec.WrappedDEK); err != nil {
			return fmt.Errorf("restore epoch %s: %w", rec.Epoch.KeyID, err)
		}
	}
	return nil
}

// ExportEpochs returns the company's full epoch set with wrapped key
// material for other replicas to adopt. Only a keyring deriving the same
// company KEK can open the material.
func (c *Coordinator) ExportEpochs(ctx context.Context) ([]models.KeyEpochRecord, error) {
	records, err := c.epochs.List(ctx, c.companyID)
	if err != nil {
		return nil, err
	}

	out := make([]models.KeyEpochRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, models.KeyEpochRecord{Epoch: rec.Epoch, WrappedDEK: rec.WrappedDEK})
	}
	return out, nil
}

// ImportEpochs adopts another replica's epoch set: each record is restored
// into the keyring and persisted locally, so every replica of a company
// seals under the same ACTIVE epoch. A replica that minted its own epoch
// while disconnected re-wraps everything sealed under it onto the adopted
// ACTIVE epoch and retires the orphan, converging the epoch sets instead of
// forking them.
func (c *Coordinator) ImportEpochs(ctx context.Context, records []models.KeyEpochRecord) error {
	if len(records) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	localActive, hadLocal := c.keyring.ActiveEpoch()

	imported := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if err := c.keyring.RestoreEpoch(rec.Epoch, rec.WrappedDEK); err != nil {
			return fmt.Errorf("adopt epoch %s: %w", rec.Epoch.KeyID, err)
		}
		if err := c.epochs.Save(ctx, rec.Epoch, rec.WrappedDEK); err != nil {
			return err
		}
		imported[rec.Epoch.KeyID] = struct{}{}
	}

	active, ok := c.keyring.ActiveEpoch()
	if !ok || !hadLocal || localActive.KeyID == active.KeyID {
		return nil
	}
	if _, known := imported[localActive.KeyID]; known {
		return nil
	}

	return c.mergeOrphanEpochLocked(ctx, localActive, active)
}

// mergeOrphanEpochLocked migrates everything sealed under a locally minted
// epoch onto the adopted active epoch, then retires the orphan. Assumes c.mu
// is held.
func (c *Coordinator) mergeOrphanEpochLocked(ctx context.Context, orphan, active models.KeyEpoch) error {
	for {
		moved, err := c.rewrapBatchLocked(ctx, orphan.KeyID, active.KeyID, DefaultBatchSize)
		if err != nil {
			return err
		}
		if moved == 0 {
			break
		}
	}

	if err := c.keyring.RetireEpoch(orphan.KeyID); err != nil {
		return err
	}
	retired := orphan
	retired.Status = models.EpochRetired
	if err := c.epochs.Save(ctx, retired, nil); err != nil {
		return err
	}

	return c.audit.RotationStep(ctx, c.companyID, c.deviceID,
		fmt.Sprintf("epoch %s adopted, local epoch %s merged and retired", active.KeyID, orphan.KeyID))
}
