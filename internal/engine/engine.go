// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

// Package engine implements the synchronization engine: the only write path
// into a company's entity set. Local edits and remote batches both funnel
// through it, so causality stamping, merge dispatch, re-encryption and audit
// recording happen in exactly one place.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tallyvault/tallyvault/internal/audit"
	"github.com/tallyvault/tallyvault/internal/crypto"
	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/internal/merge"
	"github.com/tallyvault/tallyvault/internal/store"
	"github.com/tallyvault/tallyvault/internal/vclock"
	"github.com/tallyvault/tallyvault/models"
)

// Engine reconciles entity revisions for one company on one device. It is
// safe for concurrent use: all mutations run under the company lock, which is
// shared with the rotation coordinator so a rewrap batch and a merge never
// interleave on the same entity set.
type Engine struct {
	companyID string
	deviceID  string

	entities store.EntityRepository
	keyring  crypto.Keyring
	registry *merge.Registry
	audit    *audit.Recorder
	logger   *logger.Logger

	// mu is the company lock. The rotation coordinator holds the same mutex
	// while rewrapping a batch, so an entity is never merged and rewrapped at
	// the same time.
	mu *sync.Mutex
}

// NewEngine constructs the synchronization engine for one company replica.
// The mutex must be the same instance handed to the rotation coordinator.
func NewEngine(companyID, deviceID string, entities store.EntityRepository, keyring crypto.Keyring,
	registry *merge.Registry, recorder *audit.Recorder, mu *sync.Mutex, logger *logger.Logger) *Engine {
	return &Engine{
		companyID: companyID,
		deviceID:  deviceID,
		entities:  entities,
		keyring:   keyring,
		registry:  registry,
		audit:     recorder,
		logger:    logger,
		mu:        mu,
	}
}

// CompanyID returns the company this engine serves.
func (e *Engine) CompanyID() string {
	return e.companyID
}

// LocalEdit is one user-initiated mutation of an entity on this device.
// Fields carries the new plaintext values; write metadata left zero is
// stamped by the engine with the current time and this device's id.
type LocalEdit struct {
	EntityID string
	Type     models.EntityType
	Fields   map[string]models.FieldValue
	Delete   bool
}

// ApplyLocalEdit applies a user edit: it advances this device's counter in
// the entity's vector, overlays the changed fields onto the current plaintext
// and seals every field under the ACTIVE epoch. Unknown entity ids create a
// fresh entity.
func (e *Engine) ApplyLocalEdit(ctx context.Context, edit LocalEdit) (models.Entity, error) {
	if len(edit.Fields) == 0 && !edit.Delete {
		return models.Entity{}, ErrEmptyEdit
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	active, ok := e.keyring.ActiveEpoch()
	if !ok {
		return models.Entity{}, ErrNoActiveEpoch
	}

	now := time.Now()
	current, err := e.entities.Get(ctx, e.companyID, edit.EntityID)
	switch {
	case err == nil:
		// existing entity, fall through
	case errors.Is(err, store.ErrEntityNotFound):
		current = models.Entity{
			ID:        edit.EntityID,
			CompanyID: e.companyID,
			Type:      edit.Type,
			Vector:    models.VersionVector{},
			Fields:    map[string]models.EncryptedField{},
		}
	default:
		return models.Entity{}, err
	}

	plain, err := e.openFields(current)
	if err != nil {
		return models.Entity{}, fmt.Errorf("open current revision: %w", err)
	}

	for name, value := range edit.Fields {
		if value.WriteTS == 0 {
			value.WriteTS = now.UnixMicro()
		}
		if value.DeviceID == "" {
			value.DeviceID = e.deviceID
		}
		plain[name] = value
	}

	next := current.Clone()
	next.Vector = vclock.Increment(current.Vector, e.deviceID)
	next.LastModifiedBy = e.deviceID
	next.UpdatedAt = now

	if edit.Delete {
		at := now
		next.Deleted = true
		next.DeletedAt = &at
	} else if current.Deleted {
		// Editing a tombstone locally resurrects it.
		next.Deleted = false
		next.DeletedAt = nil
	}

	next.Fields, err = e.sealFields(plain, active.KeyID)
	if err != nil {
		return models.Entity{}, fmt.Errorf("seal new revision: %w", err)
	}

	if err = e.entities.Save(ctx, next); err != nil {
		return models.Entity{}, err
	}

	logger.FromContext(ctx).Debug().
		Str("func", "Engine.ApplyLocalEdit").
		Str("entity_id", next.ID).
		Str("type", string(next.Type)).
		Bool("deleted", next.Deleted).
		Msg("local edit applied")

	return next, nil
}

// IngestRemoteBatch applies a batch of entity snapshots pushed by a peer
// device. Each entity is classified against the local revision and either
// discarded as stale, fast-forwarded, or merged field by field. Failures are
// entity-local: the failed id lands in the result with a reason and a
// SYNC_FAILURE audit entry while the rest of the batch proceeds.
func (e *Engine) IngestRemoteBatch(ctx context.Context, batch models.BatchRequest) (models.BatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	active, ok := e.keyring.ActiveEpoch()
	if !ok {
		return models.BatchResult{}, ErrNoActiveEpoch
	}

	log := logger.FromContext(ctx)
	result := models.BatchResult{
		Applied: make([]string, 0, len(batch.Entities)),
		Failed:  make([]models.BatchFailure, 0),
	}

	for _, remote := range batch.Entities {
		if err := e.ingestOne(ctx, remote, batch.DeviceID, active.KeyID); err != nil {
			result.Failed = append(result.Failed, models.BatchFailure{ID: remote.ID, Reason: err.Error()})
			if auditErr := e.audit.SyncFailure(ctx, e.companyID, remote.ID, remote.Type, batch.DeviceID, err); auditErr != nil {
				log.Err(auditErr).Str("entity_id", remote.ID).Msg("failed to record sync failure")
			}
			continue
		}
		result.Applied = append(result.Applied, remote.ID)
	}

	log.Info().
		Str("func", "Engine.IngestRemoteBatch").
		Str("device_id", batch.DeviceID).
		Int("applied", len(result.Applied)).
		Int("failed", len(result.Failed)).
		Msg("remote batch ingested")

	return result, nil
}

// ingestOne runs the per-entity state machine: classify, fast-forward or
// merge, re-seal under the ACTIVE epoch, persist, audit.
func (e *Engine) ingestOne(ctx context.Context, remote models.Entity, actorDevice, activeKeyID string) error {
	if remote.CompanyID != e.companyID {
		return ErrCompanyMismatch
	}

	local, err := e.entities.Get(ctx, e.companyID, remote.ID)
	if errors.Is(err, store.ErrEntityNotFound) {
		return e.adoptRemote(ctx, remote, actorDevice, activeKeyID)
	}
	if err != nil {
		return err
	}
	if local.Type != remote.Type {
		return fmt.Errorf("entity type mismatch: local %q, remote %q", local.Type, remote.Type)
	}

	switch vclock.Compare(local.Vector, remote.Vector) {
	case vclock.Equal, vclock.Dominates:
		// The local revision already contains the remote one. Redelivery is
		// expected and idempotent.
		return nil

	case vclock.Dominated:
		return e.fastForward(ctx, remote, actorDevice, activeKeyID)

	default: // Concurrent
		return e.mergeConcurrent(ctx, local, remote, actorDevice, activeKeyID)
	}
}

// adoptRemote stores a previously unknown entity, re-sealed under this
// replica's ACTIVE epoch.
func (e *Engine) adoptRemote(ctx context.Context, remote models.Entity, actorDevice, activeKeyID string) error {
	plain, err := e.openFields(remote)
	if err != nil {
		return fmt.Errorf("open remote revision: %w", err)
	}

	next := remote.Clone()
	next.UpdatedAt = time.Now()
	next.Fields, err = e.sealFields(plain, activeKeyID)
	if err != nil {
		return fmt.Errorf("seal adopted revision: %w", err)
	}

	if err = e.entities.Save(ctx, next); err != nil {
		return err
	}
	return e.audit.Merge(ctx, next, actorDevice, "adopted new remote entity")
}

// fastForward replaces the local revision with the causally newer remote one.
func (e *Engine) fastForward(ctx context.Context, remote models.Entity, actorDevice, activeKeyID string) error {
	plain, err := e.openFields(remote)
	if err != nil {
		return fmt.Errorf("open remote revision: %w", err)
	}

	next := remote.Clone()
	next.UpdatedAt = time.Now()
	next.Fields, err = e.sealFields(plain, activeKeyID)
	if err != nil {
		return fmt.Errorf("seal fast-forwarded revision: %w", err)
	}

	if err = e.entities.Save(ctx, next); err != nil {
		return err
	}
	return e.audit.Merge(ctx, next, actorDevice, "fast-forwarded to remote revision")
}

// mergeConcurrent reconciles two concurrent revisions through the merge
// strategy registered for the entity type. The merged vector is the
// elementwise maximum of both ancestors, so the result dominates them and
// every replica performing the same merge converges on the same revision.
func (e *Engine) mergeConcurrent(ctx context.Context, local, remote models.Entity, actorDevice, activeKeyID string) error {
	localPlain, err := e.openFields(local)
	if err != nil {
		return fmt.Errorf("open local revision: %w", err)
	}
	remotePlain, err := e.openFields(remote)
	if err != nil {
		return fmt.Errorf("open remote revision: %w", err)
	}

	out := e.registry.Merge(
		merge.Input{ID: local.ID, Type: local.Type, Deleted: local.Deleted, DeletedAt: local.DeletedAt, Fields: localPlain},
		merge.Input{ID: remote.ID, Type: remote.Type, Deleted: remote.Deleted, DeletedAt: remote.DeletedAt, Fields: remotePlain},
	)

	next := local.Clone()
	next.Vector = vclock.Merge(local.Vector, remote.Vector)
	next.LastModifiedBy = actorDevice
	next.Deleted = out.Deleted
	next.DeletedAt = out.DeletedAt
	next.UpdatedAt = time.Now()
	next.Fields, err = e.sealFields(out.Fields, activeKeyID)
	if err != nil {
		return fmt.Errorf("seal merged revision: %w", err)
	}

	if err = e.entities.Save(ctx, next); err != nil {
		return err
	}

	if out.Conflict != nil {
		return e.audit.Conflict(ctx, e.companyID, actorDevice, *out.Conflict)
	}
	return e.audit.Merge(ctx, next, actorDevice, "merged concurrent revisions")
}

// openFields unwraps every sealed field of an entity into its plaintext
// [models.FieldValue] form.
func (e *Engine) openFields(entity models.Entity) (map[string]models.FieldValue, error) {
	plain := make(map[string]models.FieldValue, len(entity.Fields))
	for name, field := range entity.Fields {
		raw, err := e.keyring.Unwrap(field)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		var value models.FieldValue
		if err = json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		plain[name] = value
	}
	return plain, nil
}

// sealFields wraps every plaintext field value under the given key epoch.
func (e *Engine) sealFields(plain map[string]models.FieldValue, keyID string) (map[string]models.EncryptedField, error) {
	sealed := make(map[string]models.EncryptedField, len(plain))
	for name, value := range plain {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		field, err := e.keyring.Wrap(raw, keyID)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		sealed[name] = field
	}
	return sealed, nil
}
