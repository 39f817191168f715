// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

// Package audit builds and persists the append-only audit/conflict log.
// Entries originate from the synchronization engine and the key rotation
// coordinator only; nothing in the application updates or deletes them.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/internal/store"
	"github.com/tallyvault/tallyvault/internal/utils"
	"github.com/tallyvault/tallyvault/models"
)

// Recorder assembles audit entries and appends them to the log. Summaries
// reference field names and device ids only, never plaintext field values.
type Recorder struct {
	repo   store.AuditRepository
	ids    *utils.UUIDGenerator
	logger *logger.Logger
}

// NewRecorder constructs a [Recorder] on top of the given audit repository.
func NewRecorder(repo store.AuditRepository, logger *logger.Logger) *Recorder {
	return &Recorder{
		repo:   repo,
		ids:    utils.NewUUIDGenerator(),
		logger: logger,
	}
}

// Merge records a clean merge decision for an entity.
func (r *Recorder) Merge(ctx context.Context, entity models.Entity, actorDevice, summary string) error {
	return r.append(ctx, models.AuditEntry{
		CompanyID:   entity.CompanyID,
		EntityID:    entity.ID,
		EntityType:  entity.Type,
		ActorDevice: actorDevice,
		Kind:        models.AuditMerge,
		Summary:     summary,
	})
}

// Conflict records a merge that lost or policy-chose information. The full
// descriptor travels with the entry so readers never re-derive the merge.
func (r *Recorder) Conflict(ctx context.Context, companyID, actorDevice string, conflict models.ConflictDescriptor) error {
	descriptor := conflict
	return r.append(ctx, models.AuditEntry{
		CompanyID:   companyID,
		EntityID:    conflict.EntityID,
		EntityType:  conflict.EntityType,
		ActorDevice: actorDevice,
		Kind:        models.AuditConflict,
		Summary:     conflictSummary(conflict),
		Conflict:    &descriptor,
	})
}

// RotationStep records one step of a key rotation (start, rewrap batch,
// finalize, cancel, revocation).
func (r *Recorder) RotationStep(ctx context.Context, companyID, actorDevice, summary string) error {
	return r.append(ctx, models.AuditEntry{
		CompanyID:   companyID,
		ActorDevice: actorDevice,
		Kind:        models.AuditKeyRotationStep,
		Summary:     summary,
	})
}

// SyncFailure records an entity skipped during batch ingestion, typically a
// ciphertext that failed to decrypt. The cause goes into the summary; the
// entity stays untouched and is retried on the next cycle.
func (r *Recorder) SyncFailure(ctx context.Context, companyID, entityID string, entityType models.EntityType, actorDevice string, cause error) error {
	return r.append(ctx, models.AuditEntry{
		CompanyID:   companyID,
		EntityID:    entityID,
		EntityType:  entityType,
		ActorDevice: actorDevice,
		Kind:        models.AuditSyncFailure,
		Summary:     fmt.Sprintf("entity skipped during sync: %v", cause),
	})
}

// Conflicts returns the conflict descriptors recorded at or after the given
// instant, oldest first.
func (r *Recorder) Conflicts(ctx context.Context, companyID string, since time.Time) ([]models.ConflictDescriptor, error) {
	return r.repo.ConflictsSince(ctx, companyID, since)
}

func (r *Recorder) append(ctx context.Context, entry models.AuditEntry) error {
	entry.ID = r.ids.Generate()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	if err := r.repo.Append(ctx, entry); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "Recorder.append").
			Str("kind", string(entry.Kind)).
			Str("entity_id", entry.EntityID).
			Msg("failed to append audit entry")
		return err
	}
	return nil
}

func conflictSummary(conflict models.ConflictDescriptor) string {
	switch conflict.Kind {
	case models.ConflictFields:
		return fmt.Sprintf("concurrent edits to %d field(s) resolved by last-writer-wins", len(conflict.Fields))
	case models.ConflictInvariant:
		return fmt.Sprintf("merged entity violates invariant: %s", conflict.Invariant)
	case models.ConflictUndelete:
		return "concurrent edit outlived a deletion; entity resurrected"
	default:
		return string(conflict.Kind)
	}
}
