// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package models

import "time"

// AuditKind classifies an [AuditEntry].
type AuditKind string

const (
	AuditMerge           AuditKind = "MERGE"
	AuditConflict        AuditKind = "CONFLICT"
	AuditKeyRotationStep AuditKind = "KEY_ROTATION_STEP"

	// AuditSyncFailure records an entity skipped during batch ingestion
	// (decryption failure or similar). The entity is retried on the next
	// sync cycle; the entry makes the skip visible to operators.
	AuditSyncFailure AuditKind = "SYNC_FAILURE"
)

// AuditEntry is one immutable record in the append-only audit/conflict log.
// Entries are created only by the synchronization engine and the key
// rotation coordinator, and are never mutated or deleted by user action.
type AuditEntry struct {
	ID          string     `json:"id"`
	CompanyID   string     `json:"company_id"`
	EntityID    string     `json:"entity_id,omitempty"`
	EntityType  EntityType `json:"entity_type,omitempty"`
	ActorDevice string     `json:"actor_device"`
	Timestamp   time.Time  `json:"timestamp"`
	Kind        AuditKind  `json:"kind"`

	// Summary is a short human-readable description of the decision or
	// rotation step. It never contains plaintext field values.
	Summary string `json:"summary"`

	// Conflict carries the full descriptor for CONFLICT entries so the UI
	// can surface the contended fields without re-deriving the merge.
	Conflict *ConflictDescriptor `json:"conflict,omitempty"`
}

// TableName returns the name of the database table
// associated with the AuditEntry model.
func (a AuditEntry) TableName() string {
	return "audit_log"
}
