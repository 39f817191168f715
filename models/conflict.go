// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package models

import (
	"encoding/json"
	"time"
)

// ConflictKind classifies what kind of human-meaningful information a merge
// lost or chose by policy.
type ConflictKind string

const (
	// ConflictFields: concurrent writes to the same field; the later write
	// won and the losing value is recorded in the descriptor.
	ConflictFields ConflictKind = "fields"

	// ConflictInvariant: the merged entity violates a domain invariant
	// (e.g. transaction debits no longer balance credits). The provisional
	// last-writer-wins result is kept; resolution is deferred to a human.
	ConflictInvariant ConflictKind = "invariant"

	// ConflictUndelete: an edit outlived a concurrent tombstone, so the
	// entity was resurrected. Recorded so the audit trail makes the
	// resurrection explicit.
	ConflictUndelete ConflictKind = "undelete"
)

// FieldConflict names one field that was in contention and the value the
// policy discarded.
type FieldConflict struct {
	Name            string          `json:"name"`
	Kept            json.RawMessage `json:"kept"`
	KeptDevice      string          `json:"kept_device"`
	Discarded       json.RawMessage `json:"discarded"`
	DiscardedDevice string          `json:"discarded_device"`
}

// ConflictDescriptor describes a merge that still produced a usable entity
// but lost or policy-chose information on the way. It is what the UI layer
// surfaces for human review.
type ConflictDescriptor struct {
	EntityID   string          `json:"entity_id"`
	EntityType EntityType      `json:"entity_type"`
	Kind       ConflictKind    `json:"kind"`
	Fields     []FieldConflict `json:"fields,omitempty"`

	// Invariant names the violated domain rule when Kind is
	// [ConflictInvariant] (e.g. "transaction debits must balance credits").
	Invariant string `json:"invariant,omitempty"`

	DetectedAt time.Time `json:"detected_at"`
}
