// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package models

import "time"

// EntityType tags the domain record wrapped by an [Entity]. The set is
// closed: every type listed here has a merge strategy registered at startup,
// and an entity arriving with any other tag is a programming error.
type EntityType string

const (
	EntityAccount     EntityType = "account"
	EntityTransaction EntityType = "transaction"
	EntityContact     EntityType = "contact"
	EntityProduct     EntityType = "product"
	EntityCompany     EntityType = "company"
	EntityUser        EntityType = "user"
)

// EncryptedField holds one ciphered entity field together with a reference
// to the key epoch it was wrapped under. The actual structure and meaning of
// the plaintext are unknown to the storage layer.
//
// Ciphertext is the Base64 (standard encoding) form of nonce ‖ ciphertext as
// produced by the envelope module.
type EncryptedField struct {
	// KeyID references the wrapping [KeyEpoch]. During a rotation window
	// different fields of the same entity may reference different epochs.
	KeyID string `json:"key_id"`

	// Ciphertext is the AES-256-GCM sealed field payload.
	Ciphertext string `json:"ciphertext"`
}

// Entity is the generic envelope around any domain record (Account,
// Transaction, Contact, ...). The sync core never sees the plaintext of its
// fields; only the envelope module and the active merge strategy do.
type Entity struct {
	// ID is the immutable identity of the record, assigned at creation by
	// the originating device and identical on every replica.
	ID string `json:"id"`

	// CompanyID scopes the entity. Version vectors, key epochs and the
	// company lock are all per-company.
	CompanyID string `json:"company_id"`

	// Type selects the merge strategy for this entity.
	Type EntityType `json:"type"`

	// Vector is the causal history of this revision. It strictly increases
	// (per device) on every local mutation and is replaced, never mutated,
	// when revisions merge.
	Vector VersionVector `json:"vector"`

	// LastModifiedBy is the device that produced this revision.
	LastModifiedBy string `json:"last_modified_by"`

	// Deleted marks the entity as a tombstone. Tombstoned entities are never
	// physically removed: they keep their vector so a concurrent
	// un-delete/edit race can still be resolved causally.
	Deleted bool `json:"deleted"`

	// DeletedAt is the wall-clock deletion time, used to decide whether a
	// concurrent edit outlives the tombstone. Nil while Deleted is false.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	// Fields holds the ciphered field payloads keyed by field name.
	Fields map[string]EncryptedField `json:"fields"`

	// UpdatedAt is bookkeeping for the storage layer (sync push cursors,
	// not merge decisions).
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the entity. Merge and rewrap paths treat
// entities as immutable snapshots and produce new revisions via Clone.
func (e Entity) Clone() Entity {
	out := e
	out.Vector = e.Vector.Clone()
	out.Fields = make(map[string]EncryptedField, len(e.Fields))
	for name, field := range e.Fields {
		out.Fields[name] = field
	}
	if e.DeletedAt != nil {
		at := *e.DeletedAt
		out.DeletedAt = &at
	}
	return out
}

// KeyIDs returns the distinct key epochs referenced by the entity's fields.
func (e Entity) KeyIDs() []string {
	seen := make(map[string]struct{}, 2)
	ids := make([]string, 0, 2)
	for _, field := range e.Fields {
		if _, ok := seen[field.KeyID]; ok {
			continue
		}
		seen[field.KeyID] = struct{}{}
		ids = append(ids, field.KeyID)
	}
	return ids
}

// ReferencesKey reports whether any field of the entity is still wrapped
// under the given key epoch. The rotation coordinator's resumable selection
// criterion is exactly this predicate.
func (e Entity) ReferencesKey(keyID string) bool {
	for _, field := range e.Fields {
		if field.KeyID == keyID {
			return true
		}
	}
	return false
}

// TableName returns the name of the database table
// associated with the Entity model.
func (e Entity) TableName() string {
	return "entities"
}
