// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package models

import "time"

// EpochStatus is the lifecycle state of a [KeyEpoch].
type EpochStatus string

const (
	// EpochActive: the epoch all new and re-encrypted fields are wrapped
	// under. At most one ACTIVE epoch exists per company at any time.
	EpochActive EpochStatus = "ACTIVE"

	// EpochRetiring: the previous active epoch during a rotation window.
	// Decryption still accepts it; nothing new is wrapped under it.
	EpochRetiring EpochStatus = "RETIRING"

	// EpochRetired: the rotation finished and the epoch's key material was
	// discarded. Only the metadata row survives for the audit trail.
	EpochRetired EpochStatus = "RETIRED"
)

// KeyEpoch is one named generation of a company's data-encryption key.
// An entity field references exactly one epoch at a time via
// [EncryptedField.KeyID].
type KeyEpoch struct {
	KeyID     string      `json:"key_id"`
	CompanyID string      `json:"company_id"`
	CreatedAt time.Time   `json:"created_at"`
	Status    EpochStatus `json:"status"`
}

// TableName returns the name of the database table
// associated with the KeyEpoch model.
func (k KeyEpoch) TableName() string {
	return "key_epochs"
}

// KeyEpochRecord pairs an epoch with its KEK-wrapped key material as it
// travels between replicas. Without the company master secret the wrapped
// DEK is opaque, so the record is safe to persist and to serve to
// authenticated devices.
type KeyEpochRecord struct {
	Epoch      KeyEpoch `json:"epoch"`
	WrappedDEK []byte   `json:"wrapped_dek,omitempty"`
}

// EpochsResponse carries a company's epoch set returned to a syncing
// replica, with an explicit element count.
type EpochsResponse struct {
	Epochs []KeyEpochRecord `json:"epochs"`
	Length int              `json:"length"`
}

// RotationState labels where a company's rotation currently stands.
type RotationState string

const (
	RotationIdle       RotationState = "idle"
	RotationRewrapping RotationState = "rewrapping"

	// RotationPaused: a rotation window is open but an operator cancelled
	// driving it. The retiring epoch keeps its material; startRotation
	// resumes the same window.
	RotationPaused RotationState = "paused"
)

// RotationStatus is the coordinator's progress report, returned by the
// rotationStatus API and by every RewrapNext batch.
type RotationStatus struct {
	State         RotationState `json:"state"`
	ActiveKeyID   string        `json:"active_key_id"`
	RetiringKeyID string        `json:"retiring_key_id,omitempty"`

	// Remaining counts entities still referencing the retiring epoch.
	// An entity re-encrypted by the sync engine during the rotation window
	// counts as rewrapped here exactly like one the coordinator processed.
	Remaining int `json:"remaining"`

	// Rewrapped counts entities the coordinator itself has re-wrapped since
	// the rotation started. Engine re-encryptions are not double counted.
	Rewrapped int `json:"rewrapped"`
}
