package crypto

//go:generate mockgen -source=interfaces.go -destination=../mock/keyring_mock.go -package=mock

import "github.com/tallyvault/tallyvault/models"

// Envelope wraps and unwraps entity field payloads under a company key
// epoch. All plaintext exposure in the sync core is confined to this
// interface and the merge strategies that must read field values to decide
// conflicts — no other component ever sees unwrapped data, which bounds the
// blast radius of implementation bugs to a single, reviewable module.
type Envelope interface {
	// Wrap seals plaintext under the given key epoch with AES-256-GCM.
	// Fails with [ErrEpochRetired] if the epoch's material was discarded,
	// or [ErrKeyNotFound] if the epoch is unknown to the keyring.
	Wrap(plaintext []byte, keyID string) (models.EncryptedField, error)

	// Unwrap opens a sealed field. Fails with [ErrKeyNotFound] when the
	// referenced epoch is unknown or retired, and [ErrDecryption] on a
	// wrong key or tampered ciphertext (authentication-tag mismatch).
	Unwrap(field models.EncryptedField) ([]byte, error)

	// Rewrap decrypts a field sealed under oldKeyID and re-seals it under
	// newKeyID without the plaintext ever leaving this call. Atomic from
	// the caller's perspective: on any error the original field value is
	// returned untouched. Used exclusively by the rotation coordinator.
	Rewrap(field models.EncryptedField, oldKeyID, newKeyID string) (models.EncryptedField, error)
}

// Keyring manages the lifecycle of a company's key epochs on top of the
// [Envelope] operations. Epoch key material lives only inside the keyring;
// what leaves it is either ciphertext or a DEK wrapped under the company
// key-encryption key.
type Keyring interface {
	Envelope

	// CreateEpoch generates a fresh data-encryption key and makes it the
	// company's ACTIVE epoch. A previously active epoch moves to RETIRING.
	// Fails with [ErrRotationOverlap] while another epoch is still retiring.
	CreateEpoch() (models.KeyEpoch, error)

	// ActiveEpoch returns the current ACTIVE epoch, if any.
	ActiveEpoch() (models.KeyEpoch, bool)

	// RetiringEpoch returns the RETIRING epoch during a rotation window.
	RetiringEpoch() (models.KeyEpoch, bool)

	// RetireEpoch marks the epoch RETIRED and zeroes its key material.
	// Subsequent Unwrap calls against it fail with [ErrKeyNotFound].
	RetireEpoch(keyID string) error

	// WrappedDEK returns the epoch's data-encryption key sealed under the
	// company KEK, safe to hand to the storage layer.
	WrappedDEK(keyID string) ([]byte, error)

	// RestoreEpoch loads a persisted epoch back into the keyring, unwrapping
	// its DEK with the company KEK. Retired epochs restore metadata only.
	RestoreEpoch(meta models.KeyEpoch, wrappedDEK []byte) error
}
