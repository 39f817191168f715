package crypto

import "errors"

// Sentinel errors returned by the envelope and keyring. All of them are
// entity-local from the sync engine's point of view: a failing field skips
// its entity, never the whole batch. Callers match with [errors.Is].
var (
	// ErrEncryption is returned when sealing a field payload fails.
	ErrEncryption = errors.New("field encryption failed")

	// ErrDecryption is returned when opening a sealed field fails: wrong
	// key, or ciphertext corrupted (authentication-tag mismatch).
	ErrDecryption = errors.New("field decryption failed")

	// ErrKeyNotFound is returned when a field references a key epoch the
	// keyring does not hold material for, including retired epochs.
	ErrKeyNotFound = errors.New("key epoch not found")

	// ErrEpochRetired is returned when a caller attempts to wrap new data
	// under an epoch whose key material was already discarded.
	ErrEpochRetired = errors.New("key epoch is retired")

	// ErrRotationOverlap is returned by CreateEpoch while a previous epoch
	// is still retiring: at most one rotation runs per company at a time.
	ErrRotationOverlap = errors.New("previous key epoch is still retiring")
)
