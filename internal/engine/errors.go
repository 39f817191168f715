package engine

import "errors"

// Engine-level error values.
//
// Per-entity ingestion failures are not modeled as errors: they are recorded
// in the batch result and the audit log so one bad ciphertext never blocks
// the rest of a batch.
var (
	// ErrNoActiveEpoch is returned when a write path needs to seal plaintext
	// but the company keyring has no ACTIVE key epoch.
	ErrNoActiveEpoch = errors.New("no active key epoch")

	// ErrCompanyMismatch is returned when an operation references an entity
	// belonging to a different company than the engine is scoped to.
	ErrCompanyMismatch = errors.New("entity belongs to a different company")

	// ErrEmptyEdit is returned by ApplyLocalEdit when the edit carries neither
	// field changes nor a deletion.
	ErrEmptyEdit = errors.New("edit carries no field changes")
)
