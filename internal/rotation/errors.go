package rotation

import "errors"

// Coordinator-level error values.
var (
	// ErrRotationInProgress is returned by StartRotation when a fresh epoch
	// cannot be created because a previous rotation is still rewrapping.
	// The caller should drive the existing rotation to completion instead.
	ErrRotationInProgress = errors.New("a key rotation is already in progress")

	// ErrNoRotationInProgress is returned by RewrapNext, Finalize and Cancel
	// when no epoch is currently retiring.
	ErrNoRotationInProgress = errors.New("no key rotation in progress")

	// ErrRewrapIncomplete is returned by Finalize while entities still
	// reference the retiring epoch. The retiring key material must outlive
	// the last ciphertext wrapped under it.
	ErrRewrapIncomplete = errors.New("entities still reference the retiring epoch")

	// ErrNoActiveEpoch is returned when rotation is requested before the
	// company has any key epoch at all.
	ErrNoActiveEpoch = errors.New("no active key epoch")
)
