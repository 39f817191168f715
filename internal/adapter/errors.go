package adapter

import "errors"

var (
	// ErrUnauthorized is returned when the hub rejects the credential (401).
	ErrUnauthorized = errors.New("device unauthorized")

	// ErrDeviceRevoked is returned when the credential is valid but the
	// device has been revoked on the hub (403).
	ErrDeviceRevoked = errors.New("device revoked by hub")

	// ErrConflict is returned when the hub reports a conflicting state (409),
	// e.g. registering an already-taken device id.
	ErrConflict = errors.New("conflicting state on hub")
)
