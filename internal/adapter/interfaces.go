// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

// Package adapter provides transport-layer abstractions for communicating
// with a tallyvault hub.
//
// The primary abstraction is [HubAdapter], which decouples the push job from
// the underlying protocol. The package ships an HTTP/REST implementation
// ([NewHTTPHubAdapter]) built on resty.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling (e.g. [ErrUnauthorized] for 401, [ErrDeviceRevoked] for 403).
package adapter

import (
	"context"
	"time"

	"github.com/tallyvault/tallyvault/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/hub_adapter_mock.go -package=mock

// HubAdapter defines transport-agnostic communication with a hub.
// Implementations are responsible for serialisation, authentication header
// management, and mapping transport-level errors to the sentinel values
// defined in this package.
type HubAdapter interface {
	// SetToken stores the bearer token that will be attached to all
	// subsequent authenticated requests. It should be called immediately
	// after a successful RegisterDevice.
	SetToken(token string)

	// Token returns the bearer token currently stored in the adapter, or an
	// empty string if no token has been set yet.
	Token() string

	// RegisterDevice joins the company on the hub under the given device id.
	// On success it stores the returned bearer token via SetToken and
	// returns the persisted device record.
	RegisterDevice(ctx context.Context, deviceID string) (models.Device, error)

	// PushBatch sends a batch of entity snapshots to the hub and returns the
	// per-entity ingestion outcome. Returns [ErrUnauthorized] or
	// [ErrDeviceRevoked] (wrapped) when the credential is rejected.
	PushBatch(ctx context.Context, batch models.BatchRequest) (models.BatchResult, error)

	// FetchConflicts retrieves the hub's conflict history recorded at or
	// after the given instant.
	FetchConflicts(ctx context.Context, since time.Time) ([]models.ConflictDescriptor, error)

	// FetchEpochs retrieves the hub's key epoch set. The wrapped key
	// material in the records only opens for replicas deriving the same
	// company KEK.
	FetchEpochs(ctx context.Context) ([]models.KeyEpochRecord, error)
}
