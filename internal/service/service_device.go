// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tallyvault/tallyvault/internal/config"
	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/internal/rotation"
	"github.com/tallyvault/tallyvault/internal/store"
	"github.com/tallyvault/tallyvault/internal/utils"
	"github.com/tallyvault/tallyvault/models"
)

// deviceService is the concrete implementation of DeviceService. It handles
// replica registration, JWT credential lifecycle, and revocation. Revocation
// delegates to the rotation coordinator so the revoked device's copy of the
// key material goes stale.
type deviceService struct {
	// devices is the data-access layer used to create and look up devices.
	devices store.DeviceRepository

	// coordinator starts a key rotation when a device is revoked.
	coordinator *rotation.Coordinator

	// companyID scopes every lookup; one service serves one company.
	companyID string

	// tokenSignKey is the HMAC secret used to sign and verify JWT credentials.
	tokenSignKey string

	// tokenIssuer is the "iss" claim embedded in every issued JWT.
	// Tokens whose issuer does not match this value are rejected during parsing.
	tokenIssuer string

	// tokenDuration controls how long a newly issued JWT remains valid.
	tokenDuration time.Duration

	logger *logger.Logger
}

// NewDeviceService constructs a DeviceService wired to the given repository
// and rotation coordinator, with token parameters from cfg.
//
// The returned service is safe for concurrent use; all state is read-only
// after construction.
func NewDeviceService(devices store.DeviceRepository, coordinator *rotation.Coordinator,
	cfg config.App, logger *logger.Logger) DeviceService {
	return &deviceService{
		devices:       devices,
		coordinator:   coordinator,
		companyID:     cfg.CompanyID,
		tokenSignKey:  cfg.TokenSignKey,
		tokenIssuer:   cfg.TokenIssuer,
		tokenDuration: cfg.TokenDuration,
		logger:        logger,
	}
}

// RegisterDevice creates the device record and issues its first credential.
//
// Returns the persisted device and a signed token, or:
//   - ErrInvalidDataProvided if deviceID is empty.
//   - A wrapped storage error if the repository call fails (e.g. the id is
//     already taken — see store.ErrDeviceAlreadyExists).
func (d *deviceService) RegisterDevice(ctx context.Context, deviceID string) (models.Device, models.Token, error) {
	log := logger.FromContext(ctx)

	if deviceID == "" {
		log.Error().Str("func", "deviceService.RegisterDevice").Msg("empty device id provided")
		return models.Device{}, models.Token{}, ErrInvalidDataProvided
	}

	device := models.Device{
		DeviceID:     deviceID,
		CompanyID:    d.companyID,
		RegisteredAt: time.Now(),
	}
	if err := d.devices.Register(ctx, device); err != nil {
		log.Err(err).Str("device_id", deviceID).Msg("device registration ended with error")
		return models.Device{}, models.Token{}, fmt.Errorf("device registration ended with error: %w", err)
	}

	token, err := utils.GenerateJWTToken(d.tokenIssuer, deviceID, d.tokenDuration, d.tokenSignKey)
	if err != nil {
		return models.Device{}, models.Token{}, fmt.Errorf("%w: %w", ErrTokenCreationFailed, err)
	}

	return device, token, nil
}

// IssueToken issues a fresh credential for an already registered device.
//
// Returns the signed token or:
//   - A wrapped storage error if the device is unknown (see
//     store.ErrDeviceNotFound).
//   - ErrDeviceRevoked if the device has been revoked.
func (d *deviceService) IssueToken(ctx context.Context, deviceID string) (models.Token, error) {
	device, err := d.devices.Get(ctx, d.companyID, deviceID)
	if err != nil {
		return models.Token{}, fmt.Errorf("device lookup failed: %w", err)
	}
	if device.Revoked {
		return models.Token{}, ErrDeviceRevoked
	}

	token, err := utils.GenerateJWTToken(d.tokenIssuer, deviceID, d.tokenDuration, d.tokenSignKey)
	if err != nil {
		return models.Token{}, fmt.Errorf("%w: %w", ErrTokenCreationFailed, err)
	}
	return token, nil
}

// Authenticate validates a raw credential string and returns the device it
// names.
//
// Signature, expiry and issuer failures are normalised to
// ErrTokenIsExpiredOrInvalid so that callers do not need to inspect low-level
// JWT errors. A structurally valid token for a revoked device fails with
// ErrDeviceRevoked: revocation wins over token validity.
func (d *deviceService) Authenticate(ctx context.Context, tokenString string) (models.Device, error) {
	token, err := utils.ValidateAndParseJWTToken(tokenString, d.tokenSignKey, d.tokenIssuer)
	if err != nil {
		return models.Device{}, ErrTokenIsExpiredOrInvalid
	}

	device, err := d.devices.Get(ctx, d.companyID, token.DeviceID)
	if err != nil {
		return models.Device{}, fmt.Errorf("device lookup failed: %w", err)
	}
	if device.Revoked {
		logger.FromContext(ctx).Warn().
			Str("func", "deviceService.Authenticate").
			Str("device_id", device.DeviceID).
			Msg("revoked device presented a live token")
		return models.Device{}, ErrDeviceRevoked
	}

	return device, nil
}

// RevokeDevice implements DeviceService. Delegates to the rotation
// coordinator, which marks the credentials invalid and starts a key rotation.
func (d *deviceService) RevokeDevice(ctx context.Context, deviceID string) (models.RotationStatus, error) {
	return d.coordinator.RevokeDevice(ctx, deviceID)
}
