// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package models

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Device is one replica participating in a company's ledger. Revoking a
// device invalidates its access credentials so it can no longer unwrap the
// active epoch's key-wrapping secret; plaintext already synced to the device
// cannot be un-synced.
type Device struct {
	DeviceID     string     `json:"device_id"`
	CompanyID    string     `json:"company_id"`
	RegisteredAt time.Time  `json:"registered_at"`
	Revoked      bool       `json:"revoked"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
}

// TableName returns the name of the database table
// associated with the Device model.
func (d Device) TableName() string {
	return "devices"
}

// DeviceRegistrationRequest is the payload a new replica sends to join a
// company.
type DeviceRegistrationRequest struct {
	DeviceID string `json:"device_id"`
}

// DeviceRegistrationResponse carries the persisted device record and its
// first signed credential.
type DeviceRegistrationResponse struct {
	Device Device `json:"device"`
	Token  string `json:"token"`
}

// Token wraps a device credential JWT with convenience accessors.
//
// It embeds [jwt.Token] for low-level token operations and
// [jwt.RegisteredClaims] for standard claim access. The "sub" claim carries
// the device identifier.
type Token struct {
	// Token is the underlying JWT used for signing and claim inspection.
	*jwt.Token `json:"-"`

	// RegisteredClaims provides the standard JWT claim set (RFC 7519).
	jwt.RegisteredClaims

	// SignedString is the compact JWS representation of the token.
	SignedString string `json:"-"`

	// DeviceID is the device identifier extracted from the "sub" claim,
	// cached to avoid repeated claim parsing.
	DeviceID string `json:"-"`
}

// GetDeviceID extracts the device identifier from the token's "sub" claim.
// Returns an error if the claim is missing or empty.
func (t *Token) GetDeviceID() (string, error) {
	deviceID, err := t.GetSubject()
	if err != nil {
		return "", err
	}
	if deviceID == "" {
		return "", errors.New("empty subject in device token")
	}
	return deviceID, nil
}

// String returns the compact JWS serialization of the token.
// It implements the [fmt.Stringer] interface.
func (t *Token) String() string {
	return t.SignedString
}
