// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package config

import "fmt"

// validate checks that the final merged [StructuredConfig] satisfies all
// application invariants before it is used at startup.
//
// Returns nil if the configuration is valid, or a descriptive error otherwise.
func (cfg *StructuredConfig) validate() error {
	if cfg.App.CompanyID == "" {
		return fmt.Errorf("%w: company id is required", ErrInvalidAppConfigs)
	}
	if cfg.App.DeviceID == "" {
		return fmt.Errorf("%w: device id is required", ErrInvalidAppConfigs)
	}
	if cfg.App.MasterSecret == "" {
		return fmt.Errorf("%w: master secret is required", ErrInvalidAppConfigs)
	}
	if cfg.App.EpochSalt == "" {
		return fmt.Errorf("%w: epoch salt is required", ErrInvalidAppConfigs)
	}

	if cfg.Storage.DB.DSN == "" && cfg.Storage.Local.Path == "" {
		return fmt.Errorf("%w: either a database DSN or a local db path is required", ErrInvalidStorageConfigs)
	}

	// The push job needs both a destination and a cadence; one without the
	// other is a misconfiguration rather than a disabled job.
	if (cfg.Sync.HubURL == "") != (cfg.Sync.PushInterval == 0) {
		return fmt.Errorf("%w: hub url and push interval must be set together", ErrInvalidSyncConfigs)
	}

	return nil
}
