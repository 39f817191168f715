// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tallyvault/tallyvault/models"
)

// NewMemoryStorages returns a fully in-memory repository set. It backs the
// single-device vault mode before a local database is configured, and the
// engine and rotation tests.
func NewMemoryStorages() Storages {
	return Storages{
		Entities: &memoryEntityRepository{entities: make(map[string]models.Entity)},
		Audit:    &memoryAuditRepository{},
		Epochs:   &memoryEpochRepository{records: make(map[string]EpochRecord)},
		Devices:  &memoryDeviceRepository{devices: make(map[string]models.Device)},
	}
}

func memoryKey(companyID, id string) string {
	return companyID + "/" + id
}

type memoryEntityRepository struct {
	mu       sync.RWMutex
	entities map[string]models.Entity
}

func (r *memoryEntityRepository) Get(_ context.Context, companyID, entityID string) (models.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.entities[memoryKey(companyID, entityID)]
	if !ok {
		return models.Entity{}, ErrEntityNotFound
	}
	return entity.Clone(), nil
}

func (r *memoryEntityRepository) Save(_ context.Context, entity models.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entities[memoryKey(entity.CompanyID, entity.ID)] = entity.Clone()
	return nil
}

func (r *memoryEntityRepository) ListByKeyEpoch(_ context.Context, companyID, keyID string, limit int) ([]models.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]models.Entity, 0, 8)
	for _, entity := range r.entities {
		if entity.CompanyID == companyID && entity.ReferencesKey(keyID) {
			matched = append(matched, entity.Clone())
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *memoryEntityRepository) CountByKeyEpoch(_ context.Context, companyID, keyID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, entity := range r.entities {
		if entity.CompanyID == companyID && entity.ReferencesKey(keyID) {
			count++
		}
	}
	return count, nil
}

func (r *memoryEntityRepository) ListModifiedSince(_ context.Context, companyID string, since time.Time, limit int) ([]models.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]models.Entity, 0, 8)
	for _, entity := range r.entities {
		if entity.CompanyID == companyID && entity.UpdatedAt.After(since) {
			matched = append(matched, entity.Clone())
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.Before(matched[j].UpdatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

type memoryAuditRepository struct {
	mu      sync.RWMutex
	entries []models.AuditEntry
}

func (r *memoryAuditRepository) Append(_ context.Context, entry models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)
	return nil
}

func (r *memoryAuditRepository) ConflictsSince(_ context.Context, companyID string, since time.Time) ([]models.ConflictDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conflicts := make([]models.ConflictDescriptor, 0, 8)
	for _, entry := range r.entries {
		if entry.CompanyID != companyID || entry.Kind != models.AuditConflict || entry.Conflict == nil {
			continue
		}
		if entry.Timestamp.Before(since) {
			continue
		}
		conflicts = append(conflicts, *entry.Conflict)
	}
	return conflicts, nil
}

type memoryEpochRepository struct {
	mu      sync.RWMutex
	records map[string]EpochRecord
	order   []string
}

func (r *memoryEpochRepository) Save(_ context.Context, epoch models.KeyEpoch, wrappedDEK []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, seen := r.records[epoch.KeyID]; !seen {
		r.order = append(r.order, epoch.KeyID)
	}
	material := make([]byte, len(wrappedDEK))
	copy(material, wrappedDEK)
	r.records[epoch.KeyID] = EpochRecord{Epoch: epoch, WrappedDEK: material}
	return nil
}

func (r *memoryEpochRepository) List(_ context.Context, companyID string) ([]EpochRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]EpochRecord, 0, len(r.order))
	for _, keyID := range r.order {
		rec := r.records[keyID]
		if rec.Epoch.CompanyID == companyID {
			records = append(records, rec)
		}
	}
	return records, nil
}

type memoryDeviceRepository struct {
	mu      sync.RWMutex
	devices map[string]models.Device
}

func (r *memoryDeviceRepository) Register(_ context.Context, device models.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := memoryKey(device.CompanyID, device.DeviceID)
	if _, exists := r.devices[key]; exists {
		return ErrDeviceAlreadyExists
	}
	r.devices[key] = device
	return nil
}

func (r *memoryDeviceRepository) Get(_ context.Context, companyID, deviceID string) (models.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.devices[memoryKey(companyID, deviceID)]
	if !ok {
		return models.Device{}, ErrDeviceNotFound
	}
	return device, nil
}

func (r *memoryDeviceRepository) Revoke(_ context.Context, companyID, deviceID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := memoryKey(companyID, deviceID)
	device, ok := r.devices[key]
	if !ok {
		return ErrDeviceNotFound
	}
	if !device.Revoked {
		device.Revoked = true
		revokedAt := at
		device.RevokedAt = &revokedAt
		r.devices[key] = device
	}
	return nil
}
