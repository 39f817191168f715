// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

// Package crypto implements the encryption envelope of the sync core: field
// payloads sealed with AES-256-GCM under per-company key epochs, and the
// epoch lifecycle (create, retire, restore) on top of it.
//
// Key hierarchy:
//
//	KEK  = Argon2id(master secret, company salt)   — exists only in memory
//	DEK  = random 256-bit key, one per epoch       — wrapped under KEK at rest
//	field ciphertext = AES-256-GCM(DEK, nonce ‖ plaintext)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/tallyvault/tallyvault/models"
	"github.com/tallyvault/tallyvault/internal/utils"
)

// epoch pairs persisted epoch metadata with its in-memory key material.
// dek is nil once the epoch is retired.
type epoch struct {
	meta models.KeyEpoch
	dek  []byte
}

// keyring is the private implementation of [Keyring].
type keyring struct {
	companyID string
	ids       *utils.UUIDGenerator

	// Argon2id tuning parameters. Stored in the struct so they can be
	// adjusted per deployment target (e.g. mobile vs. desktop).
	argonTime    uint32
	argonMemory  uint32
	argonThreads uint8
	argonKeyLen  uint32

	kek []byte

	mu         sync.RWMutex
	epochs     map[string]*epoch
	activeID   string
	retiringID string
}

// NewKeyring constructs a [Keyring] for one company. The key-encryption key
// is derived immediately from masterSecret and salt with Argon2id, using the
// parameters recommended by OWASP (2024):
//   - time cost:   1 iteration
//   - memory cost: 64 MiB
//   - parallelism: 4 threads
//   - key length:  32 bytes (256 bits)
func NewKeyring(companyID, masterSecret string, salt []byte) Keyring {
	k := &keyring{
		companyID:    companyID,
		ids:          utils.NewUUIDGenerator(),
		argonTime:    1,
		argonMemory:  64 * 1024, // 64 MiB
		argonThreads: 4,
		argonKeyLen:  32, // 256 bits
		epochs:       make(map[string]*epoch),
	}
	k.kek = argon2.IDKey(
		[]byte(masterSecret),
		salt,
		k.argonTime,
		k.argonMemory,
		k.argonThreads,
		k.argonKeyLen,
	)
	return k
}

// CreateEpoch implements [Keyring]. It reads 32 random bytes from the OS
// CSPRNG as the new DEK, registers the epoch as ACTIVE, and demotes the
// previous active epoch to RETIRING.
func (k *keyring) CreateEpoch() (models.KeyEpoch, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.retiringID != "" {
		return models.KeyEpoch{}, ErrRotationOverlap
	}

	dek := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, dek); err != nil {
		return models.KeyEpoch{}, fmt.Errorf("%w: generate DEK: %w", ErrEncryption, err)
	}

	meta := models.KeyEpoch{
		KeyID:     k.ids.Generate(),
		CompanyID: k.companyID,
		CreatedAt: time.Now().UTC(),
		Status:    models.EpochActive,
	}

	if k.activeID != "" {
		old := k.epochs[k.activeID]
		old.meta.Status = models.EpochRetiring
		k.retiringID = k.activeID
	}

	k.epochs[meta.KeyID] = &epoch{meta: meta, dek: dek}
	k.activeID = meta.KeyID

	return meta, nil
}

// ActiveEpoch implements [Keyring].
func (k *keyring) ActiveEpoch() (models.KeyEpoch, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.activeID == "" {
		return models.KeyEpoch{}, false
	}
	return k.epochs[k.activeID].meta, true
}

// RetiringEpoch implements [Keyring].
func (k *keyring) RetiringEpoch() (models.KeyEpoch, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.retiringID == "" {
		return models.KeyEpoch{}, false
	}
	return k.epochs[k.retiringID].meta, true
}

// RetireEpoch implements [Keyring]. Zeroing the DEK slice before dropping
// the reference keeps the material from lingering in reachable memory.
func (k *keyring) RetireEpoch(keyID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	ep, ok := k.epochs[keyID]
	if !ok {
		return ErrKeyNotFound
	}

	for i := range ep.dek {
		ep.dek[i] = 0
	}
	ep.dek = nil
	ep.meta.Status = models.EpochRetired

	if k.retiringID == keyID {
		k.retiringID = ""
	}
	if k.activeID == keyID {
		k.activeID = ""
	}

	return nil
}

// WrappedDEK implements [Keyring]. It seals the epoch's DEK under the
// company KEK with AES-256-GCM so the storage layer only ever sees
// nonce ‖ ciphertext — without the KEK this is just random noise.
func (k *keyring) WrappedDEK(keyID string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	ep, ok := k.epochs[keyID]
	if !ok || ep.dek == nil {
		return nil, ErrKeyNotFound
	}

	return seal(k.kek, ep.dek)
}

// RestoreEpoch implements [Keyring]. It loads a persisted epoch back into
// memory: the wrapped DEK is opened with the company KEK, except for
// retired epochs, whose material is gone for good and which restore as
// metadata only.
func (k *keyring) RestoreEpoch(meta models.KeyEpoch, wrappedDEK []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	ep := &epoch{meta: meta}

	if meta.Status != models.EpochRetired {
		dek, err := open(k.kek, wrappedDEK)
		if err != nil {
			return fmt.Errorf("unwrap DEK for epoch %s: %w", meta.KeyID, err)
		}
		ep.dek = dek
	}

	k.epochs[meta.KeyID] = ep
	switch meta.Status {
	case models.EpochActive:
		k.activeID = meta.KeyID
	case models.EpochRetiring:
		k.retiringID = meta.KeyID
	}

	return nil
}

// Wrap implements [Envelope].
func (k *keyring) Wrap(plaintext []byte, keyID string) (models.EncryptedField, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	ep, ok := k.epochs[keyID]
	if !ok {
		return models.EncryptedField{}, ErrKeyNotFound
	}
	if ep.meta.Status == models.EpochRetired || ep.dek == nil {
		return models.EncryptedField{}, ErrEpochRetired
	}

	blob, err := seal(ep.dek, plaintext)
	if err != nil {
		return models.EncryptedField{}, err
	}

	return models.EncryptedField{
		KeyID:      keyID,
		Ciphertext: base64.StdEncoding.EncodeToString(blob),
	}, nil
}

// Unwrap implements [Envelope].
func (k *keyring) Unwrap(field models.EncryptedField) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	ep, ok := k.epochs[field.KeyID]
	if !ok || ep.dek == nil {
		return nil, ErrKeyNotFound
	}

	blob, err := base64.StdEncoding.DecodeString(field.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64: %w", ErrDecryption, err)
	}

	return open(ep.dek, blob)
}

// Rewrap implements [Envelope]. The plaintext produced in the middle never
// leaves this call: it is zeroed before returning.
func (k *keyring) Rewrap(field models.EncryptedField, oldKeyID, newKeyID string) (models.EncryptedField, error) {
	if field.KeyID != oldKeyID {
		return field, fmt.Errorf("%w: field references epoch %s, not %s",
			ErrKeyNotFound, field.KeyID, oldKeyID)
	}

	plaintext, err := k.Unwrap(field)
	if err != nil {
		return field, err
	}
	defer func() {
		for i := range plaintext {
			plaintext[i] = 0
		}
	}()

	rewrapped, err := k.Wrap(plaintext, newKeyID)
	if err != nil {
		return field, err
	}
	return rewrapped, nil
}

// seal encrypts plaintext with AES-256-GCM under key. A random 12-byte
// nonce is prepended to the ciphertext so the decryption side can locate
// it: blob = nonce ‖ ciphertext.
func seal(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: create cipher: %w", ErrEncryption, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: create gcm: %w", ErrEncryption, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: generate nonce: %w", ErrEncryption, err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
	return append(nonce, ciphertext...), nil
}

// open decrypts a nonce-prefixed AES-256-GCM blob. An auth-tag failure here
// almost always means the field was sealed under a different epoch's DEK or
// the ciphertext was tampered with.
func open(key, blob []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: create cipher: %w", ErrDecryption, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: create gcm: %w", ErrDecryption, err)
	}

	nonceSize := gcm.NonceSize()
	if len(blob) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryption)
	}

	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryption, err)
	}

	return plaintext, nil
}
