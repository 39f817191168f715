package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/tallyvault/tallyvault/models"
)

func newTestKeyring(t *testing.T) Keyring {
	t.Helper()
	return NewKeyring("company-1", "correct horse battery staple", bytes.Repeat([]byte{0xAB}, 16))
}

func TestCreateEpoch_FirstEpochBecomesActive(t *testing.T) {
	k := newTestKeyring(t)

	ep, err := k.CreateEpoch()
	if err != nil {
		t.Fatalf("CreateEpoch error: %v", err)
	}
	if ep.Status != models.EpochActive {
		t.Fatalf("epoch status = %s, want ACTIVE", ep.Status)
	}

	active, ok := k.ActiveEpoch()
	if !ok || active.KeyID != ep.KeyID {
		t.Fatalf("ActiveEpoch = %v (ok=%v), want %s", active, ok, ep.KeyID)
	}
	if _, ok = k.RetiringEpoch(); ok {
		t.Fatalf("expected no retiring epoch after first CreateEpoch")
	}
}

func TestCreateEpoch_SecondEpochDemotesFirstToRetiring(t *testing.T) {
	k := newTestKeyring(t)

	first, err := k.CreateEpoch()
	if err != nil {
		t.Fatalf("CreateEpoch error: %v", err)
	}
	second, err := k.CreateEpoch()
	if err != nil {
		t.Fatalf("CreateEpoch error: %v", err)
	}

	active, _ := k.ActiveEpoch()
	if active.KeyID != second.KeyID {
		t.Fatalf("active epoch = %s, want %s", active.KeyID, second.KeyID)
	}

	retiring, ok := k.RetiringEpoch()
	if !ok || retiring.KeyID != first.KeyID {
		t.Fatalf("retiring epoch = %v (ok=%v), want %s", retiring, ok, first.KeyID)
	}
	if retiring.Status != models.EpochRetiring {
		t.Fatalf("retiring status = %s, want RETIRING", retiring.Status)
	}
}

func TestCreateEpoch_FailsWhileAnotherEpochIsRetiring(t *testing.T) {
	k := newTestKeyring(t)

	mustCreateEpoch(t, k)
	mustCreateEpoch(t, k)

	if _, err := k.CreateEpoch(); !errors.Is(err, ErrRotationOverlap) {
		t.Fatalf("CreateEpoch error = %v, want ErrRotationOverlap", err)
	}
}

func TestWrapUnwrap_RoundTrip(t *testing.T) {
	k := newTestKeyring(t)
	ep := mustCreateEpoch(t, k)

	plaintext := []byte(`{"raw":"Office Supplies","write_ts":1700000000000000,"device_id":"laptop"}`)

	field, err := k.Wrap(plaintext, ep.KeyID)
	if err != nil {
		t.Fatalf("Wrap error: %v", err)
	}
	if field.KeyID != ep.KeyID {
		t.Fatalf("field key id = %s, want %s", field.KeyID, ep.KeyID)
	}

	got, err := k.Unwrap(field)
	if err != nil {
		t.Fatalf("Unwrap error: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch: got %q", got)
	}
}

func TestUnwrap_TamperedCiphertextFails(t *testing.T) {
	k := newTestKeyring(t)
	ep := mustCreateEpoch(t, k)

	field, err := k.Wrap([]byte("sensitive"), ep.KeyID)
	if err != nil {
		t.Fatalf("Wrap error: %v", err)
	}

	// Flip one character of the base64 blob.
	tampered := field
	b := []byte(tampered.Ciphertext)
	if b[10] == 'A' {
		b[10] = 'B'
	} else {
		b[10] = 'A'
	}
	tampered.Ciphertext = string(b)

	if _, err = k.Unwrap(tampered); !errors.Is(err, ErrDecryption) {
		t.Fatalf("Unwrap error = %v, want ErrDecryption", err)
	}
}

func TestUnwrap_UnknownEpochFails(t *testing.T) {
	k := newTestKeyring(t)
	mustCreateEpoch(t, k)

	_, err := k.Unwrap(models.EncryptedField{KeyID: "no-such-epoch", Ciphertext: "AAAA"})
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Unwrap error = %v, want ErrKeyNotFound", err)
	}
}

func TestWrap_RetiredEpochFails(t *testing.T) {
	k := newTestKeyring(t)
	ep := mustCreateEpoch(t, k)

	if err := k.RetireEpoch(ep.KeyID); err != nil {
		t.Fatalf("RetireEpoch error: %v", err)
	}

	if _, err := k.Wrap([]byte("x"), ep.KeyID); !errors.Is(err, ErrEpochRetired) {
		t.Fatalf("Wrap error = %v, want ErrEpochRetired", err)
	}
	if _, err := k.Unwrap(models.EncryptedField{KeyID: ep.KeyID, Ciphertext: "AAAA"}); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Unwrap after retire error = %v, want ErrKeyNotFound", err)
	}
}

func TestRewrap_MovesFieldToNewEpochWithoutChangingPlaintext(t *testing.T) {
	k := newTestKeyring(t)
	old := mustCreateEpoch(t, k)

	plaintext := []byte("ledger field payload")
	field, err := k.Wrap(plaintext, old.KeyID)
	if err != nil {
		t.Fatalf("Wrap error: %v", err)
	}

	next := mustCreateEpoch(t, k)

	rewrapped, err := k.Rewrap(field, old.KeyID, next.KeyID)
	if err != nil {
		t.Fatalf("Rewrap error: %v", err)
	}
	if rewrapped.KeyID != next.KeyID {
		t.Fatalf("rewrapped key id = %s, want %s", rewrapped.KeyID, next.KeyID)
	}

	got, err := k.Unwrap(rewrapped)
	if err != nil {
		t.Fatalf("Unwrap error: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("plaintext changed across rewrap: got %q", got)
	}
}

func TestRewrap_WrongSourceEpochLeavesFieldUntouched(t *testing.T) {
	k := newTestKeyring(t)
	ep := mustCreateEpoch(t, k)

	field, err := k.Wrap([]byte("payload"), ep.KeyID)
	if err != nil {
		t.Fatalf("Wrap error: %v", err)
	}

	got, err := k.Rewrap(field, "some-other-epoch", ep.KeyID)
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Rewrap error = %v, want ErrKeyNotFound", err)
	}
	if got != field {
		t.Fatalf("Rewrap on error returned %+v, want the original field", got)
	}

	// Original field must still open.
	if _, err = k.Unwrap(field); err != nil {
		t.Fatalf("original field no longer opens: %v", err)
	}
}

func TestRewrap_UnknownTargetEpochReturnsOriginalField(t *testing.T) {
	k := newTestKeyring(t)
	ep := mustCreateEpoch(t, k)

	field, err := k.Wrap([]byte("payload"), ep.KeyID)
	if err != nil {
		t.Fatalf("Wrap error: %v", err)
	}

	got, err := k.Rewrap(field, ep.KeyID, "ghost-epoch")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Rewrap error = %v, want ErrKeyNotFound", err)
	}
	if got != field {
		t.Fatalf("Rewrap on error returned %+v, want the original field", got)
	}
}

func TestWrappedDEK_RestoreEpochRoundTrip(t *testing.T) {
	k := newTestKeyring(t)
	ep := mustCreateEpoch(t, k)

	field, err := k.Wrap([]byte("survives restart"), ep.KeyID)
	if err != nil {
		t.Fatalf("Wrap error: %v", err)
	}

	wrapped, err := k.WrappedDEK(ep.KeyID)
	if err != nil {
		t.Fatalf("WrappedDEK error: %v", err)
	}

	// Fresh keyring with the same master secret, as after a process restart.
	restored := newTestKeyring(t)
	if err = restored.RestoreEpoch(ep, wrapped); err != nil {
		t.Fatalf("RestoreEpoch error: %v", err)
	}

	got, err := restored.Unwrap(field)
	if err != nil {
		t.Fatalf("Unwrap after restore error: %v", err)
	}
	if string(got) != "survives restart" {
		t.Fatalf("restored plaintext mismatch: got %q", got)
	}

	active, ok := restored.ActiveEpoch()
	if !ok || active.KeyID != ep.KeyID {
		t.Fatalf("restored active epoch = %v (ok=%v), want %s", active, ok, ep.KeyID)
	}
}

func TestRestoreEpoch_WrongMasterSecretFails(t *testing.T) {
	k := newTestKeyring(t)
	ep := mustCreateEpoch(t, k)

	wrapped, err := k.WrappedDEK(ep.KeyID)
	if err != nil {
		t.Fatalf("WrappedDEK error: %v", err)
	}

	other := NewKeyring("company-1", "wrong secret", bytes.Repeat([]byte{0xAB}, 16))
	if err = other.RestoreEpoch(ep, wrapped); err == nil {
		t.Fatalf("expected RestoreEpoch with wrong master secret to fail")
	}
}

func mustCreateEpoch(t *testing.T, k Keyring) models.KeyEpoch {
	t.Helper()
	ep, err := k.CreateEpoch()
	if err != nil {
		t.Fatalf("CreateEpoch error: %v", err)
	}
	return ep
}
