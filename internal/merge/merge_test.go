// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package merge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyvault/tallyvault/models"
)

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// fv is a shorthand constructor for FieldValue used only in tests.
func fv(raw string, ts int64, device string) models.FieldValue {
	return models.FieldValue{Raw: json.RawMessage(raw), WriteTS: ts, DeviceID: device}
}

func contactInput(id string, fields map[string]models.FieldValue) Input {
	return Input{ID: id, Type: models.EntityContact, Fields: fields}
}

func txLines(t *testing.T, items models.LineItemMap, ts int64, device string) models.FieldValue {
	t.Helper()
	out, err := models.EncodeLineItems(items, fv("", ts, device))
	require.NoError(t, err)
	return out
}

func lineItem(id, amount, side string, ts int64, device string) models.LineItem {
	return models.LineItem{
		ID: id,
		Fields: map[string]models.FieldValue{
			"amount":  fv(`"`+amount+`"`, ts, device),
			"side":    fv(`"`+side+`"`, ts, device),
			"account": fv(`"acc-1"`, ts, device),
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Scalar last-writer-wins
// ─────────────────────────────────────────────────────────────────────────────

func TestScalarMerge_DisjointFieldEditsProduceNoConflict(t *testing.T) {
	registry := NewRegistry()

	local := contactInput("c-1", map[string]models.FieldValue{
		"name":  fv(`"Acme GmbH"`, 100, "laptop"),
		"email": fv(`"old@acme.test"`, 50, "laptop"),
	})
	remote := contactInput("c-1", map[string]models.FieldValue{
		"name":  fv(`"Acme GmbH"`, 100, "laptop"),
		"email": fv(`"new@acme.test"`, 120, "phone"),
	})

	out := registry.Merge(local, remote)

	require.Nil(t, out.Conflict)
	assert.JSONEq(t, `"new@acme.test"`, string(out.Fields["email"].Raw))
	assert.JSONEq(t, `"Acme GmbH"`, string(out.Fields["name"].Raw))
}

func TestScalarMerge_StaleAncestorCopyIsNotContention(t *testing.T) {
	registry := NewRegistry()

	// Both sides still carry the seed write of "name", so everything at or
	// before it is shared history. The overwritten seed copy of "email" is a
	// stale ancestor value, not contention; the doubly edited "phone" is.
	local := contactInput("c-1", map[string]models.FieldValue{
		"name":  fv(`"Acme GmbH"`, 100, "seed"),
		"email": fv(`"old@acme.test"`, 40, "seed"),
		"phone": fv(`"111"`, 150, "laptop"),
	})
	remote := contactInput("c-1", map[string]models.FieldValue{
		"name":  fv(`"Acme GmbH"`, 100, "seed"),
		"email": fv(`"new@acme.test"`, 130, "phone"),
		"phone": fv(`"222"`, 160, "phone"),
	})

	out := registry.Merge(local, remote)

	require.NotNil(t, out.Conflict)
	require.Len(t, out.Conflict.Fields, 1)
	assert.Equal(t, "phone", out.Conflict.Fields[0].Name)
	assert.JSONEq(t, `"new@acme.test"`, string(out.Fields["email"].Raw))
	assert.JSONEq(t, `"222"`, string(out.Fields["phone"].Raw))
}

func TestScalarMerge_ConcurrentSameFieldEditKeepsLaterWriteAndFlagsConflict(t *testing.T) {
	registry := NewRegistry()

	local := contactInput("c-1", map[string]models.FieldValue{
		"name": fv(`"Acme Ltd"`, 200, "laptop"),
	})
	remote := contactInput("c-1", map[string]models.FieldValue{
		"name": fv(`"Acme Inc"`, 300, "phone"),
	})

	out := registry.Merge(local, remote)

	require.NotNil(t, out.Conflict)
	assert.Equal(t, models.ConflictFields, out.Conflict.Kind)
	require.Len(t, out.Conflict.Fields, 1)
	assert.Equal(t, "name", out.Conflict.Fields[0].Name)
	assert.JSONEq(t, `"Acme Inc"`, string(out.Conflict.Fields[0].Kept))
	assert.JSONEq(t, `"Acme Ltd"`, string(out.Conflict.Fields[0].Discarded))
	assert.JSONEq(t, `"Acme Inc"`, string(out.Fields["name"].Raw))
}

func TestScalarMerge_ExactTimestampTieBreaksByDeviceID(t *testing.T) {
	registry := NewRegistry()

	local := contactInput("c-1", map[string]models.FieldValue{
		"name": fv(`"from alpha"`, 500, "alpha"),
	})
	remote := contactInput("c-1", map[string]models.FieldValue{
		"name": fv(`"from beta"`, 500, "beta"),
	})

	out := registry.Merge(local, remote)
	flipped := registry.Merge(remote, local)

	// The lexically greater device id wins, on both replicas.
	assert.JSONEq(t, `"from beta"`, string(out.Fields["name"].Raw))
	assert.JSONEq(t, `"from beta"`, string(flipped.Fields["name"].Raw))
}

func TestScalarMerge_IsCommutative(t *testing.T) {
	registry := NewRegistry()

	local := contactInput("c-1", map[string]models.FieldValue{
		"name":  fv(`"left"`, 10, "laptop"),
		"phone": fv(`"111"`, 20, "laptop"),
	})
	remote := contactInput("c-1", map[string]models.FieldValue{
		"name":  fv(`"right"`, 30, "phone"),
		"email": fv(`"x@y.test"`, 5, "phone"),
	})

	ab := registry.Merge(local, remote)
	ba := registry.Merge(remote, local)

	assert.Equal(t, ab.Fields, ba.Fields)
	assert.Equal(t, ab.Deleted, ba.Deleted)
}

// ─────────────────────────────────────────────────────────────────────────────
// Tombstone vs concurrent edit
// ─────────────────────────────────────────────────────────────────────────────

func TestTombstone_LaterDeletionDominatesEarlierEdit(t *testing.T) {
	registry := NewRegistry()
	deletedAt := time.UnixMicro(2000).UTC()

	local := Input{
		ID: "c-1", Type: models.EntityContact,
		Deleted: true, DeletedAt: &deletedAt,
		Fields: map[string]models.FieldValue{"name": fv(`"gone"`, 1000, "laptop")},
	}
	remote := contactInput("c-1", map[string]models.FieldValue{
		"name": fv(`"edited"`, 1500, "phone"),
	})

	out := registry.Merge(local, remote)

	assert.True(t, out.Deleted)
	assert.Nil(t, out.Conflict)
	require.NotNil(t, out.DeletedAt)
	assert.Equal(t, deletedAt, *out.DeletedAt)
}

func TestTombstone_LaterEditResurrectsEntityWithUndeleteConflict(t *testing.T) {
	registry := NewRegistry()
	// Deleted on device A at t=10, edited on device B at t=12.
	deletedAt := time.UnixMicro(10).UTC()

	local := Input{
		ID: "c-1", Type: models.EntityContact,
		Deleted: true, DeletedAt: &deletedAt,
		Fields: map[string]models.FieldValue{"name": fv(`"old"`, 5, "device-a")},
	}
	remote := contactInput("c-1", map[string]models.FieldValue{
		"name": fv(`"revived"`, 12, "device-b"),
	})

	out := registry.Merge(local, remote)

	assert.False(t, out.Deleted)
	require.NotNil(t, out.Conflict)
	assert.Equal(t, models.ConflictUndelete, out.Conflict.Kind)
	assert.JSONEq(t, `"revived"`, string(out.Fields["name"].Raw))

	// Same outcome when the sides swap.
	flipped := registry.Merge(remote, local)
	assert.False(t, flipped.Deleted)
	require.NotNil(t, flipped.Conflict)
	assert.Equal(t, models.ConflictUndelete, flipped.Conflict.Kind)
}

func TestTombstone_BothSidesDeletedKeepsLaterTombstone(t *testing.T) {
	registry := NewRegistry()
	early := time.UnixMicro(100).UTC()
	late := time.UnixMicro(900).UTC()

	local := Input{ID: "c-1", Type: models.EntityContact, Deleted: true, DeletedAt: &early}
	remote := Input{ID: "c-1", Type: models.EntityContact, Deleted: true, DeletedAt: &late}

	out := registry.Merge(local, remote)

	assert.True(t, out.Deleted)
	assert.Nil(t, out.Conflict)
	require.NotNil(t, out.DeletedAt)
	assert.Equal(t, late, *out.DeletedAt)
}

// ─────────────────────────────────────────────────────────────────────────────
// Transaction strategy
// ─────────────────────────────────────────────────────────────────────────────

func TestTransactionMerge_LineItemUnionByID(t *testing.T) {
	registry := NewRegistry()

	local := Input{ID: "t-1", Type: models.EntityTransaction, Fields: map[string]models.FieldValue{
		"lines": txLines(t, models.LineItemMap{
			"l-1": lineItem("l-1", "100", "debit", 10, "laptop"),
			"l-2": lineItem("l-2", "100", "credit", 10, "laptop"),
		}, 10, "laptop"),
	}}
	remote := Input{ID: "t-1", Type: models.EntityTransaction, Fields: map[string]models.FieldValue{
		"lines": txLines(t, models.LineItemMap{
			"l-1": lineItem("l-1", "100", "debit", 10, "laptop"),
			"l-2": lineItem("l-2", "40", "credit", 20, "phone"),
			"l-3": lineItem("l-3", "60", "credit", 20, "phone"),
		}, 20, "phone"),
	}}
	// Remote split the credit line 100 into 40 + 60 with a later edit.

	out := registry.Merge(local, remote)

	lines, err := models.DecodeLineItems(out.Fields["lines"])
	require.NoError(t, err)
	require.Len(t, lines, 3)

	// l-2 recursed the scalar rule: remote's later 40 won over local's 100,
	// which surfaces as a field conflict; the union itself still balances.
	require.NotNil(t, out.Conflict)
	assert.Equal(t, models.ConflictFields, out.Conflict.Kind)
	require.Len(t, out.Conflict.Fields, 1)
	assert.Equal(t, "lines.l-2.amount", out.Conflict.Fields[0].Name)
}

func TestTransactionMerge_ConcurrentDebitCreditEditsFlagBalanceInvariant(t *testing.T) {
	registry := NewRegistry()

	// Both sides started from a balanced 100/100 transaction. One device
	// changed the debit line to 100 → stays 100; the other changed the
	// credit line to 80. Merging must flag the imbalance, not post it
	// silently.
	local := Input{ID: "t-1", Type: models.EntityTransaction, Fields: map[string]models.FieldValue{
		"lines": txLines(t, models.LineItemMap{
			"debit-line":  lineItem("debit-line", "100", "debit", 50, "device-a"),
			"credit-line": lineItem("credit-line", "100", "credit", 10, "seed"),
		}, 50, "device-a"),
	}}
	remote := Input{ID: "t-1", Type: models.EntityTransaction, Fields: map[string]models.FieldValue{
		"lines": txLines(t, models.LineItemMap{
			"debit-line":  lineItem("debit-line", "100", "debit", 10, "seed"),
			"credit-line": lineItem("credit-line", "80", "credit", 60, "device-b"),
		}, 60, "device-b"),
	}}

	out := registry.Merge(local, remote)

	require.NotNil(t, out.Conflict)
	assert.Equal(t, models.ConflictInvariant, out.Conflict.Kind)
	assert.Equal(t, balanceInvariant, out.Conflict.Invariant)

	// The provisional last-writer-wins result is kept: 100 debit, 80 credit.
	lines, err := models.DecodeLineItems(out.Fields["lines"])
	require.NoError(t, err)
	assert.JSONEq(t, `"100"`, string(lines["debit-line"].Fields["amount"].Raw))
	assert.JSONEq(t, `"80"`, string(lines["credit-line"].Fields["amount"].Raw))
}

func TestTransactionMerge_UnverifiableBalanceIsAConflictNotAGuess(t *testing.T) {
	registry := NewRegistry()

	malformed := models.LineItemMap{
		"l-1": {ID: "l-1", Fields: map[string]models.FieldValue{
			"amount": fv(`"not-a-number"`, 10, "laptop"),
			"side":   fv(`"debit"`, 10, "laptop"),
		}},
	}

	local := Input{ID: "t-1", Type: models.EntityTransaction, Fields: map[string]models.FieldValue{
		"lines": txLines(t, malformed, 10, "laptop"),
	}}
	remote := Input{ID: "t-1", Type: models.EntityTransaction, Fields: map[string]models.FieldValue{
		"lines": txLines(t, malformed, 10, "laptop"),
	}}

	out := registry.Merge(local, remote)

	require.NotNil(t, out.Conflict)
	assert.Equal(t, models.ConflictInvariant, out.Conflict.Kind)
	assert.Contains(t, out.Conflict.Invariant, "could not be verified")
}

func TestTransactionMerge_ScalarFieldsStillFollowLWW(t *testing.T) {
	registry := NewRegistry()

	local := Input{ID: "t-1", Type: models.EntityTransaction, Fields: map[string]models.FieldValue{
		"memo": fv(`"march rent"`, 10, "laptop"),
	}}
	remote := Input{ID: "t-1", Type: models.EntityTransaction, Fields: map[string]models.FieldValue{
		"memo": fv(`"march office rent"`, 20, "phone"),
	}}

	out := registry.Merge(local, remote)

	assert.JSONEq(t, `"march office rent"`, string(out.Fields["memo"].Raw))
}

// ─────────────────────────────────────────────────────────────────────────────
// Registry
// ─────────────────────────────────────────────────────────────────────────────

func TestRegistry_UnknownEntityTypePanics(t *testing.T) {
	registry := NewRegistry()

	assert.Panics(t, func() {
		registry.Strategy(models.EntityType("spreadsheet"))
	})
}

func TestRegistry_EveryDeclaredTypeHasAStrategy(t *testing.T) {
	registry := NewRegistry()

	for _, entityType := range []models.EntityType{
		models.EntityAccount,
		models.EntityTransaction,
		models.EntityContact,
		models.EntityProduct,
		models.EntityCompany,
		models.EntityUser,
	} {
		assert.NotPanics(t, func() { registry.Strategy(entityType) }, string(entityType))
	}
}
