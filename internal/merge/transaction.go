// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package merge

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyvault/tallyvault/models"
)

// Well-known transaction field names. The "lines" field holds the structural
// line-item map; everything else on a transaction is a plain scalar.
const (
	linesField  = "lines"
	amountField = "amount"
	sideField   = "side"

	sideDebit  = "debit"
	sideCredit = "credit"
)

// balanceInvariant names the domain rule re-validated after every
// transaction merge. It appears verbatim in conflict descriptors.
const balanceInvariant = "transaction debits must balance credits"

// transactionStrategy merges transactions: scalar fields follow the
// last-writer-wins rule, line items union by stable item id (recursing the
// scalar rule onto items edited on both sides), and the debit/credit balance
// invariant is re-validated afterwards. A violated invariant is never
// silently fixed: the last-writer-wins result is kept as the provisional
// value and the conflict defers resolution to business policy outside the
// core.
type transactionStrategy struct{}

func (transactionStrategy) Merge(local, remote Input) Output {
	out, done := resolveTombstones(local, remote)
	if done {
		return out
	}

	localScalars, localLines := splitLines(local.Fields)
	remoteScalars, remoteLines := splitLines(remote.Fields)

	fields, conflicts := mergeFieldMaps(localScalars, remoteScalars, "")

	merged, lineConflicts, lineErr := mergeLineItems(localLines, remoteLines)
	if merged != nil {
		fields[linesField] = *merged
	}
	conflicts = append(conflicts, lineConflicts...)

	out.Fields = fields
	out.Conflict = mergeConflict(local, conflicts, nil)

	// Re-validate the balance on the merged result. An unverifiable balance
	// (malformed amount, missing side) is a conflict too: guessing is
	// forbidden by design.
	if lineErr != nil {
		out.Conflict = invariantConflict(local, conflicts, "transaction balance could not be verified: "+lineErr.Error())
		return out
	}
	if balanced, err := linesBalance(fields[linesField]); err != nil {
		out.Conflict = invariantConflict(local, conflicts, "transaction balance could not be verified: "+err.Error())
	} else if !balanced {
		out.Conflict = invariantConflict(local, conflicts, balanceInvariant)
	}

	return out
}

func splitLines(fields map[string]models.FieldValue) (map[string]models.FieldValue, *models.FieldValue) {
	lines, ok := fields[linesField]
	if !ok {
		return fields, nil
	}

	scalars := make(map[string]models.FieldValue, len(fields)-1)
	for name, v := range fields {
		if name != linesField {
			scalars[name] = v
		}
	}
	return scalars, &lines
}

// mergeLineItems unions two line-item maps by item id. An item present on
// one side only is taken as-is; an item edited on both sides recurses the
// scalar last-writer-wins rule onto the item's own field map.
func mergeLineItems(a, b *models.FieldValue) (*models.FieldValue, []models.FieldConflict, error) {
	if a == nil {
		return b, nil, nil
	}
	if b == nil {
		return a, nil, nil
	}

	aLines, err := models.DecodeLineItems(*a)
	if err != nil {
		return nil, nil, err
	}
	bLines, err := models.DecodeLineItems(*b)
	if err != nil {
		return nil, nil, err
	}

	merged := make(models.LineItemMap, len(aLines)+len(bLines))
	var conflicts []models.FieldConflict

	for id, item := range aLines {
		other, inBoth := bLines[id]
		if !inBoth {
			merged[id] = item
			continue
		}

		fields, itemConflicts := mergeFieldMaps(item.Fields, other.Fields, linesField+"."+id+".")
		merged[id] = models.LineItem{ID: id, Fields: fields}
		conflicts = append(conflicts, itemConflicts...)
	}
	for id, item := range bLines {
		if _, inBoth := aLines[id]; !inBoth {
			merged[id] = item
		}
	}

	meta, _ := pickWriter(*a, *b)
	out, err := models.EncodeLineItems(merged, meta)
	if err != nil {
		return nil, nil, err
	}
	return &out, conflicts, nil
}

// linesBalance decodes the merged line items and checks that debit amounts
// equal credit amounts, using exact decimal arithmetic.
func linesBalance(lines models.FieldValue) (bool, error) {
	items, err := models.DecodeLineItems(lines)
	if err != nil {
		return false, err
	}

	debits := decimal.Zero
	credits := decimal.Zero

	for _, item := range items {
		amount, err := decodeDecimal(item.Fields[amountField])
		if err != nil {
			return false, err
		}

		var side string
		if raw := item.Fields[sideField].Raw; len(raw) > 0 {
			if err := json.Unmarshal(raw, &side); err != nil {
				return false, err
			}
		}

		switch side {
		case sideDebit:
			debits = debits.Add(amount)
		case sideCredit:
			credits = credits.Add(amount)
		default:
			return false, errUnknownSide(side)
		}
	}

	return debits.Equal(credits), nil
}

func decodeDecimal(v models.FieldValue) (decimal.Decimal, error) {
	var s string
	if err := json.Unmarshal(v.Raw, &s); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(s)
}

type errUnknownSide string

func (e errUnknownSide) Error() string {
	return "unknown line side " + string(e)
}

func invariantConflict(local Input, fields []models.FieldConflict, invariant string) *models.ConflictDescriptor {
	return &models.ConflictDescriptor{
		EntityID:   local.ID,
		EntityType: local.Type,
		Kind:       models.ConflictInvariant,
		Fields:     fields,
		Invariant:  invariant,
		DetectedAt: time.Now().UTC(),
	}
}
