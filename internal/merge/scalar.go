// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package merge

import (
	"bytes"
	"sort"
	"time"

	"github.com/tallyvault/tallyvault/models"
)

// scalarStrategy merges entities whose fields are all independent scalars
// (accounts, contacts, products, companies, users). Per field: last writer
// wins by the micro-timestamp embedded at write time; exact ties break by
// device id lexical order — arbitrary but stable on every replica.
type scalarStrategy struct{}

func (scalarStrategy) Merge(local, remote Input) Output {
	out, done := resolveTombstones(local, remote)
	if done {
		return out
	}

	fields, conflicts := mergeFieldMaps(local.Fields, remote.Fields, "")
	out.Fields = fields
	out.Conflict = mergeConflict(local, conflicts, out.Conflict)

	return out
}

// resolveTombstones applies the deletion rules shared by every strategy.
// The boolean result reports whether the merge is already complete (a
// surviving tombstone needs no field-level reconciliation).
//
// Rules:
//   - both sides deleted: tombstone survives with the later deletion time;
//   - one side deleted: the deletion dominates a concurrent edit only if
//     its timestamp is later than the edit's latest field write; otherwise
//     the edit wins, the tombstone is cleared, and an "undelete" conflict
//     makes the resurrection explicit in the audit trail.
func resolveTombstones(local, remote Input) (Output, bool) {
	switch {
	case local.Deleted && remote.Deleted:
		at := laterTime(local.DeletedAt, remote.DeletedAt)
		return Output{Deleted: true, DeletedAt: at, Fields: unionFields(local.Fields, remote.Fields)}, true

	case local.Deleted:
		return resolveTombstoneAgainstEdit(local, remote)

	case remote.Deleted:
		return resolveTombstoneAgainstEdit(remote, local)

	default:
		return Output{}, false
	}
}

func resolveTombstoneAgainstEdit(dead, live Input) (Output, bool) {
	deletedTS := int64(0)
	if dead.DeletedAt != nil {
		deletedTS = dead.DeletedAt.UnixMicro()
	}

	// On an exact timestamp tie the deletion survives: a stable rule both
	// replicas reach regardless of which side was local.
	if deletedTS >= latestWriteTS(live) {
		return Output{
			Deleted:   true,
			DeletedAt: dead.DeletedAt,
			Fields:    unionFields(dead.Fields, live.Fields),
		}, true
	}

	fields, conflicts := mergeFieldMaps(dead.Fields, live.Fields, "")
	descriptor := &models.ConflictDescriptor{
		EntityID:   live.ID,
		EntityType: live.Type,
		Kind:       models.ConflictUndelete,
		Fields:     conflicts,
		DetectedAt: time.Now().UTC(),
	}
	return Output{Fields: fields, Conflict: descriptor}, true
}

// mergeFieldMaps merges two scalar field maps with the last-writer-wins
// rule and returns the winning map plus one [models.FieldConflict] per field
// where a concurrently written, differing value was discarded. The prefix
// qualifies conflict names when recursing into line items.
//
// Not every discarded value is contention. A side that never touched a
// field still carries the common ancestor's copy of it, and overwriting
// that stale copy loses nothing. The newest write both sides carry
// identically bounds the shared history, so only losing writes newer than
// that bound count as concurrent edits.
func mergeFieldMaps(a, b map[string]models.FieldValue, prefix string) (map[string]models.FieldValue, []models.FieldConflict) {
	out := make(map[string]models.FieldValue, len(a)+len(b))
	var conflicts []models.FieldConflict

	shared := sharedWriteTS(a, b)

	for name, av := range a {
		bv, inBoth := b[name]
		if !inBoth {
			out[name] = av
			continue
		}

		winner, loser := pickWriter(av, bv)
		out[name] = winner

		// Identical raw values lose nothing, whichever side wrote last; a
		// losing write from the shared history is a stale copy, not an edit.
		if !bytes.Equal(winner.Raw, loser.Raw) && loser.WriteTS > shared {
			conflicts = append(conflicts, models.FieldConflict{
				Name:            prefix + name,
				Kept:            winner.Raw,
				KeptDevice:      winner.DeviceID,
				Discarded:       loser.Raw,
				DiscardedDevice: loser.DeviceID,
			})
		}
	}

	for name, bv := range b {
		if _, inBoth := a[name]; !inBoth {
			out[name] = bv
		}
	}

	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Name < conflicts[j].Name })
	return out, conflicts
}

// sharedWriteTS returns the newest write timestamp both sides carry with an
// identical value, timestamp and device — the latest point of their shared
// history. Writes at or before it predate the divergence of the snapshots.
func sharedWriteTS(a, b map[string]models.FieldValue) int64 {
	var latest int64
	for name, av := range a {
		bv, inBoth := b[name]
		if !inBoth {
			continue
		}
		if av.WriteTS == bv.WriteTS && av.DeviceID == bv.DeviceID &&
			bytes.Equal(av.Raw, bv.Raw) && av.WriteTS > latest {
			latest = av.WriteTS
		}
	}
	return latest
}

// pickWriter returns (winner, loser) of two concurrent writes to one field:
// the later write timestamp wins, exact ties break by lexically greater
// device id.
func pickWriter(a, b models.FieldValue) (models.FieldValue, models.FieldValue) {
	switch {
	case a.WriteTS > b.WriteTS:
		return a, b
	case b.WriteTS > a.WriteTS:
		return b, a
	case a.DeviceID > b.DeviceID:
		return a, b
	default:
		return b, a
	}
}

// unionFields keeps every field from both sides, preferring the later write
// where both carry the same name. Used for tombstoned results, where the
// fields are retained only so a later resurrection has data to come back to.
func unionFields(a, b map[string]models.FieldValue) map[string]models.FieldValue {
	out, _ := mergeFieldMaps(a, b, "")
	return out
}

// latestWriteTS returns the newest field write timestamp of a snapshot.
func latestWriteTS(in Input) int64 {
	var latest int64
	for _, v := range in.Fields {
		if v.WriteTS > latest {
			latest = v.WriteTS
		}
	}
	return latest
}

func laterTime(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || a.After(*b) {
		return a
	}
	return b
}

// mergeConflict attaches field conflicts to the output descriptor, creating
// one when needed and leaving an existing descriptor (e.g. undelete) alone.
func mergeConflict(local Input, conflicts []models.FieldConflict, existing *models.ConflictDescriptor) *models.ConflictDescriptor {
	if existing != nil {
		return existing
	}
	if len(conflicts) == 0 {
		return nil
	}
	return &models.ConflictDescriptor{
		EntityID:   local.ID,
		EntityType: local.Type,
		Kind:       models.ConflictFields,
		Fields:     conflicts,
		DetectedAt: time.Now().UTC(),
	}
}
