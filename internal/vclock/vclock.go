// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

// Package vclock implements version-vector causality tracking for entity
// revisions. All functions are pure: they never mutate their inputs and
// never block, so they are safe to call from any goroutine without locking.
package vclock

import "github.com/tallyvault/tallyvault/models"

// Relationship is the causal relation between two version vectors.
type Relationship int

const (
	// Equal: both vectors carry identical counters for every device.
	Equal Relationship = iota

	// Dominates: the first vector causally contains the second (>= on every
	// device, > on at least one). A merge can fast-forward to the first.
	Dominates

	// Dominated: the second vector causally contains the first.
	Dominated

	// Concurrent: neither vector contains the other; the revisions were
	// produced independently and need a field-level merge.
	Concurrent
)

// String returns a readable label, used in logs and audit summaries.
func (r Relationship) String() string {
	switch r {
	case Equal:
		return "equal"
	case Dominates:
		return "dominates"
	case Dominated:
		return "dominated"
	case Concurrent:
		return "concurrent"
	default:
		return "unknown"
	}
}

// Compare classifies the causal relation between a and b in
// O(distinct devices). A device absent from a vector counts as zero.
func Compare(a, b models.VersionVector) Relationship {
	aAhead := false
	bAhead := false

	for device, counter := range a {
		other := b.Counter(device)
		if counter > other {
			aAhead = true
		} else if counter < other {
			bAhead = true
		}
	}
	for device, counter := range b {
		if _, seen := a[device]; seen {
			continue
		}
		if counter > 0 {
			bAhead = true
		}
	}

	switch {
	case aAhead && bAhead:
		return Concurrent
	case aAhead:
		return Dominates
	case bAhead:
		return Dominated
	default:
		return Equal
	}
}

// Merge returns the elementwise maximum of a and b. Every merged entity gets
// its vector from Merge regardless of the merge outcome, so the result
// always dominates both ancestors — this is what guarantees convergence.
func Merge(a, b models.VersionVector) models.VersionVector {
	out := make(models.VersionVector, len(a)+len(b))
	for device, counter := range a {
		out[device] = counter
	}
	for device, counter := range b {
		if counter > out[device] {
			out[device] = counter
		}
	}
	return out
}

// Increment returns a copy of v with the device's counter advanced by one.
// The input is never mutated: entities are immutable snapshots, and mutation
// happens by producing a new revision.
func Increment(v models.VersionVector, deviceID string) models.VersionVector {
	out := v.Clone()
	out[deviceID]++
	return out
}
