// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package models

// VersionVector maps a device identifier to that device's monotonically
// increasing edit counter. It establishes causal order between entity
// revisions without a global clock: a device only ever increments its own
// counter, and a vector is never mutated in place by a remote write.
//
// An absent device entry is equivalent to a counter of zero, so vectors stay
// sparse no matter how many devices a company accumulates over the years.
//
// All comparison and merge logic lives in internal/vclock; this type stays a
// dumb map so it serialises cleanly into the entity row.
type VersionVector map[string]uint64

// Counter returns the device's counter, treating an unseen device as zero.
func (v VersionVector) Counter(deviceID string) uint64 {
	return v[deviceID]
}

// Clone returns an independent copy of the vector. A nil receiver yields an
// empty, non-nil vector so callers can write to the result unconditionally.
func (v VersionVector) Clone() VersionVector {
	out := make(VersionVector, len(v))
	for device, counter := range v {
		out[device] = counter
	}
	return out
}
