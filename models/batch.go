// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package models

// BatchFailure records one entity that could not be applied during batch
// ingestion. The failure is entity-local: the rest of the batch proceeds.
type BatchFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchResult is the outcome of ingesting a remote entity batch. An entity
// appears in exactly one of the two lists.
type BatchResult struct {
	Applied []string       `json:"applied"`
	Failed  []BatchFailure `json:"failed"`
}

// BatchRequest is the payload a device transport pushes to a hub: a set of
// entity snapshots plus the identity of the pushing device.
type BatchRequest struct {
	DeviceID string   `json:"device_id"`
	Entities []Entity `json:"entities"`
}

// ConflictsResponse carries the conflict history returned to a reading
// client, with an explicit element count.
type ConflictsResponse struct {
	Conflicts []ConflictDescriptor `json:"conflicts"`
	Length    int                  `json:"length"`
}
