// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

// Package merge implements the per-entity-type merge strategies of the sync
// core. Each strategy is a pure function over two decrypted entity
// snapshots: deterministic, commutative up to the local/remote label, and
// guaranteed to produce a usable result — conflicts are surfaced in the
// output, never raised as errors.
//
// The registry is a closed set resolved at construction time. Adding an
// entity type is a compile-time-checked addition here, not a runtime
// registration, and an unknown type is a programming error that fails
// loudly.
package merge

import (
	"fmt"
	"time"

	"github.com/tallyvault/tallyvault/models"
)

// Input is one decrypted entity snapshot handed to a strategy. The engine
// guarantees the two inputs of a merge are concurrent revisions of the same
// entity; causally related pairs fast-forward before any strategy runs.
type Input struct {
	ID        string
	Type      models.EntityType
	Deleted   bool
	DeletedAt *time.Time
	Fields    map[string]models.FieldValue
}

// Output is a strategy's merged snapshot. Conflict is non-nil when
// human-meaningful information was lost or chosen by policy; the merged
// fields are still valid and usable either way.
type Output struct {
	Fields    map[string]models.FieldValue
	Deleted   bool
	DeletedAt *time.Time
	Conflict  *models.ConflictDescriptor
}

// Strategy reconciles two concurrent snapshots of one entity type.
// The first argument is the local side; the label is a tie-break hint only
// and must never affect which values win.
type Strategy interface {
	Merge(local, remote Input) Output
}

// Registry maps entity type to merge strategy.
type Registry struct {
	strategies map[models.EntityType]Strategy
}

// NewRegistry builds the closed strategy set. Every entity type the data
// model defines gets exactly one strategy here.
func NewRegistry() *Registry {
	return &Registry{
		strategies: map[models.EntityType]Strategy{
			models.EntityAccount:     scalarStrategy{},
			models.EntityContact:     scalarStrategy{},
			models.EntityProduct:     scalarStrategy{},
			models.EntityCompany:     scalarStrategy{},
			models.EntityUser:        scalarStrategy{},
			models.EntityTransaction: transactionStrategy{},
		},
	}
}

// Strategy returns the strategy for the given entity type. An unknown type
// is a programming error, not a runtime condition: the registry panics
// instead of guessing.
func (r *Registry) Strategy(entityType models.EntityType) Strategy {
	s, ok := r.strategies[entityType]
	if !ok {
		panic(fmt.Sprintf("merge: no strategy registered for entity type %q", entityType))
	}
	return s
}

// Merge dispatches to the matching strategy.
func (r *Registry) Merge(local, remote Input) Output {
	return r.Strategy(local.Type).Merge(local, remote)
}
