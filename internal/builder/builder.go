// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package builder is the user-facing combinator API of spec.md §4.2:
// typed Stream/Singleton/Optional handles over a shared hydroir.Graph,
// each operator method checking the boundedness/ordering/location
// preconditions from §3.2 before appending exactly one HydroNode.
//
// Grounded on the teacher's internal/graph (GraphQL resolver) package
// for the idea of a thin typed facade in front of a shared mutable
// store, and on internal/repository for the "one handle, one backing
// id, methods append rows/nodes and return a new handle" shape.
package builder

import (
	"github.com/jhellerstein/hydro-sub000/internal/herrors"
	"github.com/jhellerstein/hydro-sub000/internal/hydroir"
	"github.com/jhellerstein/hydro-sub000/internal/location"
)

// Builder owns one IR graph and its location registry. It is the
// flow_state described in §3.1, shared by every handle it mints.
type Builder struct {
	Graph *hydroir.Graph
	Locs  *location.Registry
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{
		Graph: hydroir.NewGraph(),
		Locs:  location.New(),
	}
}

// Process allocates a fresh Process location.
func (b *Builder) Process() location.Location { return b.Locs.FreshProcess() }

// Cluster allocates a fresh Cluster location.
func (b *Builder) Cluster() location.Location { return b.Locs.FreshCluster() }

// External allocates a fresh External location.
func (b *Builder) External() location.Location { return b.Locs.FreshExternal() }

// Tick returns a fresh synchronous clock domain owned by loc.
func (b *Builder) Tick(loc location.Location) location.Location { return b.Locs.TickOf(loc) }

// Atomic returns a fresh atomic sub-region of tick.
func (b *Builder) Atomic(tick location.Location) location.Location { return b.Locs.AtomicOf(tick) }

// Build runs fn against b and converts any construction-error panic
// raised inside it (see herrors.Abort) into a returned error, so that
// callers get the "build errors abort the builder, no partial graphs
// leak" behavior promised by §7 without every operator method having
// to return (Stream[T], error) and break fluent chaining.
func Build(fn func(b *Builder)) (g *hydroir.Graph, locs *location.Registry, err error) {
	defer herrors.Recover(&err)
	b := New()
	fn(b)
	if cerr := b.Graph.ValidateCycles(); cerr != nil {
		return nil, nil, cerr
	}
	return b.Graph, b.Locs, nil
}

// Pair is the element type CrossProduct/CrossSingleton produce. The IR
// itself never inspects T's shape — Pair exists only so the Go type
// system can express "a stream of (left, right) tuples" the way the
// spec's cross_product does.
type Pair[A, B any] struct {
	Left  A
	Right B
}

func requireSameLocation(a, b location.Location, op string) {
	if !location.Equal(a, b) {
		herrors.Abort(herrors.ReasonLocationMismatch, 0, "%s requires both inputs at the same location, got %s and %s", op, a, b)
	}
}

func abortLocationMismatch(op string, a, b location.Location) {
	herrors.Abort(herrors.ReasonLocationMismatch, 0, "%s requires %s to be the root of %s", op, b, a)
}

func requireBounded(bnd hydroir.Boundedness, op string) {
	if bnd != hydroir.Bounded {
		herrors.Abort(herrors.ReasonUnboundedInput, 0, "%s requires a Bounded input", op)
	}
}

func requireTotalOrder(order hydroir.Ordering, op string) {
	if order != hydroir.TotalOrder {
		herrors.Abort(herrors.ReasonOrderingRequired, 0, "%s requires TotalOrder; use the _commutative variant for NoOrder streams", op)
	}
}

func abortOrderMismatch(op string) {
	herrors.Abort(herrors.ReasonOrderingRequired, 0, "%s requires both inputs to share an ordering", op)
}
