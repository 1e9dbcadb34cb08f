// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package builder

import "github.com/jhellerstein/hydro-sub000/internal/hydroir"

// Chain concatenates deterministically: all of left (which must be
// Bounded) then right, both at the same location and ordering (§4.2).
func Chain[T any](left, right Stream[T]) Stream[T] {
	requireBounded(left.bounded, "chain")
	requireSameLocation(left.loc, right.loc, "chain")
	if left.order != right.order {
		abortOrderMismatch("chain")
	}
	id := left.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindChain,
		Meta: hydroir.Metadata{Location: left.loc, Bounded: right.bounded, Order: left.order, ElementType: typeName[T]()},
	})
	in1 := consume1(left, func(newID hydroir.NodeID) { left.b.Graph.Node(id).In1 = newID })
	in2 := consume1(right, func(newID hydroir.NodeID) { left.b.Graph.Node(id).In2 = newID })
	n := left.b.Graph.Node(id)
	n.In1, n.In2 = in1, in2
	return Stream[T]{b: left.b, id: id, loc: left.loc, bounded: right.bounded, order: left.order}
}

// InterleavedFrom merges two same-location streams without attempting
// to preserve either's order (§4.2: "explicitly degrades ordering").
func InterleavedFrom[T any](a, b Stream[T]) Stream[T] {
	requireSameLocation(a.loc, b.loc, "interleaved_from")
	bounded := hydroir.Unbounded
	if a.bounded == hydroir.Bounded && b.bounded == hydroir.Bounded {
		bounded = hydroir.Bounded
	}
	id := a.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindChain,
		Meta: hydroir.Metadata{Location: a.loc, Bounded: bounded, Order: hydroir.NoOrder, ElementType: typeName[T]()},
	})
	in1 := consume1(a, func(newID hydroir.NodeID) { a.b.Graph.Node(id).In1 = newID })
	in2 := consume1(b, func(newID hydroir.NodeID) { a.b.Graph.Node(id).In2 = newID })
	n := a.b.Graph.Node(id)
	n.In1, n.In2 = in1, in2
	return Stream[T]{b: a.b, id: id, loc: a.loc, bounded: bounded, order: hydroir.NoOrder}
}

// CrossProduct requires both inputs Bounded (§4.2).
func CrossProduct[A, B any](left Stream[A], right Stream[B]) Stream[Pair[A, B]] {
	requireBounded(left.bounded, "cross_product")
	requireBounded(right.bounded, "cross_product")
	requireSameLocation(left.loc, right.loc, "cross_product")
	id := left.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindCrossProduct,
		Meta: hydroir.Metadata{Location: left.loc, Bounded: hydroir.Bounded, Order: hydroir.NoOrder, ElementType: typeName[Pair[A, B]]()},
	})
	in1 := consume1(left, func(newID hydroir.NodeID) { left.b.Graph.Node(id).In1 = newID })
	in2 := consume1(right, func(newID hydroir.NodeID) { left.b.Graph.Node(id).In2 = newID })
	n := left.b.Graph.Node(id)
	n.In1, n.In2 = in1, in2
	return Stream[Pair[A, B]]{b: left.b, id: id, loc: left.loc, bounded: hydroir.Bounded, order: hydroir.NoOrder}
}

// CrossSingleton crosses a stream against a singleton value at the
// same location, keeping the stream's boundedness and ordering.
func CrossSingleton[A, B any](left Stream[A], right Singleton[B]) Stream[Pair[A, B]] {
	requireSameLocation(left.loc, right.loc, "cross_singleton")
	id := left.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindCrossSingleton,
		Meta: hydroir.Metadata{Location: left.loc, Bounded: left.bounded, Order: left.order, ElementType: typeName[Pair[A, B]]()},
	})
	in1 := consume1(left, func(newID hydroir.NodeID) { left.b.Graph.Node(id).In1 = newID })
	in2 := left.b.Graph.Consume(right.id, func(newID hydroir.NodeID) { left.b.Graph.Node(id).In2 = newID })
	n := left.b.Graph.Node(id)
	n.In1, n.In2 = in1, in2
	return Stream[Pair[A, B]]{b: left.b, id: id, loc: left.loc, bounded: left.bounded, order: left.order}
}

// Difference removes from left every element also present in right,
// keyed by arrival order within the current tick. right is read to
// completion before the op can emit (the "negated edge" rule of §4.5
// Phase 2), which is why S2 in §8 persists and batches neg before
// diffing it against a fresh batch of pos.
func Difference[T any](left, right Stream[T]) Stream[T] {
	requireSameLocation(left.loc, right.loc, "difference")
	id := left.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindDifference,
		Meta: hydroir.Metadata{Location: left.loc, Bounded: left.bounded, Order: left.order, ElementType: typeName[T]()},
	})
	in1 := consume1(left, func(newID hydroir.NodeID) { left.b.Graph.Node(id).In1 = newID })
	in2 := consume1(right, func(newID hydroir.NodeID) { left.b.Graph.Node(id).In2 = newID })
	n := left.b.Graph.Node(id)
	n.In1, n.In2 = in1, in2
	return Stream[T]{b: left.b, id: id, loc: left.loc, bounded: left.bounded, order: left.order}
}

// Unique deduplicates, keeping the earliest occurrence by arrival
// order; requires Bounded input (§4.2).
func Unique[T any](s Stream[T]) Stream[T] {
	requireBounded(s.bounded, "unique")
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindUnique,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: hydroir.Bounded, Order: s.order, ElementType: typeName[T]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[T]{b: s.b, id: id, loc: s.loc, bounded: hydroir.Bounded, order: s.order}
}

// Sort requires Bounded input and produces TotalOrder output (§4.2).
func Sort[T any](s Stream[T]) Stream[T] {
	requireBounded(s.bounded, "sort")
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindSort,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: hydroir.Bounded, Order: hydroir.TotalOrder, ElementType: typeName[T]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[T]{b: s.b, id: id, loc: s.loc, bounded: hydroir.Bounded, order: hydroir.TotalOrder}
}

