// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package builder

import (
	"github.com/jhellerstein/hydro-sub000/internal/hydroir"
	"github.com/jhellerstein/hydro-sub000/internal/location"
)

// Batch pulls a prefix of an unbounded stream into tick's current
// batch; s's location must be the root of tick (§4.2).
func Batch[T any](s Stream[T], tick location.Location) Stream[T] {
	if tick.Kind != location.KindTick {
		panic("builder: Batch requires a Tick location")
	}
	if tick.Parent != s.loc.ID {
		abortLocationMismatch("batch", tick, s.loc)
	}
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindBatch,
		Meta: hydroir.Metadata{Location: tick, Bounded: hydroir.Bounded, Order: s.order, ElementType: typeName[T]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[T]{b: s.b, id: id, loc: tick, bounded: hydroir.Bounded, order: s.order}
}

// AllTicks moves a tick-bounded handle back to the parent location,
// turning it into an unbounded stream of per-tick contributions
// (§3.2, §8 property 6).
func AllTicks[T any](s Stream[T]) Stream[T] {
	if !s.loc.IsTick() {
		panic("builder: AllTicks requires a handle inside a Tick")
	}
	parent := s.b.Locs.RootOf(s.loc)
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindAllTicks,
		Meta: hydroir.Metadata{Location: parent, Bounded: hydroir.Unbounded, Order: s.order, ElementType: typeName[T]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[T]{b: s.b, id: id, loc: parent, bounded: hydroir.Unbounded, order: s.order}
}

// DeferTick shifts a tick-bounded value to be next tick's input,
// required when closing a recursive cycle (§4.3, §9).
func DeferTick[T any](s Stream[T]) Stream[T] {
	if !s.loc.IsTick() {
		panic("builder: DeferTick requires a handle inside a Tick")
	}
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindDeferTick,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: hydroir.Bounded, Order: s.order, ElementType: typeName[T]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[T]{b: s.b, id: id, loc: s.loc, bounded: hydroir.Bounded, order: s.order}
}

// Persist means "each tick sees the union of all prior ticks' values"
// (§4.3); it is only meaningful inside a tick.
func Persist[T any](s Stream[T]) Stream[T] {
	if !s.loc.IsTick() {
		panic("builder: Persist requires a handle inside a Tick")
	}
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindPersist,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: s.bounded, Order: s.order, ElementType: typeName[T]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[T]{b: s.b, id: id, loc: s.loc, bounded: s.bounded, order: s.order}
}

// Delta is Persist's inverse: a stream of additions compared to the
// last tick. Delta(Persist(x)) is observationally identity (§8
// property 3); the persist_pullup rewrite pass collapses that pair.
func Delta[T any](s Stream[T]) Stream[T] {
	if s.b.Graph.Node(s.id).Kind == hydroir.KindPersist {
		// Delta(Persist(x)) == x: fold the identity immediately rather
		// than waiting for persist_pullup, since this is a pure
		// constructor-time simplification with no observable
		// difference either way.
		inner := s.b.Graph.Node(s.id).In1
		innerNode := s.b.Graph.Node(inner)
		return Stream[T]{b: s.b, id: inner, loc: innerNode.Meta.Location, bounded: innerNode.Meta.Bounded, order: innerNode.Meta.Order}
	}
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindDelta,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: s.bounded, Order: s.order, ElementType: typeName[T]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[T]{b: s.b, id: id, loc: s.loc, bounded: s.bounded, order: s.order}
}

// RepeatN wraps a tick-local region to iterate n times before
// releasing its output (§4.5 Phase 2's repeat_n region).
func RepeatN[T any](s Stream[T], n int) Stream[T] {
	if !s.loc.IsTick() {
		panic("builder: RepeatN requires a handle inside a Tick")
	}
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindRepeatN,
		N:    n,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: hydroir.Bounded, Order: s.order, ElementType: typeName[T]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[T]{b: s.b, id: id, loc: s.loc, bounded: hydroir.Bounded, order: s.order}
}
