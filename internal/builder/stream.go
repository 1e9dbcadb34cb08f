// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package builder

import (
	"github.com/jhellerstein/hydro-sub000/internal/herrors"
	"github.com/jhellerstein/hydro-sub000/internal/hydroir"
	"github.com/jhellerstein/hydro-sub000/internal/location"
)

// Stream is the builder-side handle for spec.md §3.2's
// Stream<T,L,B,O>. Go cannot express L/B/O as const type parameters
// the way Rust's type-level marker types do, so they are carried as
// runtime fields; every operator function below enforces the
// preconditions the real type system would have enforced statically,
// aborting the builder (via herrors.Abort) the moment one is violated.
type Stream[T any] struct {
	b       *Builder
	id      hydroir.NodeID
	loc     location.Location
	bounded hydroir.Boundedness
	order   hydroir.Ordering
}

// ID exposes the underlying node id, used by rewrite passes and the
// lowering engine which operate below the typed facade.
func (s Stream[T]) ID() hydroir.NodeID { return s.id }

// Location returns s's location.
func (s Stream[T]) Location() location.Location { return s.loc }

// Bounded reports s's boundedness.
func (s Stream[T]) Bounded() hydroir.Boundedness { return s.bounded }

// Order reports s's ordering.
func (s Stream[T]) Order() hydroir.Ordering { return s.order }

func typeName[T any]() string {
	var zero T
	return elementTypeName(zero)
}

// elementTypeName renders T as the opaque stringified element type
// §3.3 asks metadata to carry; reflection is avoided on the hot path
// by only calling this at node-construction time, never per element.
func elementTypeName(v interface{}) string {
	return goTypeString(v)
}

// SourceStream constructs a Stream reading from an external channel
// token (DFIR's source_stream).
func SourceStream[T any](b *Builder, loc location.Location, channel hydroir.Token) Stream[T] {
	id := b.Graph.Add(hydroir.Node{
		Kind:       hydroir.KindSource,
		SourceKind: hydroir.SourceStream,
		Func:       &channel,
		Meta: hydroir.Metadata{
			Location:    loc,
			Bounded:     hydroir.Unbounded,
			Order:       hydroir.TotalOrder,
			ElementType: typeName[T](),
		},
	})
	return Stream[T]{b: b, id: id, loc: loc, bounded: hydroir.Unbounded, order: hydroir.TotalOrder}
}

// SourceIter constructs a Bounded Stream from an in-memory iterator
// token (DFIR's source_iter).
func SourceIter[T any](b *Builder, loc location.Location, it hydroir.Token) Stream[T] {
	id := b.Graph.Add(hydroir.Node{
		Kind:       hydroir.KindSource,
		SourceKind: hydroir.SourceIter,
		Func:       &it,
		Meta: hydroir.Metadata{
			Location:    loc,
			Bounded:     hydroir.Bounded,
			Order:       hydroir.TotalOrder,
			ElementType: typeName[T](),
		},
	})
	return Stream[T]{b: b, id: id, loc: loc, bounded: hydroir.Bounded, order: hydroir.TotalOrder}
}

// SourceInterval constructs an Unbounded Stream ticking on a timer
// token (DFIR's source_interval).
func SourceInterval(b *Builder, loc location.Location, interval hydroir.Token) Stream[struct{}] {
	id := b.Graph.Add(hydroir.Node{
		Kind:       hydroir.KindSource,
		SourceKind: hydroir.SourceInterval,
		Func:       &interval,
		Meta: hydroir.Metadata{
			Location:    loc,
			Bounded:     hydroir.Unbounded,
			Order:       hydroir.TotalOrder,
			ElementType: "struct{}",
		},
	})
	return Stream[struct{}]{b: b, id: id, loc: loc, bounded: hydroir.Unbounded, order: hydroir.TotalOrder}
}

// ForwardRef allocates a cycle source/sink pair for an intra-tick
// feedback edge (§4.2, §9 "Cycles"). The returned Stream acts as a
// placeholder until sink.Complete is called with the real producer;
// an uncompleted sink fails ValidateCycles.
func ForwardRef[T any](b *Builder, loc location.Location) (Stream[T], CycleSink[T]) {
	cycleID := b.Graph.FreshCycleID()
	meta := hydroir.Metadata{Location: loc, Bounded: hydroir.Unbounded, Order: hydroir.TotalOrder, ElementType: typeName[T]()}
	srcID := b.Graph.Add(hydroir.Node{Kind: hydroir.KindCycleSource, CycleID: cycleID, Meta: meta})
	sinkID := b.Graph.AddLeaf(hydroir.Leaf{Kind: hydroir.LeafCycleSink, CycleID: cycleID, Meta: meta})
	return Stream[T]{b: b, id: srcID, loc: loc, bounded: hydroir.Unbounded, order: hydroir.TotalOrder},
		CycleSink[T]{b: b, leafID: sinkID, cycleID: cycleID}
}

// TickCycle is ForwardRef specialized for closing a recursive cycle
// across tick boundaries: the caller is expected to feed the sink a
// DeferTick(...) of the eventual value, per §4.2's note that
// "tick_cycle enforces that the sink's input is DeferTick".
func TickCycle[T any](b *Builder, tick location.Location) (Stream[T], CycleSink[T]) {
	if !tick.IsTick() {
		panic("builder: TickCycle requires a Tick location")
	}
	cycleID := b.Graph.FreshCycleID()
	meta := hydroir.Metadata{Location: tick, Bounded: hydroir.Bounded, Order: hydroir.TotalOrder, ElementType: typeName[T]()}
	srcID := b.Graph.Add(hydroir.Node{Kind: hydroir.KindCycleSource, CycleID: cycleID, Meta: meta})
	sinkID := b.Graph.AddLeaf(hydroir.Leaf{Kind: hydroir.LeafCycleSink, CycleID: cycleID, Meta: meta})
	return Stream[T]{b: b, id: srcID, loc: tick, bounded: hydroir.Bounded, order: hydroir.TotalOrder},
		CycleSink[T]{b: b, leafID: sinkID, cycleID: cycleID, requireDeferTick: true}
}

// CycleSink is the other half of ForwardRef/TickCycle.
type CycleSink[T any] struct {
	b                *Builder
	leafID           hydroir.LeafID
	cycleID          int
	requireDeferTick bool
}

// Complete closes the cycle, wiring h as the value the paired
// CycleSource will read on the next iteration/tick.
func (cs CycleSink[T]) Complete(h Stream[T]) {
	if cs.requireDeferTick {
		leaf := cs.b.Graph.Leaf(cs.leafID)
		if h.id != leaf.Input && !isDeferTickProducer(cs.b.Graph, h.id) {
			herrors.Abort(herrors.ReasonCycleNotDeferred, int(cs.leafID),
				"tick_cycle %d must be completed with a DeferTick(...) value", cs.cycleID)
		}
	}
	resolved := cs.b.Graph.Consume(h.id, func(newID hydroir.NodeID) {
		cs.b.Graph.SetLeafInput(cs.leafID, newID)
	})
	cs.b.Graph.SetLeafInput(cs.leafID, resolved)
}

func isDeferTickProducer(g *hydroir.Graph, id hydroir.NodeID) bool {
	return g.Node(id).Kind == hydroir.KindDeferTick
}
