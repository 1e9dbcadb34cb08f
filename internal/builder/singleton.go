// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package builder

import (
	"github.com/jhellerstein/hydro-sub000/internal/hydroir"
	"github.com/jhellerstein/hydro-sub000/internal/location"
)

// Singleton is the builder-side handle for spec.md §3.2's
// Singleton<T,L,B>: exactly-one value, lattice-joined when it
// originates from a fold. It has no ordering parameter.
type Singleton[T any] struct {
	b       *Builder
	id      hydroir.NodeID
	loc     location.Location
	bounded hydroir.Boundedness
}

func (s Singleton[T]) ID() hydroir.NodeID          { return s.id }
func (s Singleton[T]) Location() location.Location { return s.loc }
func (s Singleton[T]) Bounded() hydroir.Boundedness { return s.bounded }

// Fold requires a Bounded stream and a total order (non-commutative
// accumulation depends on arrival order); use FoldCommutative for
// NoOrder streams (§4.2, §3.2).
func Fold[T, Acc any](s Stream[T], init, acc hydroir.Token) Singleton[Acc] {
	requireBounded(s.bounded, "fold")
	requireTotalOrder(s.order, "fold")
	return foldImpl[T, Acc](s, init, acc)
}

// FoldCommutative drops the ordering requirement, for use with
// commutative/associative accumulators over NoOrder streams.
func FoldCommutative[T, Acc any](s Stream[T], init, acc hydroir.Token) Singleton[Acc] {
	requireBounded(s.bounded, "fold_commutative")
	return foldImpl[T, Acc](s, init, acc)
}

func foldImpl[T, Acc any](s Stream[T], init, acc hydroir.Token) Singleton[Acc] {
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindFold,
		Init: &init,
		Acc:  &acc,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: hydroir.Bounded, ElementType: typeName[Acc]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Singleton[Acc]{b: s.b, id: id, loc: s.loc, bounded: hydroir.Bounded}
}

// Reduce is Fold without an explicit init: the first element seeds
// the accumulator. Requires TotalOrder; ReduceCommutative lifts that.
func Reduce[T any](s Stream[T], acc hydroir.Token) Singleton[T] {
	requireBounded(s.bounded, "reduce")
	requireTotalOrder(s.order, "reduce")
	return reduceImpl[T](s, acc)
}

func ReduceCommutative[T any](s Stream[T], acc hydroir.Token) Singleton[T] {
	requireBounded(s.bounded, "reduce_commutative")
	return reduceImpl[T](s, acc)
}

func reduceImpl[T any](s Stream[T], acc hydroir.Token) Singleton[T] {
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindReduce,
		Acc:  &acc,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: hydroir.Bounded, ElementType: typeName[T]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Singleton[T]{b: s.b, id: id, loc: s.loc, bounded: hydroir.Bounded}
}

// Snapshot moves a Singleton into tick, producing a Bounded Singleton
// for that tick (the Singleton analogue of Stream.Batch, §4.2).
func Snapshot[T any](s Singleton[T], tick location.Location) Singleton[T] {
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindBatch,
		Meta: hydroir.Metadata{Location: tick, Bounded: hydroir.Bounded, ElementType: typeName[T]()},
	})
	in := s.b.Graph.Consume(s.id, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Singleton[T]{b: s.b, id: id, loc: tick, bounded: hydroir.Bounded}
}
