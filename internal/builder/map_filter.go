// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package builder

import "github.com/jhellerstein/hydro-sub000/internal/hydroir"

func consume1[T any](s Stream[T], patch func(hydroir.NodeID)) hydroir.NodeID {
	return s.b.Graph.Consume(s.id, patch)
}

// Map applies f elementwise; ordering and boundedness are unchanged
// (§4.2's operator table: "Map(f) | — | Stream<U,L,B,O>").
func Map[T, U any](s Stream[T], f hydroir.Token) Stream[U] {
	var in hydroir.NodeID
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindMap,
		Func: &f,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: s.bounded, Order: s.order, ElementType: typeName[U]()},
	})
	in = consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[U]{b: s.b, id: id, loc: s.loc, bounded: s.bounded, order: s.order}
}

// Filter keeps elements for which f returns true; ordering unchanged.
func Filter[T any](s Stream[T], f hydroir.Token) Stream[T] {
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindFilter,
		Func: &f,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: s.bounded, Order: s.order, ElementType: typeName[T]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[T]{b: s.b, id: id, loc: s.loc, bounded: s.bounded, order: s.order}
}

// FilterMap applies f (returning an optional U) elementwise, dropping
// elements where f produces nothing.
func FilterMap[T, U any](s Stream[T], f hydroir.Token) Stream[U] {
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindFilterMap,
		Func: &f,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: s.bounded, Order: s.order, ElementType: typeName[U]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[U]{b: s.b, id: id, loc: s.loc, bounded: s.bounded, order: s.order}
}

// FlatMapOrdered applies f (returning a sub-sequence of U) elementwise
// and flattens, preserving ordering.
func FlatMapOrdered[T, U any](s Stream[T], f hydroir.Token) Stream[U] {
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindFlatMap,
		Func: &f,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: s.bounded, Order: s.order, ElementType: typeName[U]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[U]{b: s.b, id: id, loc: s.loc, bounded: s.bounded, order: s.order}
}

// FlatMapUnordered is FlatMapOrdered's bag-semantics sibling: the
// result degrades to NoOrder regardless of s's ordering (§4.2).
func FlatMapUnordered[T, U any](s Stream[T], f hydroir.Token) Stream[U] {
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindFlatMap,
		Func: &f,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: s.bounded, Order: hydroir.NoOrder, ElementType: typeName[U]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[U]{b: s.b, id: id, loc: s.loc, bounded: s.bounded, order: hydroir.NoOrder}
}

// Inspect runs f for its side effect on every element, passing
// elements through unchanged.
func Inspect[T any](s Stream[T], f hydroir.Token) Stream[T] {
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindInspect,
		Func: &f,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: s.bounded, Order: s.order, ElementType: typeName[T]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[T]{b: s.b, id: id, loc: s.loc, bounded: s.bounded, order: s.order}
}

// Enumerate pairs each element with its position; requires TotalOrder
// per §3.2 ("Operators that depend on ordering... require TotalOrder").
func Enumerate[T any](s Stream[T]) Stream[Pair[int, T]] {
	requireTotalOrder(s.order, "enumerate")
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindEnumerate,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: s.bounded, Order: hydroir.TotalOrder, ElementType: typeName[Pair[int, T]]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[Pair[int, T]]{b: s.b, id: id, loc: s.loc, bounded: s.bounded, order: hydroir.TotalOrder}
}
