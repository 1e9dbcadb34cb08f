// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package builder

import "github.com/jhellerstein/hydro-sub000/internal/hydroir"

// ForEach terminates s with a side-effecting HydroLeaf::ForEach.
func ForEach[T any](s Stream[T], f hydroir.Token) hydroir.LeafID {
	id := s.b.Graph.AddLeaf(hydroir.Leaf{
		Kind: hydroir.LeafForEach,
		Func: &f,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: s.bounded, Order: s.order, ElementType: typeName[T]()},
	})
	in := s.b.Graph.Consume(s.id, func(newID hydroir.NodeID) { s.b.Graph.SetLeafInput(id, newID) })
	s.b.Graph.SetLeafInput(id, in)
	return id
}

// ForEachSingleton terminates a Singleton the same way ForEach
// terminates a Stream: once per tick, on the one value the singleton
// holds at that point.
func ForEachSingleton[T any](s Singleton[T], f hydroir.Token) hydroir.LeafID {
	id := s.b.Graph.AddLeaf(hydroir.Leaf{
		Kind: hydroir.LeafForEach,
		Func: &f,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: s.bounded, ElementType: typeName[T]()},
	})
	in := s.b.Graph.Consume(s.id, func(newID hydroir.NodeID) { s.b.Graph.SetLeafInput(id, newID) })
	s.b.Graph.SetLeafInput(id, in)
	return id
}

// DestSink terminates s with a HydroLeaf::DestSink writing to sink.
func DestSink[T any](s Stream[T], sink hydroir.Token) hydroir.LeafID {
	id := s.b.Graph.AddLeaf(hydroir.Leaf{
		Kind: hydroir.LeafDestSink,
		Sink: &sink,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: s.bounded, Order: s.order, ElementType: typeName[T]()},
	})
	in := s.b.Graph.Consume(s.id, func(newID hydroir.NodeID) { s.b.Graph.SetLeafInput(id, newID) })
	s.b.Graph.SetLeafInput(id, in)
	return id
}
