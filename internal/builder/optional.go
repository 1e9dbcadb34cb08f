// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package builder

import (
	"github.com/jhellerstein/hydro-sub000/internal/hydroir"
	"github.com/jhellerstein/hydro-sub000/internal/location"
)

// Optional is the builder-side handle for spec.md §3.2's
// Optional<T,L,B>: zero-or-one value.
type Optional[T any] struct {
	b       *Builder
	id      hydroir.NodeID
	loc     location.Location
	bounded hydroir.Boundedness
}

func (o Optional[T]) ID() hydroir.NodeID           { return o.id }
func (o Optional[T]) Location() location.Location  { return o.loc }
func (o Optional[T]) Bounded() hydroir.Boundedness { return o.bounded }

// FilterMapToOptional narrows a Singleton to an Optional via a
// predicate token, mirroring the stream FilterMap but for a
// single-valued input.
func FilterMapToOptional[T any](s Singleton[T], f hydroir.Token) Optional[T] {
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindFilterMap,
		Func: &f,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: s.bounded, ElementType: typeName[T]()},
	})
	in := s.b.Graph.Consume(s.id, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Optional[T]{b: s.b, id: id, loc: s.loc, bounded: s.bounded}
}
