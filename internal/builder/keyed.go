// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package builder

import "github.com/jhellerstein/hydro-sub000/internal/hydroir"

// FoldKeyed groups s (a Stream<Pair<K,V>>) by key and folds each
// group's values, producing a Stream of (K, Acc) pairs (§4.2).
// Requires TotalOrder within each key's group; FoldKeyedCommutative
// lifts that for NoOrder streams.
func FoldKeyed[K, V, Acc any](s Stream[Pair[K, V]], init, acc hydroir.Token) Stream[Pair[K, Acc]] {
	requireTotalOrder(s.order, "fold_keyed")
	return foldKeyedImpl[K, V, Acc](s, init, acc)
}

func FoldKeyedCommutative[K, V, Acc any](s Stream[Pair[K, V]], init, acc hydroir.Token) Stream[Pair[K, Acc]] {
	return foldKeyedImpl[K, V, Acc](s, init, acc)
}

func foldKeyedImpl[K, V, Acc any](s Stream[Pair[K, V]], init, acc hydroir.Token) Stream[Pair[K, Acc]] {
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindFoldKeyed,
		Init: &init,
		Acc:  &acc,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: s.bounded, Order: hydroir.NoOrder, ElementType: typeName[Pair[K, Acc]]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[Pair[K, Acc]]{b: s.b, id: id, loc: s.loc, bounded: s.bounded, order: hydroir.NoOrder}
}

// ReduceKeyed is FoldKeyed without an explicit init per group.
func ReduceKeyed[K, V any](s Stream[Pair[K, V]], acc hydroir.Token) Stream[Pair[K, V]] {
	requireTotalOrder(s.order, "reduce_keyed")
	id := s.b.Graph.Add(hydroir.Node{
		Kind: hydroir.KindReduceKeyed,
		Acc:  &acc,
		Meta: hydroir.Metadata{Location: s.loc, Bounded: s.bounded, Order: hydroir.NoOrder, ElementType: typeName[Pair[K, V]]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[Pair[K, V]]{b: s.b, id: id, loc: s.loc, bounded: s.bounded, order: hydroir.NoOrder}
}
