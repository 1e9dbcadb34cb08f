// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package builder

import (
	"github.com/jhellerstein/hydro-sub000/internal/hydroir"
	"github.com/jhellerstein/hydro-sub000/internal/location"
)

// SendBincode produces a Stream at otherLoc, explicitly inserting a
// Network node with the Bincode codec (§4.2, §6.3). §4.2's ordering
// rule: NoOrder stays NoOrder; TotalOrder with exactly one sender and
// receiver stays TotalOrder, otherwise degrades to NoOrder. Since a
// single SendBincode call is always one sender into one (possibly
// replicated) receiver location, we preserve TotalOrder only when the
// destination is not a Cluster — a Cluster may be many receivers, one
// per member, over possibly-interleaved delivery.
func SendBincode[T any](s Stream[T], otherLoc location.Location) Stream[T] {
	order := s.order
	if otherLoc.Kind == location.KindCluster && order == hydroir.TotalOrder {
		order = hydroir.NoOrder
	}
	id := s.b.Graph.Add(hydroir.Node{
		Kind:     hydroir.KindNetwork,
		ToLoc:    otherLoc,
		NetCodec: hydroir.CodecBincode,
		Meta:     hydroir.Metadata{Location: otherLoc, Bounded: s.bounded, Order: order, ElementType: typeName[T]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[T]{b: s.b, id: id, loc: otherLoc, bounded: s.bounded, order: order}
}

// BroadcastBincode sends to every member of a cluster with the
// TaggedBincode codec (so receivers can demultiplex by source), always
// producing NoOrder output (§4.2, §6.3, §8 scenario S5).
func BroadcastBincode[T any](s Stream[T], cluster location.Location) Stream[T] {
	if cluster.Kind != location.KindCluster {
		panic("builder: BroadcastBincode requires a Cluster destination")
	}
	id := s.b.Graph.Add(hydroir.Node{
		Kind:     hydroir.KindNetwork,
		ToLoc:    cluster,
		NetCodec: hydroir.CodecTaggedBincode,
		Meta:     hydroir.Metadata{Location: cluster, Bounded: s.bounded, Order: hydroir.NoOrder, ElementType: typeName[T]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[T]{b: s.b, id: id, loc: cluster, bounded: s.bounded, order: hydroir.NoOrder}
}

// SendPartitioned routes each element to one cluster member chosen by
// f, carrying the partition function on the Network node's codec so
// the partitioning rewrite pass (or a direct call here) can insert the
// upstream routing computation (§4.2, §4.6).
func SendPartitioned[T any](s Stream[T], cluster location.Location, f hydroir.Token) Stream[T] {
	if cluster.Kind != location.KindCluster {
		panic("builder: SendPartitioned requires a Cluster destination")
	}
	id := s.b.Graph.Add(hydroir.Node{
		Kind:          hydroir.KindNetwork,
		ToLoc:         cluster,
		NetCodec:      hydroir.CodecBincode,
		PartitionFunc: &f,
		Meta:          hydroir.Metadata{Location: cluster, Bounded: s.bounded, Order: hydroir.NoOrder, ElementType: typeName[T]()},
	})
	in := consume1(s, func(newID hydroir.NodeID) { s.b.Graph.Node(id).In1 = newID })
	s.b.Graph.Node(id).In1 = in
	return Stream[T]{b: s.b, id: id, loc: cluster, bounded: s.bounded, order: hydroir.NoOrder}
}
