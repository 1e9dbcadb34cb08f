// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package rewrite

import (
	"fmt"

	"github.com/jhellerstein/hydro-sub000/internal/hydroir"
	"github.com/jhellerstein/hydro-sub000/internal/location"
)

// Decoupling moves the nodes in cutPoints onto newLoc, inserting a
// Network{Bincode} boundary on each input edge of a moved node whose
// source is not on newLoc (§4.6).
//
// cutPoints names the nodes to relocate, not the edges: exactly those
// nodes move. Nodes reachable from a cut point stay on their current
// location; an edge from a moved node to such a node is not given a
// Network here. This mirrors a manual send_bincode insertion, just
// applied programmatically to a whole node set at once.
func Decoupling(cutPoints []hydroir.NodeID, newLoc location.Location) Pass {
	return func(g *hydroir.Graph) error {
		moving := make(map[hydroir.NodeID]bool, len(cutPoints))
		for _, id := range cutPoints {
			n := g.Node(id)
			if n == nil {
				return fmt.Errorf("rewrite: decoupling: unknown node #%d", id)
			}
			moving[id] = true
		}

		for _, id := range cutPoints {
			n := g.Node(id)
			n.Meta.Location = newLoc
		}

		for _, n := range g.Nodes() {
			if n.Kind == hydroir.KindTee {
				continue
			}
			rewireInputEdge(g, n, &n.In1, moving, newLoc)
			if n.Kind == hydroir.KindCrossProduct || n.Kind == hydroir.KindCrossSingleton || n.Kind == hydroir.KindDifference || n.Kind == hydroir.KindChain {
				rewireInputEdge(g, n, &n.In2, moving, newLoc)
			}
		}
		for _, l := range g.Leaves() {
			if moving[l.Input] {
				continue
			}
			src := g.Node(l.Input)
			if src != nil && location.Equal(src.Meta.Location, newLoc) {
				l.Input = insertNetworkBoundary(g, l.Input, newLoc)
			}
		}
		return nil
	}
}

// rewireInputEdge inserts a Network node on *in when the consuming
// node n has moved to newLoc but the input it reads has not.
func rewireInputEdge(g *hydroir.Graph, n *hydroir.Node, in *hydroir.NodeID, moving map[hydroir.NodeID]bool, newLoc location.Location) {
	if *in == 0 || !moving[n.ID] {
		return
	}
	src := g.Node(*in)
	if src == nil || location.Equal(src.Meta.Location, newLoc) {
		return
	}
	*in = insertNetworkBoundary(g, *in, newLoc)
}

// insertNetworkBoundary adds a Network{Bincode} node reading from in
// and producing a value at newLoc, returning the new node's id.
func insertNetworkBoundary(g *hydroir.Graph, in hydroir.NodeID, newLoc location.Location) hydroir.NodeID {
	src := g.Node(in)
	meta := src.Meta
	meta.Location = newLoc
	return g.Add(hydroir.Node{
		Kind:     hydroir.KindNetwork,
		In1:      in,
		ToLoc:    newLoc,
		NetCodec: hydroir.CodecBincode,
		Meta:     meta,
	})
}
