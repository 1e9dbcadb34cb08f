// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package finalize implements §4.4: closing a mutable IR graph into
// the fixed form the lowering engine consumes. Finalization inserts a
// Network node at every edge the builder left crossing locations, then
// checks the invariants a finalized graph must hold.
//
// Grounded on the same walk-and-patch style as internal/rewrite, reusing
// hydroir.Graph's in-place node rewriting rather than building a new
// graph.
package finalize

import (
	"fmt"

	"github.com/jhellerstein/hydro-sub000/internal/hydroir"
	"github.com/jhellerstein/hydro-sub000/internal/location"
	"github.com/jhellerstein/hydro-sub000/pkg/log"
)

// Graph is a finalized IR: every edge connects nodes at the same
// location, every cross-location edge is a Network node, and cycles
// are validated. Lowering only accepts a Graph wrapped this way so a
// caller cannot accidentally lower a pre-finalization IR.
type Graph struct {
	IR *hydroir.Graph
}

// Finalize walks g, replaces every edge crossing locations with an
// explicit Network{Bincode} node (§4.4), and validates the resulting
// invariants. It mutates g in place and returns it wrapped as a
// finalized Graph.
//
// Finalize is idempotent: an edge that is already a Network node, or
// that already connects same-location nodes, is left untouched.
func Finalize(g *hydroir.Graph) (*Graph, error) {
	if err := validateCycles(g); err != nil {
		return nil, err
	}

	for _, n := range g.Nodes() {
		if n.Kind == hydroir.KindNetwork {
			continue // explicit boundary, already placed by the builder
		}
		insertNetworkIfCrossing(g, n, &n.In1)
		if n.Kind == hydroir.KindCrossProduct || n.Kind == hydroir.KindCrossSingleton || n.Kind == hydroir.KindDifference || n.Kind == hydroir.KindChain {
			insertNetworkIfCrossing(g, n, &n.In2)
		}
	}
	for _, l := range g.Leaves() {
		src := g.Node(l.Input)
		if src == nil || location.Equal(src.Meta.Location, l.Meta.Location) {
			continue
		}
		l.Input = insertNetwork(g, l.Input, l.Meta.Location)
	}

	if err := validatePostConditions(g); err != nil {
		return nil, err
	}
	log.Debugf("finalize: completed with %d nodes, %d leaves", len(g.Nodes()), len(g.Leaves()))
	return &Graph{IR: g}, nil
}

// validateCycles delegates to the graph's own cycle bookkeeping
// (§8 property 1); a panic raised there is recovered into a returned
// error so Finalize never panics across its own boundary.
func validateCycles(g *hydroir.Graph) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("finalize: %v", r)
		}
	}()
	return g.ValidateCycles()
}

func insertNetworkIfCrossing(g *hydroir.Graph, n *hydroir.Node, in *hydroir.NodeID) {
	if *in == 0 {
		return
	}
	src := g.Node(*in)
	if src == nil || location.Equal(src.Meta.Location, n.Meta.Location) {
		return
	}
	*in = insertNetwork(g, *in, n.Meta.Location)
}

func insertNetwork(g *hydroir.Graph, in hydroir.NodeID, toLoc location.Location) hydroir.NodeID {
	src := g.Node(in)
	meta := src.Meta
	meta.Location = toLoc
	return g.Add(hydroir.Node{
		Kind:     hydroir.KindNetwork,
		In1:      in,
		ToLoc:    toLoc,
		NetCodec: hydroir.CodecBincode,
		Meta:     meta,
	})
}

// validatePostConditions checks §4.4's stated invariants after network
// insertion: every remaining edge is same-location, and every Network
// node's immediate consumers sit in its destination location.
func validatePostConditions(g *hydroir.Graph) error {
	for _, n := range g.Nodes() {
		if n.Kind == hydroir.KindNetwork {
			continue
		}
		if err := checkSameLocation(g, n, n.In1); err != nil {
			return err
		}
		if n.Kind == hydroir.KindCrossProduct || n.Kind == hydroir.KindCrossSingleton || n.Kind == hydroir.KindDifference || n.Kind == hydroir.KindChain {
			if err := checkSameLocation(g, n, n.In2); err != nil {
				return err
			}
		}
	}
	for _, l := range g.Leaves() {
		if err := checkLeafSameLocation(g, l); err != nil {
			return err
		}
	}
	return nil
}

func checkSameLocation(g *hydroir.Graph, n *hydroir.Node, in hydroir.NodeID) error {
	if in == 0 {
		return nil
	}
	src := g.Node(in)
	if src != nil && !location.Equal(src.Meta.Location, n.Meta.Location) {
		return fmt.Errorf("finalize: node #%d (%s) at %s still reads cross-location node #%d at %s after network insertion",
			n.ID, n.Kind, n.Meta.Location, in, src.Meta.Location)
	}
	return nil
}

func checkLeafSameLocation(g *hydroir.Graph, l *hydroir.Leaf) error {
	src := g.Node(l.Input)
	if src != nil && !location.Equal(src.Meta.Location, l.Meta.Location) {
		return fmt.Errorf("finalize: leaf #%d (%s) at %s still reads cross-location node #%d at %s after network insertion",
			l.ID, l.Kind, l.Meta.Location, l.Input, src.Meta.Location)
	}
	return nil
}
