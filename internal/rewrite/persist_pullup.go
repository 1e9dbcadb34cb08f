// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package rewrite

import "github.com/jhellerstein/hydro-sub000/internal/hydroir"

// pullableKinds are the pure operators persist_pullup may move a
// Persist node through (§4.3): Map, Filter, FilterMap, FlatMap. Every
// Func token reaching the IR is already-staged opaque user code with
// no visible side effects on the IR itself, so every node of these
// kinds is eligible — the IR has no finer-grained purity annotation to
// consult.
func pullableKinds(k hydroir.Kind) bool {
	switch k {
	case hydroir.KindMap, hydroir.KindFilter, hydroir.KindFilterMap, hydroir.KindFlatMap:
		return true
	default:
		return false
	}
}

// PersistPullup moves Persist nodes upward through pure operators and
// collapses redundant Persist/Delta pairs (§4.3, §8 properties 3-4).
//
// Node identity is preserved across the rewrite: when Persist(Map(x))
// becomes Map(Persist(x)), the node id that downstream consumers
// already hold for the Persist keeps standing for "the final output"
// (now Map's), and the id they held for Map becomes the new inner
// Persist — so no other edge in the graph needs to change.
func PersistPullup(g *hydroir.Graph) error {
	for iterations, changed := 0, true; changed && iterations < len(g.Nodes())+1; iterations++ {
		changed = false
		for _, n := range g.Nodes() {
			if tryCollapsePersistDelta(g, n) {
				changed = true
				continue
			}
			if tryCollapseAdjacentPersist(g, n) {
				changed = true
				continue
			}
			if tryPullPersistUp(g, n) {
				changed = true
			}
		}
	}
	return nil
}

// tryPullPersistUp rewrites Persist(Op(x)) into Op(Persist(x)) in
// place for Op in pullableKinds.
func tryPullPersistUp(g *hydroir.Graph, p *hydroir.Node) bool {
	if p.Kind != hydroir.KindPersist {
		return false
	}
	child := g.Node(p.In1)
	if !pullableKinds(child.Kind) {
		return false
	}
	grandchild := child.In1
	childFunc := child.Func
	childKind := child.Kind
	childMeta := child.Meta

	// child's node id becomes the new inner Persist, reading the
	// original grandchild directly.
	*child = hydroir.Node{
		ID:   child.ID,
		Kind: hydroir.KindPersist,
		In1:  grandchild,
		Meta: p.Meta,
	}
	// p's node id becomes the new outer Op, reading the (now-Persist)
	// former child id.
	*p = hydroir.Node{
		ID:   p.ID,
		Kind: childKind,
		Func: childFunc,
		In1:  child.ID,
		Meta: childMeta,
	}
	return true
}

// tryCollapseAdjacentPersist rewrites Persist(Persist(x)) into
// Persist(x) in place (§4.3: "Two adjacent Persist collapse to one").
func tryCollapseAdjacentPersist(g *hydroir.Graph, p *hydroir.Node) bool {
	if p.Kind != hydroir.KindPersist {
		return false
	}
	child := g.Node(p.In1)
	if child.Kind != hydroir.KindPersist {
		return false
	}
	p.In1 = child.In1
	return true
}

// tryCollapsePersistDelta rewrites Delta(Persist(x)) into x in place
// (§4.3, §8 property 3): the Delta node's id becomes a copy of x's
// node so downstream consumers of the Delta's id see exactly what x
// produces, without requiring x itself to have only one consumer.
func tryCollapsePersistDelta(g *hydroir.Graph, d *hydroir.Node) bool {
	if d.Kind != hydroir.KindDelta {
		return false
	}
	persist := g.Node(d.In1)
	if persist.Kind != hydroir.KindPersist {
		return false
	}
	x := g.Node(persist.In1)
	id := d.ID
	*d = *x
	d.ID = id
	return true
}
