// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dfir

import "sort"

// UnresolvableStratum is a lowering error (§7): the boundary edges
// between subgraphs form a cycle not bridged by a defer_tick, so no
// consistent stratum numbering exists.
type UnresolvableStratum struct {
	Subgraphs []int
}

func (e *UnresolvableStratum) Error() string {
	return "dfir: circular stratum dependency not bridged by defer_tick"
}

// isBoundary reports whether an edge forces a stratum boundary
// (§4.5 Phase 2): a negated edge (the downstream op needs its input's
// complete contents), or an edge into defer_tick (which also bumps the
// tick).
func isBoundary(g *Graph, e Edge) bool {
	if e.Negated {
		return true
	}
	return g.Operators[e.To].Name == OpDeferTick
}

// union-find over operator ids, merged across every non-boundary edge.
type unionFind struct {
	parent map[OpID]OpID
}

func newUnionFind(ids []OpID) *unionFind {
	uf := &unionFind{parent: make(map[OpID]OpID, len(ids))}
	for _, id := range ids {
		uf.parent[id] = id
	}
	return uf
}

func (uf *unionFind) find(id OpID) OpID {
	for uf.parent[id] != id {
		uf.parent[id] = uf.parent[uf.parent[id]]
		id = uf.parent[id]
	}
	return id
}

func (uf *unionFind) union(a, b OpID) {
	ra, rb := uf.find(a), uf.find(b)
	if ra != rb {
		uf.parent[ra] = rb
	}
}

// Stratify assigns every operator to a subgraph and every subgraph to
// a stratum (§4.5 Phase 2). It must run after Phase 1 translation and
// before Classify.
func Stratify(g *Graph) error {
	ops := g.Ops()
	ids := make([]OpID, len(ops))
	for i, op := range ops {
		ids[i] = op.ID
	}
	uf := newUnionFind(ids)
	for _, e := range g.Edges {
		if !isBoundary(g, e) {
			uf.union(e.From, e.To)
		}
	}

	rootSub := make(map[OpID]*Subgraph)
	g.Subgraphs = nil
	g.nextSub = 0
	for _, id := range ids {
		root := uf.find(id)
		sg, ok := rootSub[root]
		if !ok {
			sg = g.newSubgraph()
			rootSub[root] = sg
		}
		sg.Ops = append(sg.Ops, id)
		g.Operators[id].Subgraph = sg.ID
	}

	// Boundary edges become dependencies between subgraphs: the
	// downstream subgraph's stratum must exceed the upstream one's.
	deps := make(map[int]map[int]bool)
	for _, e := range g.Edges {
		if !isBoundary(g, e) {
			continue
		}
		from := g.Operators[e.From].Subgraph
		to := g.Operators[e.To].Subgraph
		if from == to {
			continue
		}
		if deps[to] == nil {
			deps[to] = make(map[int]bool)
		}
		deps[to][from] = true
	}

	return assignStrata(g, deps)
}

// assignStrata computes each subgraph's stratum as the longest path
// over the dependency DAG, ties (and stratum-0 eligibility) broken by
// subgraph id order (§4.5 Phase 2: "ties broken by subgraph id").
func assignStrata(g *Graph, deps map[int]map[int]bool) error {
	stratum := make(map[int]int)
	sorted := make([]*Subgraph, len(g.Subgraphs))
	copy(sorted, g.Subgraphs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	visiting := make(map[int]bool)
	var resolve func(id int) (int, error)
	resolve = func(id int) (int, error) {
		if s, ok := stratum[id]; ok {
			return s, nil
		}
		if visiting[id] {
			return 0, &UnresolvableStratum{Subgraphs: []int{id}}
		}
		visiting[id] = true
		best := 0
		preds := make([]int, 0, len(deps[id]))
		for p := range deps[id] {
			preds = append(preds, p)
		}
		sort.Ints(preds)
		for _, p := range preds {
			s, err := resolve(p)
			if err != nil {
				return 0, err
			}
			if s+1 > best {
				best = s + 1
			}
		}
		visiting[id] = false
		stratum[id] = best
		return best, nil
	}

	for _, sg := range sorted {
		s, err := resolve(sg.ID)
		if err != nil {
			return err
		}
		sg.Stratum = s
		for _, opID := range sg.Ops {
			g.Operators[opID].Stratum = s
		}
	}
	return nil
}
