// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dfir

// Edge connects two operators. Negated marks an edge whose downstream
// operator requires its input's complete contents before producing
// anything (§4.5 Phase 2's "negated edge" rule); Handoff marks an edge
// materialized as an explicit buffered handoff rather than a direct
// pull/push call.
type Edge struct {
	From, To OpID
	Negated  bool
	Handoff  bool
	// Port disambiguates a multi-input operator's edges (e.g.
	// cross_join's left/right, a Network receiver's per-sender index).
	Port int
}

// Subgraph is a contiguous run of operators sharing one stratum,
// connected by direct pull/push edges with no intervening handoff
// (§4.5 Phase 2).
type Subgraph struct {
	ID      int
	Stratum int
	Ops     []OpID
}

// Graph is the lowered DFIR program for one location.
type Graph struct {
	Location  string
	Operators map[OpID]*Operator
	Edges     []Edge
	Subgraphs []*Subgraph

	order   []OpID
	nextOp  OpID
	nextSub int
}

// NewGraph returns an empty lowering target for the named location.
func NewGraph(location string) *Graph {
	return &Graph{
		Location:  location,
		Operators: make(map[OpID]*Operator),
	}
}

// addOp appends a fresh operator and returns its id.
func (g *Graph) addOp(name OpName, args []string) OpID {
	g.nextOp++
	id := g.nextOp
	g.Operators[id] = &Operator{ID: id, Name: name, Args: args, Subgraph: -1}
	g.order = append(g.order, id)
	return id
}

// addEdge records a pull/push edge between two already-added operators.
func (g *Graph) addEdge(from, to OpID, negated bool) {
	g.Edges = append(g.Edges, Edge{From: from, To: to, Negated: negated})
}

// Ops returns every operator in emission order.
func (g *Graph) Ops() []*Operator {
	out := make([]*Operator, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.Operators[id])
	}
	return out
}

// newSubgraph allocates a fresh subgraph id.
func (g *Graph) newSubgraph() *Subgraph {
	g.nextSub++
	sg := &Subgraph{ID: g.nextSub}
	g.Subgraphs = append(g.Subgraphs, sg)
	return sg
}

// edgesFrom/edgesTo are small helpers used by stratify.go and
// classify.go to walk the adjacency implied by g.Edges without a
// separate adjacency index — the graphs this module lowers are small
// enough (one location's operators) that a linear scan per query is
// simpler than maintaining one.
func (g *Graph) edgesFrom(id OpID) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

func (g *Graph) edgesTo(id OpID) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}
