// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package hydroir

import (
	"sync"

	"github.com/jhellerstein/hydro-sub000/internal/herrors"
)

// Graph owns the node/leaf arena for one builder. It is the single
// owner of all storage; handles outside this package only carry a
// NodeID/LeafID plus a reference back to their Graph.
//
// A Graph is not safe to share across goroutines during construction
// (spec.md §5: "a handle is not Send"); the RWMutex here exists so that
// diagnostics and the renderer can walk a finished (or finalized)
// Graph concurrently with nothing else mutating it, the same
// read-heavy/write-rare split pkg/metricstore/level.go uses.
type Graph struct {
	mu sync.RWMutex

	nextNodeID NodeID
	nextLeafID LeafID

	nodes  map[NodeID]*Node
	leaves map[LeafID]*Leaf

	// cycleSources/cycleSinks index CycleSource/CycleSink occurrences
	// by cycle id, for the finalization check in §3.3: "for every
	// CycleSource(id) there exists at least one CycleSink(id) at the
	// same location; conversely for every CycleSink there is at most
	// one CycleSource."
	cycleSources map[int][]NodeID
	cycleSinks   map[int][]LeafID

	nextCycleID int

	// Handle-reuse bookkeeping for Consume (see share.go).
	useCount  map[NodeID]int
	firstUse  map[NodeID]func(NodeID)
	sharedTee map[NodeID]NodeID
}

// NewGraph returns an empty arena.
func NewGraph() *Graph {
	return &Graph{
		nodes:        make(map[NodeID]*Node),
		leaves:       make(map[LeafID]*Leaf),
		cycleSources: make(map[int][]NodeID),
		cycleSinks:   make(map[int][]LeafID),
		useCount:     make(map[NodeID]int),
		firstUse:     make(map[NodeID]func(NodeID)),
		sharedTee:    make(map[NodeID]NodeID),
	}
}

// Add appends n to the arena, assigning it a fresh stable ID, and
// returns that ID. The caller must not have set n.ID.
func (g *Graph) Add(n Node) NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextNodeID++
	n.ID = g.nextNodeID
	g.nodes[n.ID] = &n
	if n.Kind == KindCycleSource {
		g.cycleSources[n.CycleID] = append(g.cycleSources[n.CycleID], n.ID)
	}
	return n.ID
}

// AddLeaf appends l to the arena.
func (g *Graph) AddLeaf(l Leaf) LeafID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextLeafID++
	l.ID = g.nextLeafID
	g.leaves[l.ID] = &l
	if l.Kind == LeafCycleSink {
		g.cycleSinks[l.CycleID] = append(g.cycleSinks[l.CycleID], l.ID)
	}
	return l.ID
}

// Node returns the node stored at id. Panics if id is unknown: a
// NodeID handed out by this Graph is always resolvable by
// construction, so a miss here is an internal bug, not user error.
func (g *Graph) Node(id NodeID) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		panic("hydroir: unknown NodeID")
	}
	return n
}

// Leaf returns the leaf stored at id.
func (g *Graph) Leaf(id LeafID) *Leaf {
	g.mu.RLock()
	defer g.mu.RUnlock()
	l, ok := g.leaves[id]
	if !ok {
		panic("hydroir: unknown LeafID")
	}
	return l
}

// Leaves returns every leaf in the arena, in insertion order.
func (g *Graph) Leaves() []*Leaf {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Leaf, 0, len(g.leaves))
	for id := LeafID(1); id <= g.nextLeafID; id++ {
		if l, ok := g.leaves[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

// Nodes returns every node in the arena, in insertion order.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Node, 0, len(g.nodes))
	for id := NodeID(1); id <= g.nextNodeID; id++ {
		if n, ok := g.nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

// UseCount reports how many times Consume has been called for id. A
// rewrite pass that would duplicate a node's computation (e.g. fusing
// it into a downstream consumer) must first check this is 1: anything
// higher means the node is shared through a Tee and fusing would
// duplicate work across readers.
func (g *Graph) UseCount(id NodeID) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.useCount[id]
}

// FreshCycleID allocates a new cycle identity for forward_ref/tick_cycle.
func (g *Graph) FreshCycleID() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextCycleID++
	return g.nextCycleID
}

// SetLeafInput patches a leaf's input edge after the fact. It exists
// solely for closing a forward_ref/tick_cycle: the CycleSink leaf must
// be allocated before the producer it will eventually read is built
// (that producer is, after all, downstream of the CycleSource this
// sink pairs with), so its Input starts at the zero NodeID and is
// patched once the user calls Complete.
func (g *Graph) SetLeafInput(id LeafID, in NodeID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.leaves[id].Input = in
}

// Tee wraps child in a shared TeeCell and returns a new Tee node
// reading from it. Calling Tee again on the same child NodeID
// allocates a second reader of the *same* cell rather than a fresh
// cell, which is what makes a repeated call a genuine structural
// share instead of a duplicated computation.
func (g *Graph) Tee(child NodeID) NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	if teeID, ok := g.sharedTee[child]; ok {
		return g.teeFromLocked(g.nodeLocked(teeID).Cell)
	}
	teeID := g.teeLocked(child)
	g.sharedTee[child] = teeID
	return teeID
}

// TeeFrom adds another reader to an existing TeeCell, used when a
// handle that is already shared is consumed a third, fourth, ... time.
func (g *Graph) TeeFrom(cell *TeeCell) NodeID {
	cell.Readers++
	childNode := g.Node(cell.Child)
	return g.Add(Node{
		Kind: KindTee,
		Meta: childNode.Meta,
		Cell: cell,
	})
}

// ValidateCycles checks the invariant from §3.3 and §7
// (UnmatchedCycle): every CycleSink(id) has at most one CycleSource(id)
// at the same location, and finalization requires the counts to
// match (at least one source per sink).
func (g *Graph) ValidateCycles() error {
	for cycleID, sinks := range g.cycleSinks {
		sources := g.cycleSources[cycleID]
		if len(sources) == 0 {
			herrors.Abort(herrors.ReasonUnmatchedCycle, int(sinks[0]),
				"cycle id %d has a CycleSink but no CycleSource", cycleID)
		}
		if len(sources) > 1 {
			herrors.Abort(herrors.ReasonUnmatchedCycle, int(sources[1]),
				"cycle id %d has more than one CycleSource", cycleID)
		}
	}
	for cycleID, sources := range g.cycleSources {
		if len(g.cycleSinks[cycleID]) == 0 {
			herrors.Abort(herrors.ReasonUnmatchedCycle, int(sources[0]),
				"cycle id %d has a CycleSource but no CycleSink", cycleID)
		}
	}
	return nil
}

// Walk performs a post-order traversal starting at every leaf,
// visiting each node exactly once regardless of how many times it is
// reached (memoized on NodeID, which is also how Tee identity is
// respected: a Tee's children are walked once no matter how many
// readers point at the same TeeCell).
func (g *Graph) Walk(visit func(*Node)) {
	visited := make(map[NodeID]bool)
	var walkNode func(id NodeID)
	walkNode = func(id NodeID) {
		if id == 0 || visited[id] {
			return
		}
		visited[id] = true
		n := g.Node(id)
		if n.Kind == KindTee {
			walkNode(n.Cell.Child)
		} else {
			walkNode(n.In1)
			walkNode(n.In2)
		}
		visit(n)
	}
	for _, l := range g.Leaves() {
		walkNode(l.Input)
	}
}
