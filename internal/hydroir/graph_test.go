// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package hydroir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAssignsStableMonotonicIDs(t *testing.T) {
	g := NewGraph()
	a := g.Add(Node{Kind: KindSource})
	b := g.Add(Node{Kind: KindMap})
	assert.Equal(t, NodeID(1), a)
	assert.Equal(t, NodeID(2), b)
	assert.Equal(t, KindSource, g.Node(a).Kind)
	assert.Equal(t, KindMap, g.Node(b).Kind)
}

func TestNodeUnknownIDPanics(t *testing.T) {
	g := NewGraph()
	assert.Panics(t, func() { g.Node(NodeID(99)) })
}

func TestTeeSharesOneCellAcrossThirdUse(t *testing.T) {
	g := NewGraph()
	src := g.Add(Node{Kind: KindSource})

	var patched []NodeID
	r1 := g.Consume(src, func(id NodeID) { patched = append(patched, id) })
	r2 := g.Consume(src, func(id NodeID) { patched = append(patched, id) })
	r3 := g.Consume(src, func(id NodeID) { patched = append(patched, id) })

	require.Equal(t, src, r1, "first consumer gets the raw id before any sharing is known")
	require.NotEqual(t, src, r2, "second consumer is rewired through a Tee")
	assert.Equal(t, KindTee, g.Node(r2).Kind)
	assert.Equal(t, KindTee, g.Node(r3).Kind)
	assert.NotEqual(t, r2, r3, "each additional reader gets its own Tee node")
	assert.Equal(t, g.Node(r2).Cell, g.Node(r3).Cell, "but they share the same TeeCell")
	assert.Equal(t, 3, g.Node(r2).Cell.Readers)
}

func TestValidateCyclesRejectsUnmatchedSink(t *testing.T) {
	g := NewGraph()
	id := g.FreshCycleID()
	g.AddLeaf(Leaf{Kind: LeafCycleSink, CycleID: id})

	assert.Panics(t, func() { g.ValidateCycles() })
}

func TestValidateCyclesAcceptsMatchedPair(t *testing.T) {
	g := NewGraph()
	id := g.FreshCycleID()
	g.Add(Node{Kind: KindCycleSource, CycleID: id})
	g.AddLeaf(Leaf{Kind: LeafCycleSink, CycleID: id})

	assert.NotPanics(t, func() {
		err := g.ValidateCycles()
		require.NoError(t, err)
	})
}

func TestWalkVisitsEachNodeOnce(t *testing.T) {
	g := NewGraph()
	src := g.Add(Node{Kind: KindSource})
	mapped := g.Add(Node{Kind: KindMap, In1: src})
	g.AddLeaf(Leaf{Kind: LeafForEach, Input: mapped})

	var visited []NodeID
	g.Walk(func(n *Node) { visited = append(visited, n.ID) })
	assert.Equal(t, []NodeID{src, mapped}, visited)
}

func TestWalkRespectsTeeIdentity(t *testing.T) {
	g := NewGraph()
	src := g.Add(Node{Kind: KindSource})

	leaf1 := g.AddLeaf(Leaf{Kind: LeafForEach})
	in1 := g.Consume(src, func(newID NodeID) { g.SetLeafInput(leaf1, newID) })
	g.SetLeafInput(leaf1, in1)

	leaf2 := g.AddLeaf(Leaf{Kind: LeafForEach})
	in2 := g.Consume(src, func(newID NodeID) { g.SetLeafInput(leaf2, newID) })
	g.SetLeafInput(leaf2, in2)

	assert.NotEqual(t, g.Leaf(leaf1).Input, src, "consume's second call retroactively repoints the first consumer through the Tee")
	assert.Equal(t, g.Leaf(leaf1).Input, g.Leaf(leaf2).Input)

	count := make(map[NodeID]int)
	g.Walk(func(n *Node) { count[n.ID]++ })
	assert.Equal(t, 1, count[src], "the shared source is only visited once")
}
