// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package finalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhellerstein/hydro-sub000/internal/hydroir"
	"github.com/jhellerstein/hydro-sub000/internal/location"
)

func TestFinalizeInsertsNetworkAcrossLocations(t *testing.T) {
	g := hydroir.NewGraph()
	locs := location.New()
	p1 := locs.FreshProcess()
	p2 := locs.FreshProcess()

	src := g.Add(hydroir.Node{Kind: hydroir.KindSource, Meta: hydroir.Metadata{Location: p1}})
	leaf := g.AddLeaf(hydroir.Leaf{Kind: hydroir.LeafForEach, Input: src, Meta: hydroir.Metadata{Location: p2}})

	fz, err := Finalize(g)
	require.NoError(t, err)

	l := fz.IR.Leaf(leaf)
	netNode := fz.IR.Node(l.Input)
	require.NotNil(t, netNode)
	assert.Equal(t, hydroir.KindNetwork, netNode.Kind)
	assert.Equal(t, hydroir.CodecBincode, netNode.NetCodec)
	assert.True(t, location.Equal(netNode.ToLoc, p2))
	assert.True(t, location.Equal(netNode.Meta.Location, p2))
}

func TestFinalizeLeavesSameLocationEdgesUntouched(t *testing.T) {
	g := hydroir.NewGraph()
	locs := location.New()
	p1 := locs.FreshProcess()

	src := g.Add(hydroir.Node{Kind: hydroir.KindSource, Meta: hydroir.Metadata{Location: p1}})
	leaf := g.AddLeaf(hydroir.Leaf{Kind: hydroir.LeafForEach, Input: src, Meta: hydroir.Metadata{Location: p1}})

	fz, err := Finalize(g)
	require.NoError(t, err)

	l := fz.IR.Leaf(leaf)
	assert.Equal(t, src, l.Input, "same-location edges must not be rewritten")
}

func TestFinalizeIsIdempotent(t *testing.T) {
	g := hydroir.NewGraph()
	locs := location.New()
	p1 := locs.FreshProcess()
	p2 := locs.FreshProcess()

	src := g.Add(hydroir.Node{Kind: hydroir.KindSource, Meta: hydroir.Metadata{Location: p1}})
	g.AddLeaf(hydroir.Leaf{Kind: hydroir.LeafForEach, Input: src, Meta: hydroir.Metadata{Location: p2}})

	fz1, err := Finalize(g)
	require.NoError(t, err)
	nodeCountAfterFirst := len(fz1.IR.Nodes())

	fz2, err := Finalize(fz1.IR)
	require.NoError(t, err)
	assert.Equal(t, nodeCountAfterFirst, len(fz2.IR.Nodes()), "a second finalize pass must not insert another Network node")
}

func TestFinalizeRejectsUnmatchedCycleSink(t *testing.T) {
	g := hydroir.NewGraph()
	id := g.FreshCycleID()
	locs := location.New()
	p1 := locs.FreshProcess()
	g.AddLeaf(hydroir.Leaf{Kind: hydroir.LeafCycleSink, CycleID: id, Meta: hydroir.Metadata{Location: p1}})

	_, err := Finalize(g)
	require.Error(t, err)
}

func TestFinalizeInsertsNetworkForCrossProductSecondInput(t *testing.T) {
	g := hydroir.NewGraph()
	locs := location.New()
	p1 := locs.FreshProcess()
	p2 := locs.FreshProcess()

	left := g.Add(hydroir.Node{Kind: hydroir.KindSource, Meta: hydroir.Metadata{Location: p2}})
	right := g.Add(hydroir.Node{Kind: hydroir.KindSource, Meta: hydroir.Metadata{Location: p1}})
	cp := g.Add(hydroir.Node{Kind: hydroir.KindCrossProduct, In1: left, In2: right, Meta: hydroir.Metadata{Location: p2}})
	g.AddLeaf(hydroir.Leaf{Kind: hydroir.LeafForEach, Input: cp, Meta: hydroir.Metadata{Location: p2}})

	fz, err := Finalize(g)
	require.NoError(t, err)

	node := fz.IR.Node(cp)
	in2Node := fz.IR.Node(node.In2)
	require.NotNil(t, in2Node)
	assert.Equal(t, hydroir.KindNetwork, in2Node.Kind, "the cross-location second input of CrossProduct must gain a Network node")
	assert.Equal(t, left, node.In1, "the already-local first input is untouched")
}
