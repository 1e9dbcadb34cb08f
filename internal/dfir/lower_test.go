// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dfir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhellerstein/hydro-sub000/internal/builder"
	"github.com/jhellerstein/hydro-sub000/internal/finalize"
	"github.com/jhellerstein/hydro-sub000/internal/hydroir"
	"github.com/jhellerstein/hydro-sub000/internal/location"
)

func buildSimplePipeline(t *testing.T) (*finalize.Graph, []int) {
	t.Helper()
	g, locs, err := builder.Build(func(b *builder.Builder) {
		proc := b.Process()
		src := builder.SourceIter[int](b, proc, hydroir.Token{Rendered: "[1, 2, 3]"})
		mapped := builder.Map[int, int](src, hydroir.Token{Rendered: "|x| x + 1"})
		builder.ForEach(mapped, hydroir.Token{Rendered: "|x| drop(x)"})
	})
	require.NoError(t, err)
	fz, err := finalize.Finalize(g)
	require.NoError(t, err)

	var ids []int
	for _, loc := range locs.ConcreteLocations() {
		ids = append(ids, loc.ID)
	}
	return fz, ids
}

func TestLowerProducesOperatorsForEverySourceAndLeaf(t *testing.T) {
	fz, ids := buildSimplePipeline(t)
	require.Len(t, ids, 1)

	loc := findLocationByID(t, fz, ids[0])
	g, err := Lower(fz, loc)
	require.NoError(t, err)

	var hasSource, hasMap, hasForEach bool
	for _, op := range g.Ops() {
		switch op.Name {
		case OpSourceIter:
			hasSource = true
		case OpMap:
			hasMap = true
		case OpForEach:
			hasForEach = true
		}
	}
	assert.True(t, hasSource, "lowering must translate the source node into an operator")
	assert.True(t, hasMap, "lowering must translate the map node into an operator")
	assert.True(t, hasForEach, "lowering must translate the for_each leaf into an operator")
}

func TestLowerAllSkipsLocationsWithNoReachableNodes(t *testing.T) {
	g, locs, err := builder.Build(func(b *builder.Builder) {
		proc := b.Process()
		b.Cluster() // allocated but never used by any node
		src := builder.SourceIter[int](b, proc, hydroir.Token{Rendered: "[1]"})
		builder.ForEach(src, hydroir.Token{Rendered: "|x| drop(x)"})
	})
	require.NoError(t, err)
	fz, err := finalize.Finalize(g)
	require.NoError(t, err)

	lowered, err := LowerAll(fz, locs)
	require.NoError(t, err)
	assert.Len(t, lowered, 1, "the never-used cluster location must be skipped, not lowered to an empty graph")
}

func TestStratifyAssignsEveryOperatorANonNegativeStratum(t *testing.T) {
	fz, ids := buildSimplePipeline(t)
	loc := findLocationByID(t, fz, ids[0])

	g, err := Lower(fz, loc)
	require.NoError(t, err)
	for _, op := range g.Ops() {
		assert.GreaterOrEqual(t, op.Subgraph, 0)
		sg := findSubgraph(g, op.Subgraph)
		require.NotNil(t, sg)
		assert.GreaterOrEqual(t, sg.Stratum, 0)
	}
}

func TestClassifyMarksBoundaryEdgesAsHandoff(t *testing.T) {
	g, locs, err := builder.Build(func(b *builder.Builder) {
		proc := b.Process()
		tick := b.Tick(proc)
		src := builder.SourceStream[int](b, proc, hydroir.Token{Rendered: "recv"})
		batched := builder.Batch(src, tick)
		negated := builder.SourceStream[int](b, proc, hydroir.Token{Rendered: "neg_recv"})
		negPersisted := builder.Persist(builder.Batch(negated, tick))
		diff := builder.Difference(batched, negPersisted)
		builder.ForEach(diff, hydroir.Token{Rendered: "|x| drop(x)"})
	})
	require.NoError(t, err)
	fz, err := finalize.Finalize(g)
	require.NoError(t, err)

	var procID int
	for _, loc := range locs.ConcreteLocations() {
		procID = loc.ID
	}
	loc := findLocationByID(t, fz, procID)
	lowered, err := Lower(fz, loc)
	require.NoError(t, err)

	var sawHandoff bool
	for _, e := range lowered.Edges {
		if e.Handoff {
			sawHandoff = true
		}
	}
	assert.True(t, sawHandoff, "the negated difference edge must become a handoff after classify")
}

func TestLowerSplitsNetworkAcrossSenderAndReceiverGraphs(t *testing.T) {
	g, locs, err := builder.Build(func(b *builder.Builder) {
		a := b.Process()
		bLoc := b.Process()
		src := builder.SourceIter[int](b, a, hydroir.Token{Rendered: "[1, 2, 3]"})
		mapped := builder.Map[int, int](src, hydroir.Token{Rendered: "|x| x + 1"})
		sent := builder.SendBincode(mapped, bLoc)
		builder.ForEach(sent, hydroir.Token{Rendered: "|x| drop(x)"})
	})
	require.NoError(t, err)
	fz, err := finalize.Finalize(g)
	require.NoError(t, err)

	var senderID, receiverID int
	for _, l := range fz.IR.Leaves() {
		receiverID = l.Meta.Location.ID
	}
	for _, n := range fz.IR.Nodes() {
		if n.Kind == hydroir.KindSource {
			senderID = n.Meta.Location.ID
		}
	}
	require.NotEqual(t, senderID, receiverID)

	senderLoc := findLocationByID(t, fz, senderID)
	senderGraph, err := Lower(fz, senderLoc)
	require.NoError(t, err)

	var senderHasMap, senderHasDestSink, senderHasForEach bool
	for _, op := range senderGraph.Ops() {
		switch op.Name {
		case OpMap:
			senderHasMap = true
		case OpDestSink:
			senderHasDestSink = true
		case OpForEach:
			senderHasForEach = true
		}
	}
	assert.True(t, senderHasMap, "sender graph must lower map + serialize")
	assert.True(t, senderHasDestSink, "sender graph must end in dest_sink")
	assert.False(t, senderHasForEach, "sender graph must not contain the receiver's for_each leaf")

	receiverLoc := findLocationByID(t, fz, receiverID)
	receiverGraph, err := Lower(fz, receiverLoc)
	require.NoError(t, err)

	var receiverHasSourceStream, receiverHasForEach, receiverHasSourceIter bool
	for _, op := range receiverGraph.Ops() {
		switch op.Name {
		case OpSourceStream:
			receiverHasSourceStream = true
		case OpForEach:
			receiverHasForEach = true
		case OpSourceIter:
			receiverHasSourceIter = true
		}
	}
	assert.True(t, receiverHasSourceStream, "receiver graph must read the Network boundary as a source_stream")
	assert.True(t, receiverHasForEach, "receiver graph must lower its own for_each leaf")
	assert.False(t, receiverHasSourceIter, "receiver graph must not re-lower the sender's source_iter")

	_, err = LowerAll(fz, locs)
	require.NoError(t, err)
}

// findLocationByID recovers the location.Location value for a known
// id by scanning finalize's underlying IR nodes/leaves, since the
// registry itself is not threaded through these tests' return values.
func findLocationByID(t *testing.T, fz *finalize.Graph, id int) location.Location {
	t.Helper()
	for _, n := range fz.IR.Nodes() {
		if n.Meta.Location.ID == id {
			return n.Meta.Location
		}
	}
	for _, l := range fz.IR.Leaves() {
		if l.Meta.Location.ID == id {
			return l.Meta.Location
		}
	}
	t.Fatalf("no node or leaf found at location id %d", id)
	return location.Location{}
}

func findSubgraph(g *Graph, id int) *Subgraph {
	for _, sg := range g.Subgraphs {
		if sg.ID == id {
			return sg
		}
	}
	return nil
}
