// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package rewrite

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhellerstein/hydro-sub000/internal/hydroir"
	"github.com/jhellerstein/hydro-sub000/internal/location"
)

func mapNode(g *hydroir.Graph, in hydroir.NodeID, loc location.Location, rendered string) hydroir.NodeID {
	f := hydroir.Token{Rendered: rendered}
	return g.Add(hydroir.Node{Kind: hydroir.KindMap, In1: in, Func: &f, Meta: hydroir.Metadata{Location: loc}})
}

func TestPersistPullupMovesPersistAboveMap(t *testing.T) {
	g := hydroir.NewGraph()
	loc := location.New().FreshProcess()

	src := g.Add(hydroir.Node{Kind: hydroir.KindSource, Meta: hydroir.Metadata{Location: loc}})
	mapped := mapNode(g, src, loc, "|x| x + 1")
	persist := g.Add(hydroir.Node{Kind: hydroir.KindPersist, In1: mapped, Meta: hydroir.Metadata{Location: loc}})

	require.NoError(t, PersistPullup(g))

	// persist's id now carries the Map, reading a fresh inner Persist.
	top := g.Node(persist)
	assert.Equal(t, hydroir.KindMap, top.Kind)
	inner := g.Node(top.In1)
	assert.Equal(t, hydroir.KindPersist, inner.Kind)
	assert.Equal(t, src, inner.In1)
}

func TestPersistPullupCollapsesAdjacentPersist(t *testing.T) {
	g := hydroir.NewGraph()
	loc := location.New().FreshProcess()

	src := g.Add(hydroir.Node{Kind: hydroir.KindSource, Meta: hydroir.Metadata{Location: loc}})
	p1 := g.Add(hydroir.Node{Kind: hydroir.KindPersist, In1: src, Meta: hydroir.Metadata{Location: loc}})
	p2 := g.Add(hydroir.Node{Kind: hydroir.KindPersist, In1: p1, Meta: hydroir.Metadata{Location: loc}})

	require.NoError(t, PersistPullup(g))

	top := g.Node(p2)
	assert.Equal(t, hydroir.KindPersist, top.Kind)
	assert.Equal(t, src, top.In1, "two adjacent Persist nodes collapse to one reading the original source")
}

func TestPersistPullupCollapsesDeltaOfPersist(t *testing.T) {
	g := hydroir.NewGraph()
	loc := location.New().FreshProcess()

	src := g.Add(hydroir.Node{Kind: hydroir.KindSource, Meta: hydroir.Metadata{Location: loc}})
	persist := g.Add(hydroir.Node{Kind: hydroir.KindPersist, In1: src, Meta: hydroir.Metadata{Location: loc}})
	delta := g.Add(hydroir.Node{Kind: hydroir.KindDelta, In1: persist, Meta: hydroir.Metadata{Location: loc}})

	require.NoError(t, PersistPullup(g))

	top := g.Node(delta)
	assert.Equal(t, hydroir.KindSource, top.Kind, "Delta(Persist(x)) collapses to x")
}

func TestPersistPullupIsIdempotent(t *testing.T) {
	g := hydroir.NewGraph()
	loc := location.New().FreshProcess()
	src := g.Add(hydroir.Node{Kind: hydroir.KindSource, Meta: hydroir.Metadata{Location: loc}})
	mapped := mapNode(g, src, loc, "|x| x + 1")
	g.Add(hydroir.Node{Kind: hydroir.KindPersist, In1: mapped, Meta: hydroir.Metadata{Location: loc}})

	require.NoError(t, PersistPullup(g))
	snapshot := make(map[hydroir.NodeID]hydroir.Kind)
	for _, n := range g.Nodes() {
		snapshot[n.ID] = n.Kind
	}

	require.NoError(t, PersistPullup(g))
	for _, n := range g.Nodes() {
		assert.Equal(t, snapshot[n.ID], n.Kind, "a second pass must not change an already-pulled-up graph")
	}
}

func TestPropertiesOptimizeFusesAdjacentMaps(t *testing.T) {
	g := hydroir.NewGraph()
	loc := location.New().FreshProcess()

	src := g.Add(hydroir.Node{Kind: hydroir.KindSource, Meta: hydroir.Metadata{Location: loc}})
	inner := mapNode(g, src, loc, "|x| x + 1")
	outer := mapNode(g, inner, loc, "|x| x * 2")

	require.NoError(t, PropertiesOptimize(g))

	fused := g.Node(outer)
	assert.Equal(t, src, fused.In1, "fused Map reads directly from the original source")
}

func TestPropertiesOptimizeDoesNotFuseAcrossATee(t *testing.T) {
	g := hydroir.NewGraph()
	loc := location.New().FreshProcess()

	src := g.Add(hydroir.Node{Kind: hydroir.KindSource, Meta: hydroir.Metadata{Location: loc}})
	inner := mapNode(g, src, loc, "|x| x + 1")

	// Two independent consumers of inner bump its UseCount past 1.
	outer := mapNode(g, inner, loc, "|x| x * 2")
	g.AddLeaf(hydroir.Leaf{Kind: hydroir.LeafForEach, Input: inner, Meta: hydroir.Metadata{Location: loc}})
	g.Consume(inner, func(hydroir.NodeID) {})
	g.Consume(inner, func(hydroir.NodeID) {})

	require.NoError(t, PropertiesOptimize(g))

	stillChained := g.Node(outer)
	assert.Equal(t, inner, stillChained.In1, "a multiply-used Map must not be fused away")
}

func TestInsertCountersIsIdempotent(t *testing.T) {
	g := hydroir.NewGraph()
	loc := location.New().FreshProcess()
	g.Add(hydroir.Node{Kind: hydroir.KindSource, Meta: hydroir.Metadata{Location: loc, Tag: "ingest"}})

	pass := InsertCounters(nil, `Tag == "ingest"`, "ingest-count")
	require.NoError(t, pass(g))
	firstCount := countCounters(g)
	assert.Equal(t, 1, firstCount)

	require.NoError(t, pass(g))
	assert.Equal(t, firstCount, countCounters(g), "a node already wrapped in a Counter must not get a second one")
}

func countCounters(g *hydroir.Graph) int {
	n := 0
	for _, node := range g.Nodes() {
		if node.Kind == hydroir.KindCounter {
			n++
		}
	}
	return n
}

func TestInsertCountersIncrementsTheRegisteredMetric(t *testing.T) {
	g := hydroir.NewGraph()
	loc := location.New().FreshProcess()
	g.Add(hydroir.Node{Kind: hydroir.KindSource, Meta: hydroir.Metadata{Location: loc, Tag: "ingest"}})

	registry := prometheus.NewRegistry()
	counters := NewCounters(registry, 1000)
	pass := InsertCounters(counters, `Tag == "ingest"`, "ingest-count")
	require.NoError(t, pass(g))

	var m dto.Metric
	require.NoError(t, counters.Vec().WithLabelValues("ingest-count").Write(&m))
	assert.Equal(t, float64(1), m.GetCounter().GetValue(), "insert_counters must Inc() the metric it registered, not just register it")
}

func TestStandardPipelineRunsBothPasses(t *testing.T) {
	g := hydroir.NewGraph()
	loc := location.New().FreshProcess()
	src := g.Add(hydroir.Node{Kind: hydroir.KindSource, Meta: hydroir.Metadata{Location: loc}})
	inner := mapNode(g, src, loc, "|x| x + 1")
	outer := mapNode(g, inner, loc, "|x| x * 2")
	persistID := g.Add(hydroir.Node{Kind: hydroir.KindPersist, In1: outer, Meta: hydroir.Metadata{Location: loc}})

	require.NoError(t, Standard().Run(g))

	// persist_pullup walks Persist above both maps and fuses them onto
	// persistID's id, leaving a single Persist reading src underneath.
	fused := g.Node(persistID)
	assert.Equal(t, hydroir.KindMap, fused.Kind)
	base := g.Node(fused.In1)
	assert.Equal(t, hydroir.KindPersist, base.Kind)
	assert.Equal(t, src, base.In1)
}
