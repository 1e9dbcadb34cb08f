// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhellerstein/hydro-sub000/internal/builder"
	"github.com/jhellerstein/hydro-sub000/internal/dfir"
	"github.com/jhellerstein/hydro-sub000/internal/finalize"
	"github.com/jhellerstein/hydro-sub000/internal/hydroir"
	"github.com/jhellerstein/hydro-sub000/internal/location"
)

func lowerSamplePipeline(t *testing.T) *dfir.Graph {
	t.Helper()
	g, locs, err := builder.Build(func(b *builder.Builder) {
		proc := b.Process()
		src := builder.SourceIter[int](b, proc, hydroir.Token{Rendered: "[1, 2, 3]"})
		filtered := builder.Filter(src, hydroir.Token{Rendered: "|x| x > 1"})
		mapped := builder.Map[int, int](filtered, hydroir.Token{Rendered: "|x| x * 10"})
		builder.ForEach(mapped, hydroir.Token{Rendered: "|x| drop(x)"})
	})
	require.NoError(t, err)
	fz, err := finalize.Finalize(g)
	require.NoError(t, err)

	var target location.Location
	for _, n := range fz.IR.Nodes() {
		target = n.Meta.Location
		break
	}
	_ = locs
	lowered, err := dfir.Lower(fz, target)
	require.NoError(t, err)
	return lowered
}

func TestToMermaidIsDeterministicAcrossRepeatedCalls(t *testing.T) {
	g := lowerSamplePipeline(t)
	first := ToMermaid(g)
	second := ToMermaid(g)
	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "flowchart TD\n"))
}

func TestToDotIsDeterministicAcrossRepeatedCalls(t *testing.T) {
	g := lowerSamplePipeline(t)
	first := ToDot(g)
	second := ToDot(g)
	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "digraph dfir {"))
}

func TestToMermaidEmitsEveryOperator(t *testing.T) {
	g := lowerSamplePipeline(t)
	out := ToMermaid(g)
	for _, op := range g.Ops() {
		assert.Contains(t, out, mermaidID(op.ID))
	}
}

func TestToDotStylesHandoffEdgesDifferently(t *testing.T) {
	g := lowerSamplePipeline(t)
	out := ToDot(g)
	hasHandoff := false
	for _, e := range g.Edges {
		if e.Handoff {
			hasHandoff = true
		}
	}
	if hasHandoff {
		assert.Contains(t, out, "handoff")
	}
}
