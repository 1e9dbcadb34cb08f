// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package rewrite

import "github.com/jhellerstein/hydro-sub000/internal/hydroir"

// PropertiesOptimize fuses adjacent pure Map/Filter chains into a
// single node (§4.6, §8 property: "adjacent maps fuse"). A Map reading
// directly from another Map (or a Filter reading directly from a
// Filter) on the same location collapses into one node whose Func
// composes both, stopping as soon as it finds a node with more than
// one recorded use — fusing across a Tee would duplicate work, so
// g.UseCount reports that case and the pass leaves it alone.
func PropertiesOptimize(g *hydroir.Graph) error {
	for iterations, changed := 0, true; changed && iterations < len(g.Nodes())+1; iterations++ {
		changed = false
		for _, n := range g.Nodes() {
			if tryFuseMaps(g, n) || tryFuseFilters(g, n) {
				changed = true
			}
		}
	}
	return nil
}

func tryFuseMaps(g *hydroir.Graph, outer *hydroir.Node) bool {
	if outer.Kind != hydroir.KindMap {
		return false
	}
	inner := g.Node(outer.In1)
	if inner.Kind != hydroir.KindMap || g.UseCount(inner.ID) > 1 {
		return false
	}
	fused := composeTokens(inner.Func, outer.Func)
	outer.Func = &fused
	outer.In1 = inner.In1
	return true
}

func tryFuseFilters(g *hydroir.Graph, outer *hydroir.Node) bool {
	if outer.Kind != hydroir.KindFilter {
		return false
	}
	inner := g.Node(outer.In1)
	if inner.Kind != hydroir.KindFilter || g.UseCount(inner.ID) > 1 {
		return false
	}
	fused := composePredicates(inner.Func, outer.Func)
	outer.Func = &fused
	outer.In1 = inner.In1
	return true
}

// composeTokens renders "|x| outer(inner(x))" without evaluating
// either side; the lowering stage is what actually runs the fused
// closure's source text.
func composeTokens(inner, outer *hydroir.Token) hydroir.Token {
	return hydroir.Token{Rendered: "|__x| (" + outer.Rendered + ")((" + inner.Rendered + ")(__x))"}
}

func composePredicates(inner, outer *hydroir.Token) hydroir.Token {
	return hydroir.Token{Rendered: "|__x| (" + inner.Rendered + ")(__x) && (" + outer.Rendered + ")(__x)"}
}
