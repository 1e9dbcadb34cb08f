// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dfir

import (
	"github.com/jhellerstein/hydro-sub000/internal/finalize"
	"github.com/jhellerstein/hydro-sub000/internal/location"
	"github.com/jhellerstein/hydro-sub000/pkg/log"
)

// Lower runs all three lowering phases for one location against a
// finalized IR (§4.5): node -> operator translation, subgraph/stratum
// assignment, then pull/push classification and handoff insertion.
// Phase 4 (rendering) is a separate concern; see internal/render.
func Lower(fz *finalize.Graph, target location.Location) (*Graph, error) {
	g, err := TranslateNode(fz, target)
	if err != nil {
		return nil, err
	}
	if err := Stratify(g); err != nil {
		return nil, err
	}
	if err := Classify(g); err != nil {
		return nil, err
	}
	log.Debugf("dfir: lowered %s: %d operators, %d subgraphs", target, len(g.Operators), len(g.Subgraphs))
	return g, nil
}

// LowerAll lowers every concrete location the registry knows about,
// skipping any location with no reachable nodes or leaves (the
// builder API corresponds to compile_all() in §4.6).
func LowerAll(fz *finalize.Graph, locs *location.Registry) (map[int]*Graph, error) {
	out := make(map[int]*Graph)
	for _, loc := range locs.ConcreteLocations() {
		g, err := Lower(fz, loc)
		if err != nil {
			if _, unresolved := err.(*UnresolvedLocation); unresolved {
				continue
			}
			return nil, err
		}
		out[loc.ID] = g
	}
	return out, nil
}
