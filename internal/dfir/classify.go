// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dfir

import "fmt"

// Classify runs §4.5 Phase 3: marks every boundary edge as a handoff,
// classifies each operator pull or push, and checks the resulting
// invariants. It must run after Stratify.
func Classify(g *Graph) error {
	for i := range g.Edges {
		e := &g.Edges[i]
		if isBoundary(g, *e) {
			e.Handoff = true
		}
	}

	for _, op := range g.Operators {
		pushSide := op.Name == OpInspect && hasPushDownstream(g, op.ID)
		op.class = ClassOf(op.Name, pushSide)
	}

	if err := checkNoPushBeforePull(g); err != nil {
		return err
	}
	if err := checkHandoffsAtBoundaries(g); err != nil {
		return err
	}
	return checkTeeFanout(g)
}

// hasPushDownstream reports whether any direct (non-handoff) successor
// of id is a push operator, used only to decide which side an Inspect
// sits on (§4.5 Phase 3).
func hasPushDownstream(g *Graph, id OpID) bool {
	for _, e := range g.edgesFrom(id) {
		if e.Handoff {
			continue
		}
		if pushOps[g.Operators[e.To].Name] {
			return true
		}
	}
	return false
}

// checkNoPushBeforePull enforces "no subgraph contains a push operator
// upstream of a pull operator" by walking direct (non-handoff) edges
// within each subgraph.
func checkNoPushBeforePull(g *Graph) error {
	for _, e := range g.Edges {
		if e.Handoff {
			continue
		}
		from, to := g.Operators[e.From], g.Operators[e.To]
		if from.class == ClassPush && to.class == ClassPull {
			return fmt.Errorf("dfir: push operator #%d (%s) feeds pull operator #%d (%s) without a handoff",
				from.ID, from.Name, to.ID, to.Name)
		}
	}
	return nil
}

// checkHandoffsAtBoundaries enforces "every stratum boundary is
// materialized as a handoff": any edge crossing a stratum is, by
// construction, exactly the set isBoundary already marked Handoff, so
// this re-derives the crossing set independently from stratum numbers
// as a cross-check against Stratify's bookkeeping.
func checkHandoffsAtBoundaries(g *Graph) error {
	for _, e := range g.Edges {
		from, to := g.Operators[e.From], g.Operators[e.To]
		if from.Stratum != to.Stratum && !e.Handoff {
			return fmt.Errorf("dfir: edge #%d -> #%d crosses stratum %d -> %d without a handoff",
				from.ID, to.ID, from.Stratum, to.Stratum)
		}
	}
	return nil
}

// checkTeeFanout enforces "every tee yields >= 2 outgoing edges".
func checkTeeFanout(g *Graph) error {
	for _, op := range g.Operators {
		if op.Name != OpTee {
			continue
		}
		if len(g.edgesFrom(op.ID)) < 2 {
			return fmt.Errorf("dfir: tee #%d has fewer than 2 outgoing edges", op.ID)
		}
	}
	return nil
}
