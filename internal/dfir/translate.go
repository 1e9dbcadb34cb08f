// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dfir

import (
	"fmt"

	"github.com/jhellerstein/hydro-sub000/internal/finalize"
	"github.com/jhellerstein/hydro-sub000/internal/hydroir"
	"github.com/jhellerstein/hydro-sub000/internal/location"
)

// UnresolvedLocation is a lowering error (§7): the requested location
// id names nothing any node or leaf in the finalized IR is placed at.
type UnresolvedLocation struct {
	LocationID int
}

func (e *UnresolvedLocation) Error() string {
	return fmt.Sprintf("dfir: location id %d has no nodes or leaves in this finalized graph", e.LocationID)
}

// translator carries the per-location state Phase 1 accumulates:
// which IR node maps to which DFIR operator, and the cycle handoffs
// still waiting to be paired.
type translator struct {
	g      *Graph
	ir     *hydroir.Graph
	target location.Location

	nodeOp map[hydroir.NodeID]OpID
	// cellOp maps a shared TeeCell to the single DFIR tee() operator
	// emitted for it: the IR may mint several Tee NodeIDs against one
	// cell (one per additional reader past the second), but the
	// lowered graph has exactly one fanout operator per cell, with one
	// outgoing edge per distinct consumer.
	cellOp map[*hydroir.TeeCell]OpID
	// cycleHandoff maps a cycle id to the handoff operator id created
	// at its CycleSink, so the matching CycleSource can read from it.
	cycleHandoff map[int]OpID
}

// TranslateNode walks the finalized IR emitting every node and leaf
// whose location equals target (or that terminates at target via a
// Network node), and returns the resulting DFIR graph (§4.5 Phase 1).
// Stratum/subgraph assignment and handoff insertion (Phases 2-3) are
// done by Stratify and Classify; callers normally use Lower instead of
// calling this directly.
func TranslateNode(fz *finalize.Graph, target location.Location) (*Graph, error) {
	ir := fz.IR
	t := &translator{
		g:            NewGraph(target.String()),
		ir:           ir,
		target:       target,
		nodeOp:       make(map[hydroir.NodeID]OpID),
		cellOp:       make(map[*hydroir.TeeCell]OpID),
		cycleHandoff: make(map[int]OpID),
	}

	found := false
	for _, n := range ir.Nodes() {
		if !location.Equal(n.Meta.Location, target) {
			continue
		}
		found = true
	}
	for _, l := range ir.Leaves() {
		if location.Equal(l.Meta.Location, target) {
			found = true
		}
	}
	if !found {
		return nil, &UnresolvedLocation{LocationID: target.ID}
	}

	// Sender side of every Network boundary originating at target: a
	// Network node's own location is its destination (§4.4), so nothing
	// downstream at the sending location ever reads it and the leaf
	// walk below would never reach it. Root it explicitly so
	// map(serialize) -> dest_sink still gets emitted into the sender's
	// own graph (§4.5 Phase 1's Network row).
	for _, n := range ir.Nodes() {
		if n.Kind != hydroir.KindNetwork {
			continue
		}
		src := ir.Node(n.In1)
		if src == nil || !location.Equal(src.Meta.Location, target) {
			continue
		}
		if _, err := t.emitNetworkSender(n); err != nil {
			return nil, err
		}
	}

	for _, l := range ir.Leaves() {
		if !location.Equal(l.Meta.Location, target) {
			continue
		}
		if err := t.emitLeaf(l); err != nil {
			return nil, err
		}
	}
	return t.g, nil
}

// emitNode translates n (memoized on IR node id) and returns the
// operator id producing its value, recursing into its inputs first.
func (t *translator) emitNode(n *hydroir.Node) (OpID, error) {
	if id, ok := t.nodeOp[n.ID]; ok {
		return id, nil
	}
	id, err := t.translateOne(n)
	if err != nil {
		return 0, err
	}
	t.nodeOp[n.ID] = id
	return id, nil
}

func (t *translator) input(id hydroir.NodeID) (OpID, error) {
	return t.emitNode(t.ir.Node(id))
}

func (t *translator) translateOne(n *hydroir.Node) (OpID, error) {
	switch n.Kind {
	case hydroir.KindSource:
		return t.emitSource(n)
	case hydroir.KindCycleSource:
		return t.emitCycleSource(n)
	case hydroir.KindMap:
		return t.emitUnary(n, OpMap, tokenArg(n.Func))
	case hydroir.KindFilter:
		return t.emitUnary(n, OpFilter, tokenArg(n.Func))
	case hydroir.KindFilterMap:
		return t.emitUnary(n, OpFilterMap, tokenArg(n.Func))
	case hydroir.KindFlatMap:
		return t.emitUnary(n, OpFlatMap, tokenArg(n.Func))
	case hydroir.KindInspect:
		return t.emitUnary(n, OpInspect, tokenArg(n.Func))
	case hydroir.KindEnumerate:
		return t.emitUnary(n, OpEnumerate, "'tick")
	case hydroir.KindUnique:
		return t.emitUnary(n, OpUnique, "")
	case hydroir.KindSort:
		return t.emitUnary(n, OpSort, "")
	case hydroir.KindPersist:
		return t.emitUnary(n, OpPersist, "'static")
	case hydroir.KindDeferTick:
		return t.emitUnary(n, OpDeferTick, "")
	case hydroir.KindBatch:
		return t.emitUnary(n, OpPrefix, "")
	case hydroir.KindAllTicks:
		return t.emitUnary(n, OpIdentity, "'static")
	case hydroir.KindRepeatN:
		return t.emitUnary(n, OpRepeatN, fmt.Sprintf("%d", n.N))
	case hydroir.KindDelta:
		return t.emitDelta(n)
	case hydroir.KindDifference:
		return t.emitDifference(n)
	case hydroir.KindChain:
		return t.emitBinary(n, OpUnion, "")
	case hydroir.KindCrossProduct:
		return t.emitBinary(n, OpCrossJoin, "")
	case hydroir.KindCrossSingleton:
		return t.emitBinary(n, OpCrossJoin, "")
	case hydroir.KindFold:
		return t.emitUnary(n, OpFold, foldArgs(n))
	case hydroir.KindFoldKeyed:
		return t.emitUnary(n, OpFoldKeyed, foldArgs(n))
	case hydroir.KindReduce:
		return t.emitUnary(n, OpReduce, tokenArg(n.Acc))
	case hydroir.KindReduceKeyed:
		return t.emitUnary(n, OpReduceKeyed, tokenArg(n.Acc))
	case hydroir.KindTee:
		return t.emitTee(n)
	case hydroir.KindNetwork:
		return t.emitNetwork(n)
	case hydroir.KindCounter:
		return t.emitUnary(n, OpInspect, fmt.Sprintf("counter:%s", n.CounterTag))
	default:
		return 0, fmt.Errorf("dfir: translate: unsupported node kind %s on node #%d", n.Kind, n.ID)
	}
}

func (t *translator) emitSource(n *hydroir.Node) (OpID, error) {
	var name OpName
	switch n.SourceKind {
	case hydroir.SourceStream:
		name = OpSourceStream
	case hydroir.SourceIter:
		name = OpSourceIter
	default:
		name = OpSourceInterval
	}
	return t.g.addOp(name, argsOrEmpty(tokenArg(n.Func))), nil
}

// emitCycleSource reads from the handoff its matching CycleSink
// registered. Finalization already guarantees exactly one source per
// sink id, but translation order is driven by leaf reachability, so
// the sink may not have run yet; in that case the handoff is created
// here and the sink (emitted later, in emitLeaf) reuses it.
func (t *translator) emitCycleSource(n *hydroir.Node) (OpID, error) {
	if id, ok := t.cycleHandoff[n.CycleID]; ok {
		return id, nil
	}
	id := t.g.addOp(OpHandoff, []string{fmt.Sprintf("cycle:%d", n.CycleID)})
	t.cycleHandoff[n.CycleID] = id
	return id, nil
}

func (t *translator) emitUnary(n *hydroir.Node, name OpName, arg string) (OpID, error) {
	in, err := t.input(n.In1)
	if err != nil {
		return 0, err
	}
	id := t.g.addOp(name, argsOrEmpty(arg))
	t.g.addEdge(in, id, terminal(name))
	return id, nil
}

func (t *translator) emitBinary(n *hydroir.Node, name OpName, arg string) (OpID, error) {
	left, err := t.input(n.In1)
	if err != nil {
		return 0, err
	}
	right, err := t.input(n.In2)
	if err != nil {
		return 0, err
	}
	id := t.g.addOp(name, argsOrEmpty(arg))
	t.g.addEdge(left, id, false)
	t.g.addEdge(right, id, false)
	return id, nil
}

// emitDelta renders persist::<'static>() -> defer_tick() -> difference
// against the un-deferred input, per §4.5's Phase 1 table entry for
// Delta (persist_pullup normally collapses Delta(Persist(x)) before
// lowering ever sees it; this path only fires for a Delta the rewrite
// pipeline was not asked to run first).
func (t *translator) emitDelta(n *hydroir.Node) (OpID, error) {
	in, err := t.input(n.In1)
	if err != nil {
		return 0, err
	}
	persist := t.g.addOp(OpPersist, []string{"'static"})
	t.g.addEdge(in, persist, false)
	deferred := t.g.addOp(OpDeferTick, nil)
	t.g.addEdge(persist, deferred, false)
	diff := t.g.addOp(OpDifference, nil)
	t.g.addEdge(in, diff, false)
	t.g.addEdge(deferred, diff, true)
	return diff, nil
}

// emitDifference renders a direct difference(pos, neg) op, marking the
// neg edge negated so Stratify places it in a later stratum than pos
// (§4.5 Phase 2, §8 scenario S2: "neg is marked as negated to force a
// stratum boundary").
func (t *translator) emitDifference(n *hydroir.Node) (OpID, error) {
	pos, err := t.input(n.In1)
	if err != nil {
		return 0, err
	}
	neg, err := t.input(n.In2)
	if err != nil {
		return 0, err
	}
	id := t.g.addOp(OpDifference, nil)
	t.g.addEdge(pos, id, false)
	t.g.addEdge(neg, id, true)
	return id, nil
}

// emitTee emits exactly one fanout operator per shared TeeCell,
// regardless of how many Tee NodeIDs the IR minted against that cell;
// every distinct consumer still gets its own outgoing edge because
// each consumer's own translateOne call adds that edge independently.
func (t *translator) emitTee(n *hydroir.Node) (OpID, error) {
	if id, ok := t.cellOp[n.Cell]; ok {
		return id, nil
	}
	child, err := t.input(n.Cell.Child)
	if err != nil {
		return 0, err
	}
	id := t.g.addOp(OpTee, nil)
	t.g.addEdge(child, id, false)
	t.cellOp[n.Cell] = id
	return id, nil
}

// emitNetwork renders the receiving side of a Network boundary:
// source_stream(ch_in) -> map(deserialize). It deliberately does not
// recurse into the Network node's own input (n.In1), which lives at
// the sending location and is lowered independently by
// emitNetworkSender when that location's own graph is built — after
// finalization no cross-location edge may appear within one location's
// DFIR graph (§4.4), so the two sides of one Network node are always
// emitted into two different Graphs.
func (t *translator) emitNetwork(n *hydroir.Node) (OpID, error) {
	codecArg := n.NetCodec.String()
	if n.PartitionFunc != nil {
		codecArg = fmt.Sprintf("%s,partition=%s", codecArg, n.PartitionFunc.Rendered)
	}
	fromLoc := "?"
	if src := t.ir.Node(n.In1); src != nil {
		fromLoc = src.Meta.Location.String()
	}
	ch := t.g.addOp(OpSourceStream, []string{fmt.Sprintf("from=%s", fromLoc)})
	deser := t.g.addOp(OpMap, []string{fmt.Sprintf("deserialize<%s>", codecArg)})
	t.g.addEdge(ch, deser, false)
	return deser, nil
}

// emitNetworkSender renders the sending side of a Network boundary:
// map(serialize) -> dest_sink(ch_out), rooted directly from
// TranslateNode rather than discovered via leaf reachability, since a
// Network node's single consumer lives at n.ToLoc (§4.4) and so never
// pulls this chain in through the sending location's own leaves.
func (t *translator) emitNetworkSender(n *hydroir.Node) (OpID, error) {
	if id, ok := t.nodeOp[n.ID]; ok {
		return id, nil
	}
	in, err := t.input(n.In1)
	if err != nil {
		return 0, err
	}
	codecArg := n.NetCodec.String()
	if n.PartitionFunc != nil {
		codecArg = fmt.Sprintf("%s,partition=%s", codecArg, n.PartitionFunc.Rendered)
	}
	ser := t.g.addOp(OpMap, []string{fmt.Sprintf("serialize<%s>", codecArg)})
	t.g.addEdge(in, ser, false)
	sink := t.g.addOp(OpDestSink, []string{fmt.Sprintf("to=%s", n.ToLoc)})
	t.g.addEdge(ser, sink, false)
	t.nodeOp[n.ID] = sink
	return sink, nil
}

func (t *translator) emitLeaf(l *hydroir.Leaf) error {
	in, err := t.input(l.Input)
	if err != nil {
		return err
	}
	switch l.Kind {
	case hydroir.LeafForEach:
		id := t.g.addOp(OpForEach, argsOrEmpty(tokenArg(l.Func)))
		t.g.addEdge(in, id, false)
	case hydroir.LeafDestSink:
		id := t.g.addOp(OpDestSink, argsOrEmpty(tokenArg(l.Sink)))
		t.g.addEdge(in, id, false)
	case hydroir.LeafCycleSink:
		id, ok := t.cycleHandoff[l.CycleID]
		if !ok {
			id = t.g.addOp(OpHandoff, []string{fmt.Sprintf("cycle:%d", l.CycleID)})
			t.cycleHandoff[l.CycleID] = id
		}
		t.g.addEdge(in, id, false)
	}
	return nil
}

func tokenArg(tok *hydroir.Token) string {
	if tok == nil {
		return ""
	}
	return tok.Rendered
}

func argsOrEmpty(arg string) []string {
	if arg == "" {
		return nil
	}
	return []string{arg}
}

func foldArgs(n *hydroir.Node) string {
	init, acc := "", ""
	if n.Init != nil {
		init = n.Init.Rendered
	}
	if n.Acc != nil {
		acc = n.Acc.Rendered
	}
	return fmt.Sprintf("%s,%s", init, acc)
}
