// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dfir is the lowering target of spec.md §3.4, §4.5: a
// stratified operator graph for one location, built by walking a
// finalized hydroir.Graph.
//
// Grounded on internal/graph's resolver-tree shape (one small file per
// concern: operator table, subgraph assignment, pull/push
// classification) adapted from GraphQL field resolution to IR
// lowering.
package dfir

import "github.com/jhellerstein/hydro-sub000/internal/hydroir"

// OpName is one of the named DFIR operators of §3.4.
type OpName string

const (
	OpSourceStream   OpName = "source_stream"
	OpSourceIter     OpName = "source_iter"
	OpSourceInterval OpName = "source_interval"
	OpMap            OpName = "map"
	OpFilter         OpName = "filter"
	OpFilterMap      OpName = "filter_map"
	OpFlatMap        OpName = "flat_map"
	OpInspect        OpName = "inspect"
	OpUnion          OpName = "union"
	OpCrossJoin      OpName = "cross_join"
	OpFoldKeyed      OpName = "fold_keyed"
	OpFold           OpName = "fold"
	OpReduce         OpName = "reduce"
	OpReduceKeyed    OpName = "reduce_keyed"
	OpSort           OpName = "sort"
	OpUnique         OpName = "unique"
	OpPersist        OpName = "persist"
	OpDifference     OpName = "difference"
	OpDeferTick      OpName = "defer_tick"
	OpEnumerate      OpName = "enumerate"
	OpBatch          OpName = "batch"
	OpPrefix         OpName = "prefix"
	OpRepeatN        OpName = "repeat_n"
	OpBeginLoop      OpName = "begin_loop"
	OpTee            OpName = "tee"
	OpForEach        OpName = "for_each"
	OpDestSink       OpName = "dest_sink"
	OpIdentity       OpName = "identity"
	OpHandoff        OpName = "handoff"
)

// Class is the pull/push/handoff classification of §4.5 Phase 3.
type Class int

const (
	ClassPull Class = iota
	ClassPush
	ClassHandoff
)

func (c Class) String() string {
	switch c {
	case ClassPull:
		return "pull"
	case ClassPush:
		return "push"
	default:
		return "handoff"
	}
}

// pullOps/pushOps classify the named operators per §4.5 Phase 3.
// addOp (see graph.go) only ever constructs operators from this file's
// constants; handoff is the one emitted operator in neither set, and
// ClassOf reports it as ClassHandoff. Any other name outside both sets
// classifies as pull.
var pullOps = map[OpName]bool{
	OpSourceStream: true, OpSourceIter: true, OpSourceInterval: true,
	OpMap: true, OpFilter: true, OpFilterMap: true, OpFlatMap: true,
	OpUnion: true, OpCrossJoin: true,
	OpFold: true, OpReduce: true, OpFoldKeyed: true, OpReduceKeyed: true,
	OpSort: true, OpUnique: true, OpPersist: true, OpDeferTick: true,
	OpDifference: true, OpIdentity: true, OpBatch: true, OpPrefix: true,
	OpRepeatN: true, OpEnumerate: true, OpInspect: true,
}

var pushOps = map[OpName]bool{
	OpTee: true, OpForEach: true, OpDestSink: true,
}

// ClassOf returns an operator's pull/push class. inspectOnPushSide lets
// the caller say which side an Inspect sits on, since §4.5 lists
// Inspect under both depending on position.
func ClassOf(name OpName, inspectOnPushSide bool) Class {
	if name == OpInspect && inspectOnPushSide {
		return ClassPush
	}
	if pushOps[name] {
		return ClassPush
	}
	if name == OpHandoff {
		return ClassHandoff
	}
	return ClassPull
}

// terminal reports whether an operator can only appear once its input
// is fully materialized — the "negated edge" operators of §4.5 Phase
// 2 that force a stratum boundary on their input.
func terminal(name OpName) bool {
	switch name {
	case OpDifference, OpSort, OpUnique, OpFold, OpReduce:
		return true
	default:
		return false
	}
}

// OpID identifies an operator within one location's DFIR graph.
type OpID int

// Operator is one node of the lowered graph: a name plus an opaque
// argument list rendered from the IR's Tokens (§3.4: "argument list of
// opaque code fragments").
type Operator struct {
	ID   OpID
	Name OpName
	Args []string

	// Source is the originating IR node/leaf, kept for diagnostics and
	// for the renderer's "negated/defer edges" labeling.
	SourceNode hydroir.NodeID
	SourceLeaf hydroir.LeafID

	Subgraph int
	Stratum  int

	class Class
}

// Class returns op's pull/push/handoff classification, valid only
// after Classify has run.
func (op *Operator) Class() Class { return op.class }
