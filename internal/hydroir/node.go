// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hydroir is the IR graph of spec.md §3.3: the arena of
// HydroNode values and HydroLeaf effects, shared-subgraph construction
// via Tee, cycle construction via CycleSource/CycleSink, and
// structural traversal with memoization.
//
// Grounded on the tree/arena discipline of pkg/metricstore/level.go:
// a single lock-guarded owner of all storage, double-checked creation,
// stable identity that survives in-place rewrites.
package hydroir

import "github.com/jhellerstein/hydro-sub000/internal/location"

// NodeID identifies a HydroNode within a Graph. Zero is never a valid
// id; it is reserved to mean "no input" for leaves/nodes with a single
// optional input slot.
type NodeID int

// LeafID identifies a HydroLeaf within a Graph.
type LeafID int

// Kind tags the variant of a HydroNode.
type Kind int

const (
	KindPlaceholder Kind = iota
	KindSource
	KindCycleSource
	KindPersist
	KindUnpersist
	KindDelta
	KindChain
	KindCrossProduct
	KindCrossSingleton
	KindResolveFutures
	KindResolveFuturesOrdered
	KindTee
	KindMap
	KindFlatMap
	KindFilter
	KindFilterMap
	KindDeferTick
	KindEnumerate
	KindInspect
	KindUnique
	KindSort
	KindFold
	KindFoldKeyed
	KindReduce
	KindReduceKeyed
	KindScan
	KindDifference
	KindNetwork
	KindCounter
	KindBeginLoop
	KindBatch
	KindRepeatN
	KindAllTicks
)

func (k Kind) String() string {
	names := [...]string{
		"Placeholder", "Source", "CycleSource", "Persist", "Unpersist", "Delta",
		"Chain", "CrossProduct", "CrossSingleton", "ResolveFutures", "ResolveFuturesOrdered",
		"Tee", "Map", "FlatMap", "Filter", "FilterMap", "DeferTick", "Enumerate",
		"Inspect", "Unique", "Sort", "Fold", "FoldKeyed", "Reduce", "ReduceKeyed",
		"Scan", "Difference", "Network", "Counter", "BeginLoop", "Batch", "RepeatN", "AllTicks",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "Unknown"
	}
	return names[k]
}

// SourceKind distinguishes the three flavors of Source nodes.
type SourceKind int

const (
	SourceStream SourceKind = iota
	SourceIter
	SourceInterval
)

// Boundedness mirrors spec.md §3.2's B type parameter.
type Boundedness int

const (
	Bounded Boundedness = iota
	Unbounded
)

func (b Boundedness) String() string {
	if b == Bounded {
		return "Bounded"
	}
	return "Unbounded"
}

// Ordering mirrors spec.md §3.2's O type parameter.
type Ordering int

const (
	TotalOrder Ordering = iota
	NoOrder
	AnonymousOrder
)

func (o Ordering) String() string {
	switch o {
	case TotalOrder:
		return "TotalOrder"
	case NoOrder:
		return "NoOrder"
	default:
		return "AnonymousOrder"
	}
}

// Codec names the Network wire contract of §6.3.
type Codec int

const (
	CodecBincode Codec = iota
	CodecTaggedBincode
	CodecBytes
)

func (c Codec) String() string {
	switch c {
	case CodecBincode:
		return "Bincode"
	case CodecTaggedBincode:
		return "TaggedBincode"
	default:
		return "Bytes"
	}
}

// Token is an opaque, identity-compared user-code fragment — a
// closure, sink handle, or source channel that has already been
// staged by the (out-of-scope) surface macro layer. The IR never
// executes a Token; it only threads it through to the lowered DFIR
// operator argument list. Two tokens are == iff they are the same
// fragment, which is all the cache-keying in §5 requires.
type Token struct {
	// Rendered is the opaque source text the lowering emits verbatim
	// as the DFIR operator argument (e.g. "|x| x * x").
	Rendered string
}

// Metadata is the optional per-node annotation described in §3.3:
// location, boundedness, ordering, element type (kept as an opaque
// stringified form since this module never executes user types), and
// an optional tracing tag.
type Metadata struct {
	Location    location.Location
	Bounded     Boundedness
	Order       Ordering
	ElementType string
	Tag         string
}

// Node is a HydroNode: a vertex producing a value (stream, singleton,
// or optional). Which fields are meaningful depends on Kind; see the
// per-kind accessors in builder for the typed view. Node is never
// mutated in place except by rewrite passes operating through Graph,
// which preserves ID across a rewrite so other references stay valid.
type Node struct {
	ID   NodeID
	Kind Kind
	Meta Metadata

	// Up to two data inputs; most kinds use only In1.
	In1, In2 NodeID

	// Kind-specific payload.
	SourceKind SourceKind
	CycleID    int    // CycleSource
	Func       *Token // Map, FlatMap, Filter, FilterMap, Inspect, Scan
	Init       *Token // Fold, FoldKeyed, Scan
	Acc        *Token // Fold, FoldKeyed, Reduce, ReduceKeyed, Scan
	N          int    // RepeatN

	// Network payload.
	ToLoc location.Location
	NetCodec Codec
	PartitionFunc *Token // send_partitioned

	// Tee payload: the shared cell. Two Node values with the same
	// Cell pointer are two readers of one shared computation; the
	// cell is compared by identity, never by content.
	Cell *TeeCell

	// Counter payload.
	CounterTag string
}

// TeeCell is the reference-counted cell a Tee node wraps. Only Tee
// construction (see Graph.Tee) creates one; all sharing in the IR is
// one level deep — a TeeCell's Child is never itself a Tee pointing
// back through this cell.
type TeeCell struct {
	Child   NodeID
	Readers int
}

// LeafKind tags the variant of a HydroLeaf.
type LeafKind int

const (
	LeafForEach LeafKind = iota
	LeafDestSink
	LeafCycleSink
)

func (k LeafKind) String() string {
	switch k {
	case LeafForEach:
		return "ForEach"
	case LeafDestSink:
		return "DestSink"
	default:
		return "CycleSink"
	}
}

// Leaf is a HydroLeaf: a sink, cycle sink, or external effect that
// consumes a Node but produces nothing further in the graph.
type Leaf struct {
	ID   LeafID
	Kind LeafKind
	Meta Metadata

	Input NodeID

	Func    *Token // ForEach
	Sink    *Token // DestSink
	CycleID int    // CycleSink
}
