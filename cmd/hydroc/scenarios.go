// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"github.com/jhellerstein/hydro-sub000/internal/builder"
	"github.com/jhellerstein/hydro-sub000/internal/hydroir"
	"github.com/jhellerstein/hydro-sub000/internal/location"
)

// scenario is one of the seed test programs from spec.md §8, built
// against a fresh Builder so every run gets its own graph and
// location registry.
type scenario struct {
	name string
	doc  string
	fn   func(b *builder.Builder)
}

var scenarios = []scenario{
	{"s1", "source -> map -> for_each", scenarioS1},
	{"s2", "difference across strata", scenarioS2},
	{"s3", "keyed fold on unbounded stream via persist", scenarioS3},
	{"s4", "repeat_n(2) nested", scenarioS4},
	{"s5", "total order broadcast", scenarioS5},
	{"s6", "reduce with tick lifetime", scenarioS6},
}

func scenarioByName(name string) (scenario, bool) {
	for _, s := range scenarios {
		if s.name == name {
			return s, true
		}
	}
	return scenario{}, false
}

func scenarioS1(b *builder.Builder) {
	proc := b.Process()
	src := builder.SourceIter[int](b, proc, hydroir.Token{Rendered: "[1, 2, 3]"})
	squared := builder.Map[int, int](src, hydroir.Token{Rendered: "|x| x * x"})
	builder.ForEach(squared, hydroir.Token{Rendered: "|x| println!(\"{}\", x)"})
}

func scenarioS2(b *builder.Builder) {
	proc := b.Process()
	tick := b.Tick(proc)
	pos := builder.SourceStream[int](b, proc, hydroir.Token{Rendered: "pos_recv"})
	neg := builder.SourceStream[int](b, proc, hydroir.Token{Rendered: "neg_recv"})
	negBatched := builder.Batch(neg, tick)
	negPersisted := builder.Persist(negBatched)
	posBatched := builder.Batch(pos, tick)
	diff := builder.Difference(posBatched, negPersisted)
	builder.ForEach(diff, hydroir.Token{Rendered: "|x| println!(\"{}\", x)"})
}

func scenarioS3(b *builder.Builder) {
	proc := b.Process()
	items := builder.SourceStream[int](b, proc, hydroir.Token{Rendered: "items"})
	keyed := builder.Map[int, builder.Pair[int, int]](items, hydroir.Token{Rendered: "|v| (v, v)"})
	folded := builder.FoldKeyed[int, int, []int](keyed,
		hydroir.Token{Rendered: "Vec::new"},
		hydroir.Token{Rendered: "|acc, v| acc.push(v)"})
	builder.ForEach(folded, hydroir.Token{Rendered: "|kv| println!(\"{:?}\", kv)"})
}

func scenarioS4(b *builder.Builder) {
	proc := b.Process()
	tick := b.Tick(proc)
	users := builder.SourceIter[string](b, proc, hydroir.Token{Rendered: "[\"alice\", \"bob\"]"})
	messages := builder.SourceStream[int](b, proc, hydroir.Token{Rendered: "iter_batches_stream(0..9, 3)"})
	usersInTick := builder.Batch(users, tick)
	batched := builder.Batch(messages, tick)
	crossed := builder.CrossProduct[string, int](usersInTick, batched)
	repeated := builder.RepeatN(crossed, 2)
	inspected := builder.Inspect(repeated, hydroir.Token{Rendered: "|_| loop_iter_count()"})
	builder.ForEach(inspected, hydroir.Token{Rendered: "|pair| send(pair)"})
}

func scenarioS5(b *builder.Builder) {
	cluster := b.Cluster()
	proposer := b.Process()
	stream := builder.SourceIter[string](b, proposer, hydroir.Token{Rendered: "[\"a\", \"b\", \"c\"]"})
	broadcast := builder.BroadcastBincode(stream, cluster)
	builder.ForEach(broadcast, hydroir.Token{Rendered: "|x| println!(\"{}\", x)"})
}

func scenarioS6(b *builder.Builder) {
	proc := b.Process()
	tick := b.Tick(proc)
	items := builder.SourceStream[int](b, proc, hydroir.Token{Rendered: "items"})
	batched := builder.Batch(items, tick)
	sum := builder.Reduce(batched, hydroir.Token{Rendered: "|acc, n| *acc += n"})
	builder.ForEach(sum, hydroir.Token{Rendered: "|n| send(n)"})
}

// scenarioDefaultLocation is a debugging helper: it returns the first
// concrete location a scenario registered, or the zero Location when
// there is none. Nothing in the CLI calls it.
func scenarioDefaultLocation(locs *location.Registry) location.Location {
	concrete := locs.ConcreteLocations()
	if len(concrete) == 0 {
		return location.Location{}
	}
	return concrete[0]
}
