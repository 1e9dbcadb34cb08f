// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhellerstein/hydro-sub000/internal/hydroir"
)

func TestBuildReturnsAFreshGraphAndRegistry(t *testing.T) {
	g, locs, err := Build(func(b *Builder) {
		proc := b.Process()
		src := SourceIter[int](b, proc, hydroir.Token{Rendered: "[1]"})
		ForEach(src, hydroir.Token{Rendered: "|x| drop(x)"})
	})
	require.NoError(t, err)
	assert.NotNil(t, g)
	assert.Len(t, locs.ConcreteLocations(), 1)
}

func TestBuildRecoversConstructionErrorIntoAnError(t *testing.T) {
	_, _, err := Build(func(b *Builder) {
		p1 := b.Process()
		p2 := b.Process()
		a := SourceIter[int](b, p1, hydroir.Token{Rendered: "[1]"})
		c := SourceIter[int](b, p2, hydroir.Token{Rendered: "[2]"})
		Chain(a, c) // different locations: must abort
	})
	require.Error(t, err)
}

func TestMapPreservesLocationBoundednessOrder(t *testing.T) {
	_, _, err := Build(func(b *Builder) {
		proc := b.Process()
		src := SourceIter[int](b, proc, hydroir.Token{Rendered: "[1, 2]"})
		mapped := Map[int, int](src, hydroir.Token{Rendered: "|x| x + 1"})
		assert.Equal(t, src.Location(), mapped.Location())
		assert.Equal(t, src.Bounded(), mapped.Bounded())
		assert.Equal(t, src.Order(), mapped.Order())
		ForEach(mapped, hydroir.Token{Rendered: "|x| drop(x)"})
	})
	require.NoError(t, err)
}

func TestConsumingAStreamTwiceInsertsATee(t *testing.T) {
	var teed bool
	_, _, err := Build(func(b *Builder) {
		proc := b.Process()
		src := SourceIter[int](b, proc, hydroir.Token{Rendered: "[1, 2, 3]"})
		doubled := Map[int, int](src, hydroir.Token{Rendered: "|x| x * 2"})
		ForEach(doubled, hydroir.Token{Rendered: "|x| drop(x)"})
		ForEach(doubled, hydroir.Token{Rendered: "|x| drop(x)"})
		teed = b.Graph.UseCount(doubled.ID()) >= 2
	})
	require.NoError(t, err)
	assert.True(t, teed, "consuming a stream twice must be visible via UseCount")
}

func TestCrossProductRequiresBoundedInputs(t *testing.T) {
	_, _, err := Build(func(b *Builder) {
		proc := b.Process()
		bounded := SourceIter[int](b, proc, hydroir.Token{Rendered: "[1]"})
		unbounded := SourceStream[int](b, proc, hydroir.Token{Rendered: "recv"})
		CrossProduct[int, int](unbounded, bounded)
	})
	require.Error(t, err)
}

func TestDifferenceRequiresSameLocation(t *testing.T) {
	_, _, err := Build(func(b *Builder) {
		p1 := b.Process()
		p2 := b.Process()
		pos := SourceIter[int](b, p1, hydroir.Token{Rendered: "[1]"})
		neg := SourceIter[int](b, p2, hydroir.Token{Rendered: "[2]"})
		Difference(pos, neg)
	})
	require.Error(t, err)
}

func TestDifferenceAtSameLocationSucceeds(t *testing.T) {
	_, _, err := Build(func(b *Builder) {
		proc := b.Process()
		tick := b.Tick(proc)
		pos := SourceStream[int](b, proc, hydroir.Token{Rendered: "pos_recv"})
		neg := SourceStream[int](b, proc, hydroir.Token{Rendered: "neg_recv"})
		negPersisted := Persist(Batch(neg, tick))
		diff := Difference(Batch(pos, tick), negPersisted)
		assert.Equal(t, tick, diff.Location())
		ForEach(diff, hydroir.Token{Rendered: "|x| drop(x)"})
	})
	require.NoError(t, err)
}

func TestEnumerateRequiresTotalOrder(t *testing.T) {
	_, _, err := Build(func(b *Builder) {
		proc := b.Process()
		a := SourceIter[int](b, proc, hydroir.Token{Rendered: "[1]"})
		bStream := SourceIter[int](b, proc, hydroir.Token{Rendered: "[2]"})
		interleaved := InterleavedFrom(a, bStream)
		Enumerate(interleaved)
	})
	require.Error(t, err)
}

func TestForwardRefUnclosedFailsValidation(t *testing.T) {
	_, _, err := Build(func(b *Builder) {
		proc := b.Process()
		ForwardRef[int](b, proc)
		// Deliberately never call sink.Complete.
	})
	require.Error(t, err)
}

func TestForwardRefClosedSucceeds(t *testing.T) {
	_, _, err := Build(func(b *Builder) {
		proc := b.Process()
		loopVal, sink := ForwardRef[int](b, proc)
		mapped := Map[int, int](loopVal, hydroir.Token{Rendered: "|x| x"})
		sink.Complete(mapped)
		ForEach(loopVal, hydroir.Token{Rendered: "|x| drop(x)"})
	})
	require.NoError(t, err)
}

func TestTickCycleRequiresDeferTickProducer(t *testing.T) {
	_, _, err := Build(func(b *Builder) {
		proc := b.Process()
		tick := b.Tick(proc)
		loopVal, sink := TickCycle[int](b, tick)
		// Completing with a non-DeferTick value must abort.
		sink.Complete(loopVal)
	})
	require.Error(t, err)
}
