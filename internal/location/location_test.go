// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFreshLocationsGetDistinctIDs(t *testing.T) {
	r := New()
	p1 := r.FreshProcess()
	p2 := r.FreshProcess()
	c := r.FreshCluster()
	assert.NotEqual(t, p1.ID, p2.ID)
	assert.NotEqual(t, p1.ID, c.ID)
	assert.Equal(t, KindProcess, p1.Kind)
	assert.Equal(t, KindCluster, c.Kind)
}

func TestTickOfRejectsTickParent(t *testing.T) {
	r := New()
	proc := r.FreshProcess()
	tick := r.TickOf(proc)
	assert.Panics(t, func() { r.TickOf(tick) })
}

func TestAtomicOfRejectsNonTickParent(t *testing.T) {
	r := New()
	proc := r.FreshProcess()
	assert.Panics(t, func() { r.AtomicOf(proc) })
}

func TestRootOfWalksThroughTickAndAtomic(t *testing.T) {
	r := New()
	proc := r.FreshProcess()
	tick := r.TickOf(proc)
	atomic := r.AtomicOf(tick)
	assert.Equal(t, proc, r.RootOf(atomic))
	assert.Equal(t, proc, r.RootOf(tick))
	assert.Equal(t, proc, r.RootOf(proc))
}

func TestConcreteLocationsExcludesTickAndAtomic(t *testing.T) {
	r := New()
	proc := r.FreshProcess()
	cluster := r.FreshCluster()
	tick := r.TickOf(proc)
	r.AtomicOf(tick)

	concrete := r.ConcreteLocations()
	assert.ElementsMatch(t, []Location{proc, cluster}, concrete)
}

func TestExternalPortAllocatesStableIDsInOrder(t *testing.T) {
	r := New()
	ext := r.FreshExternal()
	p1 := r.ExternalPort(ext, DirectionIn)
	p2 := r.ExternalPort(ext, DirectionOut)
	assert.Equal(t, []Port{p1, p2}, r.Ports())
	assert.NotEqual(t, p1.ID, p2.ID)
}

func TestExternalPortRejectsNonExternal(t *testing.T) {
	r := New()
	proc := r.FreshProcess()
	assert.Panics(t, func() { r.ExternalPort(proc, DirectionIn) })
}

func TestEqual(t *testing.T) {
	r := New()
	p1 := r.FreshProcess()
	p2 := r.FreshProcess()
	assert.True(t, Equal(p1, p1))
	assert.False(t, Equal(p1, p2))
}
