// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rewrite implements the IR rewrite passes of spec.md §4.6:
// persist_pullup, insert_counters, decoupling, partitioning,
// properties_optimize, and the composition of a default "standard"
// pipeline. Each pass walks a *hydroir.Graph in place.
//
// Grounded on internal/taskManager's one-service-per-file shape and
// its Register*/Start composition style, adapted from scheduled
// maintenance jobs to one-shot graph rewrites run before finalization.
package rewrite

import (
	"github.com/jhellerstein/hydro-sub000/internal/hydroir"
	"github.com/jhellerstein/hydro-sub000/pkg/log"
)

// Pass is a single rewrite operating on a mutable IR graph.
type Pass func(g *hydroir.Graph) error

// Pipeline composes passes in the order given; the framework runs them
// in any order the user asks for, so composition here is literally
// sequential application. Each pass iterates the arena itself; there
// is no shared Walk or memoization between passes.
type Pipeline struct {
	passes []Pass
	names  []string
}

// NewPipeline returns an empty pass pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Add appends a named pass.
func (p *Pipeline) Add(name string, pass Pass) *Pipeline {
	p.names = append(p.names, name)
	p.passes = append(p.passes, pass)
	return p
}

// Run executes every pass in order, stopping at the first error.
func (p *Pipeline) Run(g *hydroir.Graph) error {
	for i, pass := range p.passes {
		log.Debugf("rewrite: running pass %q", p.names[i])
		if err := pass(g); err != nil {
			return err
		}
	}
	return nil
}

// Standard returns the framework's default pipeline (§4.6):
// persist_pullup followed by properties_optimize, applied implicitly
// once before finalization unless the caller opts out.
func Standard() *Pipeline {
	return NewPipeline().
		Add("persist_pullup", PersistPullup).
		Add("properties_optimize", PropertiesOptimize)
}
