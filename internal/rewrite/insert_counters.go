// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package rewrite

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jhellerstein/hydro-sub000/internal/hydroir"
	"github.com/jhellerstein/hydro-sub000/pkg/log"
)

// counterEnv is the evaluation environment a tag_filter expression
// sees for each edge, grounded on the tagger package's pattern of
// building a map[string]any "env" and running an expr.Compile'd
// predicate against it per candidate.
type counterEnv struct {
	Kind     string
	Tag      string
	Location string
	Bounded  string
	Order    string
}

func toEnv(e counterEnv) map[string]any {
	return map[string]any{
		"Kind":     e.Kind,
		"Tag":      e.Tag,
		"Location": e.Location,
		"Bounded":  e.Bounded,
		"Order":    e.Order,
	}
}

// Counters registers one Prometheus CounterVec, labelled by tag, and
// exposes the per-tag sampling limiter insert_counters uses. The pass
// increments a tag's counter once for each node it wraps in a Counter
// node, throttled by that limiter. The lowering engine emits a Counter
// node as an inspect("counter:<tag>") operator and does not reference
// this metric.
type Counters struct {
	registry *prometheus.Registry
	vec      *prometheus.CounterVec
	limiters map[string]*rate.Limiter
	sampleHz float64
}

// NewCounters registers the hydro_node_cardinality_total counter
// against registry (or a fresh private registry when nil) and sets the
// per-tag sampling rate used to throttle how often insert_counters
// increments it.
func NewCounters(registry *prometheus.Registry, sampleHz float64) *Counters {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hydro_node_cardinality_total",
		Help: "Elements observed flowing through a tagged IR edge.",
	}, []string{"tag"})
	registry.MustRegister(vec)
	return &Counters{
		registry: registry,
		vec:      vec,
		limiters: make(map[string]*rate.Limiter),
		sampleHz: sampleHz,
	}
}

// LimiterFor returns (creating if needed) the rate limiter gating a
// tag's instrumentation.
func (c *Counters) LimiterFor(tag string) *rate.Limiter {
	if l, ok := c.limiters[tag]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(c.sampleHz), 1)
	c.limiters[tag] = l
	return l
}

// Vec exposes the underlying CounterVec.
func (c *Counters) Vec() *prometheus.CounterVec { return c.vec }

// report increments tag's counter for one node insert_counters just
// tagged, gated by LimiterFor(tag) so a tag_filter matching many nodes
// at once doesn't spam the metric faster than sampleHz. A nil
// Counters is a no-op, matching InsertCounters' "counters may be nil"
// contract.
func (c *Counters) report(tag string) {
	if c == nil {
		return
	}
	if !c.LimiterFor(tag).Allow() {
		return
	}
	c.vec.WithLabelValues(tag).Inc()
}

// InsertCounters inserts Counter{tag} nodes on every edge whose
// upstream node matches tagFilter, an expr-lang boolean expression
// evaluated against that node's Kind/Tag/Location/Bounded/Order
// (§4.6). The pass is idempotent: a node that already has a Counter
// immediately downstream is left alone. counters may be nil, in which
// case nodes are still tagged but nothing is reported to Prometheus
// (used by tests that only care about the resulting IR shape).
func InsertCounters(counters *Counters, tagFilter string, tag string) Pass {
	return func(g *hydroir.Graph) error {
		program, err := expr.Compile(tagFilter, expr.AsBool())
		if err != nil {
			return fmt.Errorf("rewrite: insert_counters: compiling tag_filter %q: %w", tagFilter, err)
		}
		return runInsertCounters(g, program, tag, counters)
	}
}

func runInsertCounters(g *hydroir.Graph, program *vm.Program, tag string, counters *Counters) error {
	alreadyCounted := make(map[hydroir.NodeID]bool)
	for _, n := range g.Nodes() {
		if n.Kind == hydroir.KindCounter {
			alreadyCounted[n.In1] = true
		}
	}

	candidates := g.Nodes()
	for _, n := range candidates {
		if n.Kind == hydroir.KindCounter || n.Kind == hydroir.KindPlaceholder {
			continue
		}
		if alreadyCounted[n.ID] {
			continue
		}
		env := toEnv(counterEnv{
			Kind:     n.Kind.String(),
			Tag:      n.Meta.Tag,
			Location: n.Meta.Location.String(),
			Bounded:  n.Meta.Bounded.String(),
			Order:    n.Meta.Order.String(),
		})
		match, err := expr.Run(program, env)
		if err != nil {
			return fmt.Errorf("rewrite: insert_counters: evaluating tag_filter on node #%d: %w", n.ID, err)
		}
		if !match.(bool) {
			continue
		}
		log.Debugf("rewrite: insert_counters tagging node #%d (%s) with %q", n.ID, n.Kind, tag)
		insertCounterAfter(g, n, tag)
		counters.report(tag)
	}
	return nil
}

// insertCounterAfter splices a Counter node between n and its current
// consumers, preserving n's id as the thing downstream consumers
// already reference: the Counter takes over n's id, and n's original
// content moves to a fresh node that the Counter now reads from — the
// same identity-preserving swap persist_pullup uses.
func insertCounterAfter(g *hydroir.Graph, n *hydroir.Node, tag string) {
	moved := *n
	newID := g.Add(moved)
	g.Node(newID).ID = newID
	*n = hydroir.Node{
		ID:         n.ID,
		Kind:       hydroir.KindCounter,
		In1:        newID,
		CounterTag: tag,
		Meta:       moved.Meta,
	}
}
