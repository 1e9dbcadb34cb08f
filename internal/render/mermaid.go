// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package render implements §6.4's two diagram renderers over a
// lowered dfir.Graph: Mermaid flowcharts and Graphviz dot. Both are
// deterministic: the same graph always serializes to byte-identical
// output, since every collection this package walks is sorted before
// use.
//
// Grounded on the template-driven HTML rendering of web/templates and
// graph/generated.go's deterministic field-ordering discipline,
// adapted to a string builder instead of html/template since the
// output is a small structured DSL rather than markup.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jhellerstein/hydro-sub000/internal/dfir"
)

// ToMermaid renders g as a Mermaid flowchart (§6.4): one subgraph per
// dfir.Subgraph labeled with its stratum, operators classed
// pullClass/pushClass/otherClass, and negated/defer edges styled
// distinctly.
func ToMermaid(g *dfir.Graph) string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")

	subgraphs := sortedSubgraphs(g)
	for _, sg := range subgraphs {
		fmt.Fprintf(&b, "  subgraph sg_%d[\"sg_%d stratum %d\"]\n", sg.ID, sg.ID, sg.Stratum)
		ops := make([]*dfir.Operator, 0, len(sg.Ops))
		for _, id := range sg.Ops {
			ops = append(ops, g.Operators[id])
		}
		sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })
		for _, op := range ops {
			fmt.Fprintf(&b, "    %s[\"%s\"]\n", mermaidID(op.ID), mermaidLabel(op))
		}
		b.WriteString("  end\n")
	}

	for _, e := range sortedEdges(g) {
		style := "-->"
		if e.Handoff {
			style = "-. handoff .->"
		} else if e.Negated {
			style = "== neg ==>"
		}
		fmt.Fprintf(&b, "  %s %s %s\n", mermaidID(e.From), style, mermaidID(e.To))
	}

	for _, op := range sortedOps(g) {
		fmt.Fprintf(&b, "  class %s %s\n", mermaidID(op.ID), mermaidClass(op))
	}

	return b.String()
}

func mermaidID(id dfir.OpID) string { return fmt.Sprintf("op%d", id) }

func mermaidLabel(op *dfir.Operator) string {
	if len(op.Args) == 0 {
		return string(op.Name)
	}
	return fmt.Sprintf("%s(%s)", op.Name, strings.Join(op.Args, ", "))
}

func mermaidClass(op *dfir.Operator) string {
	switch op.Class() {
	case dfir.ClassPull:
		return "pullClass"
	case dfir.ClassPush:
		return "pushClass"
	default:
		return "otherClass"
	}
}

func sortedOps(g *dfir.Graph) []*dfir.Operator {
	ops := g.Ops()
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })
	return ops
}

func sortedSubgraphs(g *dfir.Graph) []*dfir.Subgraph {
	out := make([]*dfir.Subgraph, len(g.Subgraphs))
	copy(out, g.Subgraphs)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	for _, sg := range out {
		sort.Slice(sg.Ops, func(i, j int) bool { return sg.Ops[i] < sg.Ops[j] })
	}
	return out
}

func sortedEdges(g *dfir.Graph) []dfir.Edge {
	out := make([]dfir.Edge, len(g.Edges))
	copy(out, g.Edges)
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		if out[i].To != out[j].To {
			return out[i].To < out[j].To
		}
		return out[i].Port < out[j].Port
	})
	return out
}
