// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package render

import (
	"fmt"
	"strings"

	"github.com/jhellerstein/hydro-sub000/internal/dfir"
)

// ToDot renders g as Graphviz dot (§6.4): invhouse/house/parallelogram
// shapes for pull/push/handoff, one coloured cluster per subgraph.
func ToDot(g *dfir.Graph) string {
	var b strings.Builder
	b.WriteString("digraph dfir {\n  rankdir=TB;\n")

	palette := []string{"#eef3fb", "#fdf3e7", "#eef9ee", "#fbeef0", "#f3eefb"}
	for i, sg := range sortedSubgraphs(g) {
		fmt.Fprintf(&b, "  subgraph cluster_%d {\n", sg.ID)
		fmt.Fprintf(&b, "    label=\"sg_%d stratum %d\";\n", sg.ID, sg.Stratum)
		fmt.Fprintf(&b, "    style=filled; color=\"%s\";\n", palette[i%len(palette)])
		for _, id := range sg.Ops {
			op := g.Operators[id]
			fmt.Fprintf(&b, "    %s [shape=%s, label=%q];\n", dotID(op.ID), dotShape(op), dotLabel(op))
		}
		b.WriteString("  }\n")
	}

	for _, e := range sortedEdges(g) {
		attrs := ""
		switch {
		case e.Handoff:
			attrs = " [style=dashed, label=\"handoff\"]"
		case e.Negated:
			attrs = " [style=bold, label=\"neg\"]"
		}
		fmt.Fprintf(&b, "  %s -> %s%s;\n", dotID(e.From), dotID(e.To), attrs)
	}

	b.WriteString("}\n")
	return b.String()
}

func dotID(id dfir.OpID) string { return fmt.Sprintf("op%d", id) }

func dotLabel(op *dfir.Operator) string {
	if len(op.Args) == 0 {
		return string(op.Name)
	}
	return fmt.Sprintf("%s(%s)", op.Name, strings.Join(op.Args, ", "))
}

func dotShape(op *dfir.Operator) string {
	switch op.Class() {
	case dfir.ClassPull:
		return "invhouse"
	case dfir.ClassPush:
		return "house"
	default:
		return "parallelogram"
	}
}
