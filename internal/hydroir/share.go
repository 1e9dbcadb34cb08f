// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package hydroir

// addLocked and nodeLocked are the lock-free cores of Add/Node/Tee,
// used by Consume below which already holds g.mu for the duration of
// a whole reuse decision.
func (g *Graph) addLocked(n Node) NodeID {
	g.nextNodeID++
	n.ID = g.nextNodeID
	g.nodes[n.ID] = &n
	if n.Kind == KindCycleSource {
		g.cycleSources[n.CycleID] = append(g.cycleSources[n.CycleID], n.ID)
	}
	return n.ID
}

func (g *Graph) nodeLocked(id NodeID) *Node {
	n, ok := g.nodes[id]
	if !ok {
		panic("hydroir: unknown NodeID")
	}
	return n
}

func (g *Graph) teeLocked(child NodeID) NodeID {
	childNode := g.nodeLocked(child)
	cell := &TeeCell{Child: child, Readers: 1}
	return g.addLocked(Node{Kind: KindTee, Meta: childNode.Meta, Cell: cell})
}

func (g *Graph) teeFromLocked(cell *TeeCell) NodeID {
	cell.Readers++
	childNode := g.nodeLocked(cell.Child)
	return g.addLocked(Node{Kind: KindTee, Meta: childNode.Meta, Cell: cell})
}

// Consume records that the node identified by id is about to become
// the input of a new node/leaf, and returns the NodeID the caller
// should actually wire in as that input.
//
// patch is a closure the caller provides that knows how to overwrite
// its own not-yet-returned input field with a replacement NodeID; it
// is only invoked if a later call to Consume for the same id needs to
// retroactively redirect this (the first) consumer through a Tee.
//
// This realizes §4.2's "the builder transparently inserts a Tee at
// first second use": the first Consume(id, ...) call hands back id
// itself and just remembers patch. The second call creates the
// TeeCell, rewrites the first consumer in place via the remembered
// patch (so it now reads the Tee instead of the bare node — the
// earlier node is otherwise untouched), and hands the Tee's id to both
// the first (patched) and second consumer. Third and later calls add
// another reader to the same TeeCell.
func (g *Graph) Consume(id NodeID, patch func(NodeID)) NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.useCount[id]++
	switch g.useCount[id] {
	case 1:
		g.firstUse[id] = patch
		return id
	case 2:
		teeID := g.teeLocked(id)
		g.nodeLocked(teeID).Cell.Readers++ // the patched first consumer reads it too
		if first := g.firstUse[id]; first != nil {
			first(teeID)
		}
		delete(g.firstUse, id)
		g.sharedTee[id] = teeID
		return teeID
	default:
		teeID := g.sharedTee[id]
		teeNode := g.nodeLocked(teeID)
		return g.teeFromLocked(teeNode.Cell)
	}
}
