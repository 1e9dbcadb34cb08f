// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package rewrite

import (
	"fmt"

	"github.com/jhellerstein/hydro-sub000/internal/hydroir"
	"github.com/jhellerstein/hydro-sub000/internal/location"
)

// Partitioning turns every Network edge targeting cluster into a
// partitioned send (§4.6): it sets the Network node's PartitionFunc to
// partitionFn, its codec to Bincode and its order to NoOrder, and
// lowering renders partitionFn into that edge's serialize/deserialize
// arguments instead of a plain broadcast. No upstream Map node is
// inserted: the destination computation exists only as the Network
// node's PartitionFunc. A Network node that already carries a
// PartitionFunc is left unchanged.
//
// partitionFn's Rendered text is expected to be a function of the
// element producing a destination index; this pass does not interpret
// it, only threads it through, mirroring how builder.SendPartitioned
// already carries an opaque Token.
func Partitioning(cluster location.Location, partitionFn hydroir.Token) Pass {
	return func(g *hydroir.Graph) error {
		if cluster.Kind != location.KindCluster {
			return fmt.Errorf("rewrite: partitioning: destination must be a Cluster, got %s", cluster.Kind)
		}
		for _, n := range g.Nodes() {
			if n.Kind != hydroir.KindNetwork {
				continue
			}
			if !location.Equal(n.ToLoc, cluster) {
				continue
			}
			if n.PartitionFunc != nil {
				continue // already partitioned
			}
			n.NetCodec = hydroir.CodecBincode
			n.PartitionFunc = &partitionFn
			n.Meta.Order = hydroir.NoOrder
		}
		return nil
	}
}
