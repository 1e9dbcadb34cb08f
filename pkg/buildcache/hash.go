// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package buildcache implements the content-addressed build-artifact
// cache of spec.md §5: two builds with identical source fragments and
// identical feature flags resolve to the same cache entry. Key
// computation is deterministic by construction (sorted map keys,
// stable fragment ordering); everything downstream of ComputeKey only
// ever sees that already-canonical key.
package buildcache

import (
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// Key is a content hash identifying one build-artifact cache entry.
type Key string

// ComputeKey hashes fragments (already in the caller's stable order —
// typically the IR's node emission order) together with featureFlags,
// whose keys are sorted before hashing so map iteration order never
// leaks into the digest (§5: "deterministic code generation: sort map
// keys, stable numbering, stable feature selection").
func ComputeKey(fragments []string, featureFlags map[string]string) Key {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only errors on an oversized key, which we
		// never pass; a failure here is a build of this module against
		// a broken crypto/blake2b, not a runtime condition to recover.
		panic(fmt.Sprintf("buildcache: blake2b.New256: %v", err))
	}
	for _, frag := range fragments {
		h.Write([]byte{0})
		h.Write([]byte(frag))
	}
	keys := make([]string, 0, len(featureFlags))
	for k := range featureFlags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte{1})
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(featureFlags[k]))
	}
	return Key(fmt.Sprintf("%x", h.Sum(nil)))
}
