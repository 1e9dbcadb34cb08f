// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package buildcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeKeyIsDeterministic(t *testing.T) {
	k1 := ComputeKey([]string{"a", "b"}, map[string]string{"opt": "true"})
	k2 := ComputeKey([]string{"a", "b"}, map[string]string{"opt": "true"})
	assert.Equal(t, k1, k2)
}

func TestComputeKeyDiffersOnFragmentOrFlagChange(t *testing.T) {
	base := ComputeKey([]string{"a", "b"}, map[string]string{"opt": "true"})
	diffFragment := ComputeKey([]string{"a", "c"}, map[string]string{"opt": "true"})
	diffFlag := ComputeKey([]string{"a", "b"}, map[string]string{"opt": "false"})
	assert.NotEqual(t, base, diffFragment)
	assert.NotEqual(t, base, diffFlag)
}

func TestManifestEncodeDecodeRoundTrip(t *testing.T) {
	m := Manifest{
		Key:           "abc123",
		FragmentCount: 3,
		FeatureFlags:  map[string]string{"tier": "gold"},
		GraphDigest:   "digest-xyz",
		CreatedAtUnix: 1700000000,
	}
	encoded, err := EncodeManifest(m)
	require.NoError(t, err)

	got, err := DecodeManifest(encoded)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestGetOrBuildMissesThenHitsWithoutRebuilding(t *testing.T) {
	cache, err := Open(context.Background(), Options{Dir: t.TempDir()})
	require.NoError(t, err)
	defer cache.Close()

	key := ComputeKey([]string{"frag-1"}, nil)
	builds := 0
	build := func() ([]byte, Manifest, error) {
		builds++
		return []byte("artifact-bytes"), Manifest{Key: string(key), CreatedAtUnix: 1}, nil
	}

	first, err := cache.GetOrBuild(context.Background(), key, build)
	require.NoError(t, err)
	assert.Equal(t, []byte("artifact-bytes"), first)
	assert.Equal(t, 1, builds)

	second, err := cache.GetOrBuild(context.Background(), key, build)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, builds, "a second GetOrBuild for the same key must not invoke build again")
}

func TestGetOrBuildSurfacesBuildError(t *testing.T) {
	cache, err := Open(context.Background(), Options{Dir: t.TempDir()})
	require.NoError(t, err)
	defer cache.Close()

	key := ComputeKey([]string{"frag-err"}, nil)
	_, err = cache.GetOrBuild(context.Background(), key, func() ([]byte, Manifest, error) {
		return nil, Manifest{}, assert.AnError
	})
	require.Error(t, err)
}
