// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePipelineJSONAcceptsKnownPasses(t *testing.T) {
	raw := []byte(`{"passes": [{"name": "persist_pullup"}, {"name": "properties_optimize"}]}`)
	assert.NoError(t, ValidatePipelineJSON(raw))
}

func TestValidatePipelineJSONRejectsUnknownPass(t *testing.T) {
	raw := []byte(`{"passes": [{"name": "not_a_real_pass"}]}`)
	assert.Error(t, ValidatePipelineJSON(raw))
}

func TestValidatePipelineJSONRequiresPassesField(t *testing.T) {
	raw := []byte(`{}`)
	assert.Error(t, ValidatePipelineJSON(raw))
}

func TestLoadPipelineBuildsRunnablePipeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"passes": [{"name": "persist_pullup"}]}`), 0o644))

	p, err := LoadPipeline(path, nil)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestLoadPipelineRequiresCountersForInsertCounters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"passes": [{"name": "insert_counters", "tagFilter": "Tag == \"x\"", "tag": "x"}]}`), 0o644))

	_, err := LoadPipeline(path, nil)
	require.Error(t, err)

	counters := NewCounters(prometheus.NewRegistry(), 1.0)
	p, err := LoadPipeline(path, counters)
	require.NoError(t, err)
	assert.NotNil(t, p)
}
