// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withSavedKeys(t *testing.T) {
	t.Helper()
	saved := Keys
	t.Cleanup(func() { Keys = saved })
}

func TestInitMissingDefaultPathIsNotAnError(t *testing.T) {
	withSavedKeys(t)
	err := Init(filepath.Join(t.TempDir(), "does-not-exist.json"), true)
	require.NoError(t, err)
}

func TestInitMissingExplicitPathIsAnError(t *testing.T) {
	withSavedKeys(t)
	err := Init(filepath.Join(t.TempDir(), "does-not-exist.json"), false)
	require.Error(t, err)
}

func TestInitOverwritesKeysFromFile(t *testing.T) {
	withSavedKeys(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"addr": ":9999", "counter-sample-hz": 5}`), 0o644))

	require.NoError(t, Init(path, false))
	assert.Equal(t, ":9999", Keys.Addr)
	assert.Equal(t, 5.0, Keys.CounterSampleHz)
}

func TestInitRejectsUnknownFields(t *testing.T) {
	withSavedKeys(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not-a-real-field": true}`), 0o644))

	err := Init(path, false)
	require.Error(t, err)
}
