// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config holds cmd/hydroc's program configuration: a
// package-level Keys struct populated from a JSON file with sane
// defaults, the same way the teacher's internal/config package
// exposes a package-level Keys schema.ProgramConfig.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jhellerstein/hydro-sub000/pkg/log"
)

// ProgramConfig is the format of cmd/hydroc's configuration file.
type ProgramConfig struct {
	// Addr is where the deployment-collaborator HTTP surface (§6.2)
	// listens, e.g. ":8080".
	Addr string `json:"addr"`

	// CacheDir is pkg/buildcache's on-disk index + artifact directory.
	CacheDir string `json:"cache-dir"`

	// CacheHotBytes bounds the in-process hot layer (§5).
	CacheHotBytes int `json:"cache-hot-bytes"`

	// CacheS3Bucket, if non-empty, mirrors the cache to S3.
	CacheS3Bucket string `json:"cache-s3-bucket"`

	// CacheGCMaxAgeHours evicts cache entries idle longer than this.
	CacheGCMaxAgeHours int `json:"cache-gc-max-age-hours"`

	// CounterSampleHz throttles insert_counters' rate.Limiter per tag.
	CounterSampleHz float64 `json:"counter-sample-hz"`

	// Pipeline, if non-empty, is the path to a JSON rewrite-pipeline
	// descriptor validated against pipelineSchema; an empty value
	// means use rewrite.Standard().
	Pipeline string `json:"pipeline"`
}

// Keys holds cmd/hydroc's active configuration, seeded with defaults
// and overwritten field-by-field by Init from a JSON file.
var Keys = ProgramConfig{
	Addr:               ":8080",
	CacheDir:           "./var/hydro-cache",
	CacheHotBytes:      64 << 20,
	CacheGCMaxAgeHours: 24 * 7,
	CounterSampleHz:    1.0,
}

// Init overwrites Keys with the contents of flagConfigFile, if it
// exists. A missing file at the default path is not an error; an
// explicitly-requested missing file is.
func Init(flagConfigFile string, isDefaultPath bool) error {
	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		if os.IsNotExist(err) && isDefaultPath {
			return nil
		}
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return fmt.Errorf("config: decode %s: %w", flagConfigFile, err)
	}
	log.Infof("config: loaded %s", flagConfigFile)
	return nil
}
