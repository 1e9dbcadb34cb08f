// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jhellerstein/hydro-sub000/internal/rewrite"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// pipelineSchema constrains a user-supplied rewrite-pipeline
// descriptor to the passes LoadPipeline knows how to build,
// grounded the same way the teacher validates its own config.json
// against configSchema before decoding it.
const pipelineSchema = `
{
  "type": "object",
  "properties": {
    "passes": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {
            "type": "string",
            "enum": ["persist_pullup", "properties_optimize", "insert_counters"]
          },
          "tagFilter": {"type": "string"},
          "tag": {"type": "string"}
        },
        "required": ["name"]
      }
    }
  },
  "required": ["passes"]
}`

// PassSpec is one entry in a rewrite-pipeline descriptor.
type PassSpec struct {
	Name      string `json:"name"`
	TagFilter string `json:"tagFilter,omitempty"`
	Tag       string `json:"tag,omitempty"`
}

// PipelineDescriptor names and orders the rewrite passes a deployment
// wants to run in place of rewrite.Standard(), per SPEC_FULL's
// pipeline-config-validation supplement.
type PipelineDescriptor struct {
	Passes []PassSpec `json:"passes"`
}

// ValidatePipelineJSON validates raw against pipelineSchema, the same
// two-step compile-then-validate sequence as the teacher's
// config.Validate.
func ValidatePipelineJSON(raw []byte) error {
	sch, err := jsonschema.CompileString("pipeline.json", pipelineSchema)
	if err != nil {
		return fmt.Errorf("config: compile pipeline schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("config: parse pipeline descriptor: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("config: invalid pipeline descriptor: %w", err)
	}
	return nil
}

// LoadPipeline reads, validates, and compiles a PipelineDescriptor
// from path into a *rewrite.Pipeline. counters may be nil if the
// descriptor never references insert_counters.
func LoadPipeline(path string, counters *rewrite.Counters) (*rewrite.Pipeline, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ValidatePipelineJSON(raw); err != nil {
		return nil, err
	}
	var desc PipelineDescriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil, fmt.Errorf("config: decode pipeline descriptor: %w", err)
	}

	p := rewrite.NewPipeline()
	for _, spec := range desc.Passes {
		switch spec.Name {
		case "persist_pullup":
			p.Add("persist_pullup", rewrite.PersistPullup)
		case "properties_optimize":
			p.Add("properties_optimize", rewrite.PropertiesOptimize)
		case "insert_counters":
			if counters == nil {
				return nil, fmt.Errorf("config: pipeline descriptor uses insert_counters but no prometheus registry was configured")
			}
			p.Add("insert_counters", rewrite.InsertCounters(counters, spec.TagFilter, spec.Tag))
		default:
			return nil, fmt.Errorf("config: unknown pass %q", spec.Name)
		}
	}
	return p, nil
}

// NewCounters is a thin convenience wrapper so cmd/hydroc doesn't need
// to import internal/rewrite directly just to build a registry-backed
// Counters for LoadPipeline.
func NewCounters(registry *prometheus.Registry, sampleHz float64) *rewrite.Counters {
	return rewrite.NewCounters(registry, sampleHz)
}
