// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package buildcache

import (
	"fmt"

	"github.com/linkedin/goavro/v2"
)

// manifestSchema describes the self-contained record stored alongside
// every cache entry: the fragment/feature-flag inputs that produced
// the key, plus a digest of the DFIR graph the build yielded, so a
// cache hit can be audited without re-running the build.
const manifestSchema = `{
  "type": "record",
  "name": "BuildManifest",
  "fields": [
    {"name": "key", "type": "string"},
    {"name": "fragmentCount", "type": "int"},
    {"name": "featureFlags", "type": {"type": "map", "values": "string"}},
    {"name": "graphDigest", "type": "string"},
    {"name": "createdAtUnix", "type": "long"}
  ]
}`

var manifestCodec *goavro.Codec

func init() {
	c, err := goavro.NewCodec(manifestSchema)
	if err != nil {
		panic(fmt.Sprintf("buildcache: invalid manifest schema: %v", err))
	}
	manifestCodec = c
}

// Manifest is the decoded form of a cache entry's stored record.
type Manifest struct {
	Key           string
	FragmentCount int32
	FeatureFlags  map[string]string
	GraphDigest   string
	CreatedAtUnix int64
}

// EncodeManifest serializes m to Avro binary using manifestCodec.
func EncodeManifest(m Manifest) ([]byte, error) {
	native := map[string]interface{}{
		"key":           m.Key,
		"fragmentCount": m.FragmentCount,
		"featureFlags":  toAvroMap(m.FeatureFlags),
		"graphDigest":   m.GraphDigest,
		"createdAtUnix": m.CreatedAtUnix,
	}
	return manifestCodec.BinaryFromNative(nil, native)
}

// DecodeManifest parses an Avro-encoded manifest record.
func DecodeManifest(data []byte) (Manifest, error) {
	native, _, err := manifestCodec.NativeFromBinary(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("buildcache: decode manifest: %w", err)
	}
	rec := native.(map[string]interface{})
	flags := make(map[string]string)
	for k, v := range rec["featureFlags"].(map[string]interface{}) {
		flags[k] = v.(string)
	}
	return Manifest{
		Key:           rec["key"].(string),
		FragmentCount: rec["fragmentCount"].(int32),
		FeatureFlags:  flags,
		GraphDigest:   rec["graphDigest"].(string),
		CreatedAtUnix: rec["createdAtUnix"].(int64),
	}, nil
}

func toAvroMap(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
