// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package buildcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jhellerstein/hydro-sub000/pkg/log"
)

// Cache is the content-addressed build-artifact cache of §5: an
// in-process hot layer in front of a SQLite index of artifacts on
// disk, with an optional S3 mirror for sharing across a build farm.
// Two builds with identical fragments and feature flags (hence
// identical Key) always resolve to the same entry, file-lock-guarded
// so concurrent builders racing on the same key never corrupt the
// artifact file.
type Cache struct {
	dir   string
	hot   *memCache
	index *Index
	s3    *S3Backend
}

// Options configures a Cache.
type Options struct {
	// Dir is where artifact files and the SQLite index live.
	Dir string
	// HotBytes bounds the in-process hot layer's total artifact size.
	HotBytes int
	// S3Bucket, if non-empty, mirrors every newly built entry to S3
	// and is consulted on a local miss before recomputing.
	S3Bucket string
}

// Open creates dir if needed and opens (or initializes) the cache's
// persistent index.
func Open(ctx context.Context, opts Options) (*Cache, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("buildcache: create cache dir: %w", err)
	}
	index, err := OpenIndex(filepath.Join(opts.Dir, "index.sqlite"))
	if err != nil {
		return nil, err
	}
	c := &Cache{
		dir:   opts.Dir,
		hot:   newMemCache(opts.HotBytes),
		index: index,
	}
	if opts.S3Bucket != "" {
		backend, err := NewS3Backend(ctx, opts.S3Bucket)
		if err != nil {
			return nil, err
		}
		c.s3 = backend
	}
	return c, nil
}

// Close releases the underlying index handle.
func (c *Cache) Close() error { return c.index.Close() }

// Build is the caller-supplied compilation step invoked only on a
// total miss across every layer, producing the artifact bytes and a
// manifest describing what it built.
type Build func() (artifact []byte, manifest Manifest, err error)

// GetOrBuild resolves key through the hot layer, then the persistent
// index, then S3 (if configured), only calling build on a total miss.
// The on-disk write for a fresh build is guarded by an exclusive
// create-only lock file so two processes racing to build the same key
// never interleave writes to the same artifact path (§5: "under a
// file lock").
func (c *Cache) GetOrBuild(ctx context.Context, key Key, build Build) ([]byte, error) {
	if artifact, ok := c.hot.getOrCompute(key, nil); ok {
		return artifact, nil
	}

	if entry, ok, err := c.index.Lookup(key); err != nil {
		return nil, err
	} else if ok {
		artifact, err := os.ReadFile(entry.ArtifactPath)
		if err != nil {
			return nil, fmt.Errorf("buildcache: read cached artifact %s: %w", entry.ArtifactPath, err)
		}
		c.hot.put(key, artifact, int(entry.SizeBytes), time.Hour)
		_ = c.index.TouchHit(key, time.Now())
		return artifact, nil
	}

	if c.s3 != nil {
		if artifact, ok, err := c.s3.Get(ctx, key); err != nil {
			log.Warnf("buildcache: s3 lookup for %s failed, falling back to local build: %s", key, err)
		} else if ok {
			if err := c.store(key, artifact, Manifest{Key: string(key), CreatedAtUnix: time.Now().Unix()}); err != nil {
				return nil, err
			}
			return artifact, nil
		}
	}

	return c.computeAndStore(ctx, key, build)
}

// computeAndStore runs build through the hot layer's single-flight
// compute path. build errors surface as a panic there (getOrCompute
// has no error return of its own), so this recovers it back into a
// normal error here rather than letting it escape as a panic.
func (c *Cache) computeAndStore(ctx context.Context, key Key, build Build) (artifact []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			if bf, ok := r.(buildFailure); ok {
				err = bf.err
				return
			}
			panic(r)
		}
	}()
	artifact, _ = c.hot.getOrCompute(key, func() ([]byte, time.Duration, int) {
		artifact, manifest, buildErr := build()
		if buildErr != nil {
			panic(buildFailure{buildErr})
		}
		if storeErr := c.store(key, artifact, manifest); storeErr != nil {
			panic(buildFailure{storeErr})
		}
		if c.s3 != nil {
			if err := c.s3.Put(ctx, key, artifact); err != nil {
				log.Warnf("buildcache: mirroring %s to s3 failed: %s", key, err)
			}
		}
		return artifact, time.Hour, len(artifact)
	})
	return artifact, nil
}

type buildFailure struct{ err error }

// store writes artifact to its content-addressed path and records it
// in the index; the path itself doubles as the lock target via
// O_CREATE|O_EXCL, so a second writer for the same key simply finds
// the file already there and treats it as present rather than
// overwriting it.
func (c *Cache) store(key Key, artifact []byte, manifest Manifest) error {
	path := c.artifactPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("buildcache: create artifact directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil // another builder already produced this exact artifact
		}
		return fmt.Errorf("buildcache: create artifact file %s: %w", path, err)
	}
	_, writeErr := f.Write(artifact)
	closeErr := f.Close()
	if writeErr != nil {
		os.Remove(path)
		return fmt.Errorf("buildcache: write artifact %s: %w", path, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("buildcache: close artifact %s: %w", path, closeErr)
	}

	avro, err := EncodeManifest(manifest)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	return c.index.Insert(IndexEntry{
		ContentHash:  key,
		ArtifactPath: path,
		ManifestAvro: avro,
		SizeBytes:    int64(len(artifact)),
		CreatedAt:    now,
		LastHitAt:    now,
	})
}

func (c *Cache) artifactPath(key Key) string {
	return filepath.Join(c.dir, "artifacts", string(key)[:2], string(key)+".bin")
}
