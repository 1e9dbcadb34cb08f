// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package buildcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jhellerstein/hydro-sub000/pkg/log"
)

// S3Backend mirrors cache entries into an S3 bucket so a build farm's
// machines can share one remote cache instead of each rebuilding
// misses independently.
type S3Backend struct {
	client *s3.Client
	bucket string
}

// NewS3Backend loads the default AWS credential chain (environment,
// shared config, container/IMDS role) and returns a backend targeting
// bucket.
func NewS3Backend(ctx context.Context, bucket string) (*S3Backend, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("buildcache: load AWS config: %w", err)
	}
	return &S3Backend{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// Get fetches the artifact stored under key, reporting (nil, false)
// on a miss rather than an error.
func (b *S3Backend) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(string(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("buildcache: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, false, err
	}
	return buf.Bytes(), true, nil
}

// Put uploads artifact under key, overwriting any existing object.
func (b *S3Backend) Put(ctx context.Context, key Key, artifact []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(string(key)),
		Body:   bytes.NewReader(artifact),
	})
	if err != nil {
		return fmt.Errorf("buildcache: s3 put %s: %w", key, err)
	}
	log.Debugf("buildcache: mirrored %s to s3://%s/%s", key, b.bucket, key)
	return nil
}
