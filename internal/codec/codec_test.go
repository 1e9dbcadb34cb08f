// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y int
}

func TestBincodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeBincode(&buf, point{X: 3, Y: 4}))

	var got point
	require.NoError(t, DecodeBincode(&buf, DefaultMaxFrameLen, &got))
	assert.Equal(t, point{X: 3, Y: 4}, got)
}

func TestTaggedBincodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeTaggedBincode(&buf, "worker-7", []int{1, 2, 3}))

	var got []int
	tag, err := DecodeTaggedBincode(&buf, DefaultMaxFrameLen, &got)
	require.NoError(t, err)
	assert.Equal(t, "worker-7", tag)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestBytesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBytes(&buf, []byte("opaque payload")))

	got, err := ReadBytes(&buf, DefaultMaxFrameLen)
	require.NoError(t, err)
	assert.Equal(t, []byte("opaque payload"), got)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, make([]byte, 128)))

	_, err := ReadFrame(&buf, 16)
	require.Error(t, err)
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func TestMultipleFramesOnOneStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeBincode(&buf, 1))
	require.NoError(t, EncodeBincode(&buf, 2))
	require.NoError(t, EncodeBincode(&buf, 3))

	var values []int
	for i := 0; i < 3; i++ {
		var v int
		require.NoError(t, DecodeBincode(&buf, DefaultMaxFrameLen, &v))
		values = append(values, v)
	}
	assert.Equal(t, []int{1, 2, 3}, values)
}
