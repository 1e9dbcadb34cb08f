// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package codec implements the Network wire contract of spec.md §6.3:
// length-prefixed framing for the three codecs a Network node may
// carry (Bincode, TaggedBincode, Bytes).
//
// The payload serializer behind Bincode/TaggedBincode is
// encoding/gob rather than a pack dependency: nothing in the example
// corpus offers a schema-free binary codec for arbitrary Go values
// (goavro needs an Avro schema up front, and is used instead for the
// self-describing build-cache manifest in pkg/buildcache; the
// protobuf/msgpack family never appears in the corpus at all), so this
// is one of the few places this module reaches for the standard
// library by necessity rather than convenience.
package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
)

// ProtocolError is returned when a received frame violates the wire
// contract (§6.3): an oversized length prefix closes the channel.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("codec: protocol error: %s", e.Reason) }

// DefaultMaxFrameLen bounds a single frame's declared payload length;
// a channel may override this per §6.3's "per-channel maximum".
const DefaultMaxFrameLen = 64 << 20

// WriteFrame writes a u32-little-endian length prefix followed by
// payload to w (§6.3: "length-prefix (u32 little-endian) + ...
// payload").
func WriteFrame(w io.Writer, payload []byte) error {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed frame from r, rejecting any
// frame whose declared length exceeds maxLen with a *ProtocolError
// (§6.3: "Receiver rejects frames whose declared length exceeds a
// per-channel maximum; failure closes the channel with
// ProtocolError").
func ReadFrame(r io.Reader, maxLen uint32) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(hdr[:])
	if n > maxLen {
		return nil, &ProtocolError{Reason: fmt.Sprintf("frame length %d exceeds channel maximum %d", n, maxLen)}
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// EncodeBincode serializes v and writes it as one Bincode frame.
func EncodeBincode(w io.Writer, v interface{}) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("codec: bincode encode: %w", err)
	}
	return WriteFrame(w, buf.Bytes())
}

// DecodeBincode reads one Bincode frame from r and decodes it into v.
func DecodeBincode(r io.Reader, maxLen uint32, v interface{}) error {
	payload, err := ReadFrame(r, maxLen)
	if err != nil {
		return err
	}
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(v); err != nil {
		return fmt.Errorf("codec: bincode decode: %w", err)
	}
	return nil
}

// EncodeTaggedBincode serializes v prefixed with sourceTag, so a
// broadcast receiver can demultiplex by sender without a separate
// channel per source (§6.3).
func EncodeTaggedBincode(w io.Writer, sourceTag string, v interface{}) error {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(sourceTag); err != nil {
		return fmt.Errorf("codec: tagged bincode encode tag: %w", err)
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("codec: tagged bincode encode payload: %w", err)
	}
	return WriteFrame(w, buf.Bytes())
}

// DecodeTaggedBincode reads one TaggedBincode frame and returns its
// source tag alongside the decoded payload.
func DecodeTaggedBincode(r io.Reader, maxLen uint32, v interface{}) (string, error) {
	payload, err := ReadFrame(r, maxLen)
	if err != nil {
		return "", err
	}
	dec := gob.NewDecoder(bytes.NewReader(payload))
	var tag string
	if err := dec.Decode(&tag); err != nil {
		return "", fmt.Errorf("codec: tagged bincode decode tag: %w", err)
	}
	if err := dec.Decode(v); err != nil {
		return "", fmt.Errorf("codec: tagged bincode decode payload: %w", err)
	}
	return tag, nil
}

// WriteBytes writes an opaque byte payload as one Bytes frame.
func WriteBytes(w io.Writer, payload []byte) error { return WriteFrame(w, payload) }

// ReadBytes reads one Bytes frame, returning the opaque payload
// unparsed (§6.3: "payload opaque").
func ReadBytes(r io.Reader, maxLen uint32) ([]byte, error) { return ReadFrame(r, maxLen) }
