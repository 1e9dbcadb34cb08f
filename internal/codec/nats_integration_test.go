// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Integration test driving a Network{Bincode} edge across a real NATS
// subject pair, the same nats.go client shape pkg/nats/client.go wraps
// for pub/sub. Skipped unless HYDRO_NATS_URL points at a reachable
// broker, since this module doesn't embed one.
package codec

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func TestNetworkBincodeOverNATS(t *testing.T) {
	url := os.Getenv("HYDRO_NATS_URL")
	if url == "" {
		t.Skip("HYDRO_NATS_URL not set; skipping NATS integration test")
	}

	conn, err := nats.Connect(url)
	require.NoError(t, err)
	defer conn.Close()

	subject := "hydro.network.test"
	received := make(chan []byte, 1)
	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		received <- msg.Data
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	type payload struct {
		Seq   int
		Value string
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeBincode(&buf, payload{Seq: 1, Value: "hello-network-node"}))
	require.NoError(t, conn.Publish(subject, buf.Bytes()))
	require.NoError(t, conn.Flush())

	select {
	case data := <-received:
		var got payload
		require.NoError(t, DecodeBincode(bytes.NewReader(data), DefaultMaxFrameLen, &got))
		require.Equal(t, payload{Seq: 1, Value: "hello-network-node"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for NATS message")
	}
}
