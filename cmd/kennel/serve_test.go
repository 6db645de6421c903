package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kennel/config"
)

func TestServeStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.GRPC.Addr = "127.0.0.1:0"
	cfg.Journal.Dir = t.TempDir()
	cfg.Eviction.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, &out) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	require.Contains(t, out.String(), "kennel gRPC listening")
}

func TestServeRejectsBadLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"
	require.Error(t, serve(context.Background(), cfg, &bytes.Buffer{}))
}

func TestNewPublisherDisabledWithoutBrokers(t *testing.T) {
	p, err := newPublisher(config.Kafka{Topic: "t"})
	require.NoError(t, err)
	require.Nil(t, p)
}
