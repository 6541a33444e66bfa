package mcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseServerType(t *testing.T) {
	for name, want := range map[string]ServerType{
		"":      ServerTypeStdio,
		"stdio": ServerTypeStdio,
		"http":  ServerTypeHTTP,
	} {
		got, err := ParseServerType(name)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseServerType("sse")
	require.ErrorContains(t, err, `unknown MCP server type "sse"`)
}

func TestServe_UnknownType(t *testing.T) {
	err := Serve(context.Background(), NewServer("workerctl", "test"), ServeConfig{Type: "carrier-pigeon"})
	require.Error(t, err)
}

func TestServeHTTP_StopsWithContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- serveHTTP(ctx, nopLogger(), NewServer("workerctl", "test"), ln)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("HTTP server did not stop")
	}
}
