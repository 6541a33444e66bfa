package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/workerctl/internal/capability"
	"github.com/wagiedev/workerctl/internal/logging"
)

func TestLoad_DefaultFile(t *testing.T) {
	f, err := Load(strings.NewReader(DefaultFile))
	require.NoError(t, err)

	require.Equal(t, 5*time.Second, f.Endpoint.RecvTimeout)
	require.Equal(t, 5*time.Second, f.Endpoint.GracePeriod)
	require.Equal(t, slog.LevelInfo, f.LogLevel())
	require.Empty(t, f.Metrics.Listen)
}

func TestLoad_Empty(t *testing.T) {
	f, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, &File{}, f)
}

func TestLoad_Full(t *testing.T) {
	doc := `
log:
  level: verbose
  json: true
worker:
  path: /usr/local/bin/workerctl
  args: [worker, --extra]
  env:
    SCAN_ROOT: /var/log
  forward_level: debug
endpoint:
  recv_timeout: 250ms
  grace_period: 2s
scan:
  sources: ["/var/log/app/*.log"]
  marker: "BEGIN"
  max_source_bytes: 1024
metrics:
  listen: ":9464"
`

	f, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, logging.LevelVerbose, f.LogLevel())
	require.True(t, f.Log.JSON)
	require.Equal(t, ":9464", f.Metrics.Listen)

	opts := f.Options(nil)
	require.Equal(t, "/usr/local/bin/workerctl", opts.WorkerPath)
	require.Equal(t, 250*time.Millisecond, opts.RecvTimeout)
	require.Equal(t, 2*time.Second, opts.GracePeriod)
	require.Equal(t, slog.LevelDebug, opts.ForwardLevel)
	require.Equal(t, map[string]string{"SCAN_ROOT": "/var/log"}, opts.Env)
	require.Equal(t, capability.ScanConfig{
		Sources:        []string{"/var/log/app/*.log"},
		Marker:         "BEGIN",
		MaxSourceBytes: 1024,
	}, opts.Scan)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown key", "worker:\n  binary: x\n", "field binary not found"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"bad forward level", "worker:\n  forward_level: chatty\n", "worker.forward_level"},
		{"negative duration", "endpoint:\n  grace_period: -1s\n", "endpoint.grace_period"},
		{"bad duration", "endpoint:\n  recv_timeout: soon\n", "decode config"},
		{"negative size", "scan:\n  max_source_bytes: -5\n", "scan.max_source_bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}
