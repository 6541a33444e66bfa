package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/workerctl/internal/capability"
	"github.com/wagiedev/workerctl/internal/config"
	"github.com/wagiedev/workerctl/internal/errors"
	"github.com/wagiedev/workerctl/internal/logging"
)

// TestDiscoverer_NotFound tests that an invalid worker path returns WorkerNotFoundError.
func TestDiscoverer_NotFound(t *testing.T) {
	discoverer := NewDiscoverer(&Config{
		WorkerPath: "/nonexistent/path/to/workerctl",
		Logger:     slog.Default(),
	})

	_, err := discoverer.Discover(context.Background())

	require.Error(t, err)
	require.IsType(t, &errors.WorkerNotFoundError{}, err)
}

// TestDiscoverer_ExplicitPath tests discovery with an explicit path.
func TestDiscoverer_ExplicitPath(t *testing.T) {
	tmpDir := t.TempDir()
	fakeWorker := filepath.Join(tmpDir, "workerctl")

	err := os.WriteFile(fakeWorker, []byte("#!/bin/sh\nexit 0"), 0o755)
	require.NoError(t, err)

	discoverer := NewDiscoverer(&Config{WorkerPath: fakeWorker})

	path, err := discoverer.Discover(context.Background())

	require.NoError(t, err)
	require.Equal(t, fakeWorker, path)
}

// TestDiscoverer_ExplicitDirectory tests that a directory is not a worker.
func TestDiscoverer_ExplicitDirectory(t *testing.T) {
	discoverer := NewDiscoverer(&Config{WorkerPath: t.TempDir()})

	_, err := discoverer.Discover(context.Background())

	var notFound *errors.WorkerNotFoundError

	require.ErrorAs(t, err, &notFound)
	require.Contains(t, notFound.Error(), "is a directory")
}

// TestDiscoverer_RunningExecutable tests the fallback to the running binary.
func TestDiscoverer_RunningExecutable(t *testing.T) {
	d, ok := NewDiscoverer(nil).(*discoverer)
	require.True(t, ok)

	d.executable = func() (string, error) { return "/opt/workerctl/bin/workerctl", nil }

	path, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, "/opt/workerctl/bin/workerctl", path)
}

// TestDiscoverer_FallsBackToPath tests the PATH search when the running
// binary cannot be resolved.
func TestDiscoverer_FallsBackToPath(t *testing.T) {
	binDir := t.TempDir()
	worker := filepath.Join(binDir, DefaultWorkerName)
	require.NoError(t, os.WriteFile(worker, []byte("#!/bin/sh\nexit 0"), 0o755))

	t.Setenv("PATH", binDir)

	d, ok := NewDiscoverer(nil).(*discoverer)
	require.True(t, ok)

	d.executable = func() (string, error) { return "", stderrors.New("unsupported") }

	path, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, worker, path)

	t.Setenv("PATH", t.TempDir())

	_, err = d.Discover(context.Background())
	require.IsType(t, &errors.WorkerNotFoundError{}, err)
}

// TestDiscoverer_Cancelled tests that a done context stops discovery.
func TestDiscoverer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDiscoverer(nil).Discover(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

// TestBuildArgs_Basic tests command building with minimal options.
func TestBuildArgs_Basic(t *testing.T) {
	args := BuildArgs(&config.Options{})

	require.Equal(t, []string{"worker", "--forward-level", "info"}, args)
}

// TestBuildArgs_WithOptions tests command building with scan and level options.
func TestBuildArgs_WithOptions(t *testing.T) {
	options := &config.Options{
		WorkerArgs:   []string{"worker", "--quiet"},
		ForwardLevel: logging.LevelVerbose,
		Scan: capability.ScanConfig{
			Sources:        []string{"a.log", "b/*.log"},
			Marker:         "M",
			MaxSourceBytes: 10,
		},
	}

	require.Equal(t, []string{
		"worker", "--quiet",
		"--forward-level", "verbose",
		"--source", "a.log",
		"--source", "b/*.log",
		"--marker", "M",
		"--max-source-bytes", "10",
	}, BuildArgs(options))
	require.Equal(t, []string{"worker", "--quiet"}, options.WorkerArgs, "WorkerArgs must not be modified")
}

// TestBuildEnvironment_EnvVarsPassedToSubprocess tests environment variable handling.
func TestBuildEnvironment_EnvVarsPassedToSubprocess(t *testing.T) {
	options := &config.Options{
		Env: map[string]string{
			"CUSTOM_VAR": "custom_value",
		},
	}

	env := BuildEnvironment(options)
	require.NotNil(t, env)

	require.True(t, slices.Contains(env, "CUSTOM_VAR=custom_value"),
		"Expected CUSTOM_VAR=custom_value in environment")
	require.True(t, slices.Contains(env, fmt.Sprintf("%s=%d", EnvControllerPID, os.Getpid())))

	// User values come last so they override inherited ones.
	require.Equal(t, "CUSTOM_VAR=custom_value", env[len(env)-1])
}
