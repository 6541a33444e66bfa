package errors

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoisonedError(t *testing.T) {
	err := &PoisonedError{Signalled: true, Cause: "boom"}

	require.Equal(t, "state poisoned (signalled=true): boom", err.Error())
	require.ErrorIs(t, err, ErrPoisoned)
	require.True(t, err.IsWorkerctlError())
}

func TestPoisonedError_WithoutCause(t *testing.T) {
	err := &PoisonedError{}

	require.Equal(t, "state poisoned (signalled=false)", err.Error())
}

func TestTransportError(t *testing.T) {
	err := &TransportError{Op: "receive", Err: io.EOF}

	require.Equal(t, "transport receive failed: EOF", err.Error())
	require.ErrorIs(t, err, io.EOF)
	require.ErrorIs(t, err, ErrTransportClosed)
	require.NotErrorIs(t, err, ErrSignalled)
	require.True(t, err.IsWorkerctlError())
}

func TestCapabilityError(t *testing.T) {
	root := errors.New("no sources configured")
	err := &CapabilityError{Command: "find_json", Err: root}

	require.Equal(t, "capability find_json failed: no sources configured", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsWorkerctlError())
}

func TestDecodeError(t *testing.T) {
	root := errors.New("unexpected token")
	err := &DecodeError{RawData: `{"type":`, Err: root}

	require.Equal(t, "failed to decode frame: unexpected token", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsWorkerctlError())
}

func TestProcessError_WithUnderlyingError(t *testing.T) {
	root := errors.New("process terminated")
	err := &ProcessError{
		ExitCode: 9,
		Stderr:   "ignored when Err is set",
		Err:      root,
	}

	require.Equal(t, "worker process failed (exit 9): process terminated", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsWorkerctlError())
}

func TestProcessError_WithStderrOnly(t *testing.T) {
	err := &ProcessError{
		ExitCode: 2,
		Stderr:   "permission denied",
	}

	require.Equal(t, "worker process failed (exit 2): permission denied", err.Error())
	require.NoError(t, err.Unwrap())
}

func TestWorkerNotFoundError(t *testing.T) {
	root := errors.New("stat failed")
	err := &WorkerNotFoundError{Path: "/opt/workerctl", Err: root}

	require.Equal(t, "worker binary not found at /opt/workerctl: stat failed", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsWorkerctlError())
}

func TestConnectionError(t *testing.T) {
	root := errors.New("stdin pipe: too many open files")
	err := &ConnectionError{Err: root}

	require.Equal(t, "failed to connect to worker: stdin pipe: too many open files", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsWorkerctlError())
}
