package errors

import (
	"errors"
	"fmt"
)

// WorkerctlError is the base interface for all workerctl errors.
type WorkerctlError interface {
	error
	IsWorkerctlError() bool
}

// Compile-time verification that all error types implement WorkerctlError.
var (
	_ WorkerctlError = (*PoisonedError)(nil)
	_ WorkerctlError = (*TransportError)(nil)
	_ WorkerctlError = (*CapabilityError)(nil)
	_ WorkerctlError = (*DecodeError)(nil)
	_ WorkerctlError = (*ProcessError)(nil)
	_ WorkerctlError = (*WorkerNotFoundError)(nil)
	_ WorkerctlError = (*ConnectionError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrSignalled indicates a blocking wait was released by the shutdown
	// signal rather than by data becoming available.
	ErrSignalled = errors.New("signalled")

	// ErrPoisoned indicates shared state was left inconsistent by a holder
	// that panicked while holding its lock.
	ErrPoisoned = errors.New("state poisoned")

	// ErrTransportClosed indicates the raw channel failed irrecoverably.
	ErrTransportClosed = errors.New("transport closed")

	// ErrClientNotConnected indicates the client is not connected.
	ErrClientNotConnected = errors.New("client not connected")

	// ErrClientAlreadyConnected indicates the client is already connected.
	ErrClientAlreadyConnected = errors.New("client already connected")

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.New("client closed: clients are single-use, create a new one with NewClient()")

	// ErrTransportNotConnected indicates the transport has not been started.
	ErrTransportNotConnected = errors.New("transport not connected")

	// ErrRecvTimeout indicates a bounded receive elapsed without data.
	// Receivers may return it instead of context.DeadlineExceeded.
	ErrRecvTimeout = errors.New("receive timed out")

	// ErrSenderStopped indicates the endpoint's sender pump has terminated.
	ErrSenderStopped = errors.New("sender pump stopped")

	// ErrReceiverStopped indicates the endpoint's receiver pump is not running.
	ErrReceiverStopped = errors.New("receiver pump stopped")

	// ErrStillReferenced indicates a result was requested while another
	// owner of the pending command handle still exists.
	ErrStillReferenced = errors.New("pending command still referenced")

	// ErrHandleReleased indicates the pending command handle was already
	// consumed or released by its owner.
	ErrHandleReleased = errors.New("pending command handle released")

	// ErrSessionClosed indicates the controller session has been terminated.
	ErrSessionClosed = errors.New("session closed")

	// ErrUnknownCommand indicates a command name outside the supported set.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUnknownMessageType indicates the message type is not recognized.
	// Callers should skip these messages rather than treating them as fatal.
	ErrUnknownMessageType = errors.New("unknown message type")

	// ErrUnsupported indicates a capability is not available on this platform.
	ErrUnsupported = errors.New("unsupported on this platform")
)

// PoisonedError reports that guarded state is unusable. It still carries the
// last observed shutdown signal so callers can decide to shut down cleanly.
type PoisonedError struct {
	Signalled bool
	Cause     any
}

func (e *PoisonedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("state poisoned (signalled=%t): %v", e.Signalled, e.Cause)
	}

	return fmt.Sprintf("state poisoned (signalled=%t)", e.Signalled)
}

// Is reports PoisonedError as ErrPoisoned.
func (e *PoisonedError) Is(target error) bool {
	return target == ErrPoisoned
}

// IsWorkerctlError implements WorkerctlError.
func (e *PoisonedError) IsWorkerctlError() bool { return true }

// TransportError indicates a raw send or receive failed irrecoverably.
// It matches ErrTransportClosed under errors.Is.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports TransportError as ErrTransportClosed.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransportClosed
}

// IsWorkerctlError implements WorkerctlError.
func (e *TransportError) IsWorkerctlError() bool { return true }

// CapabilityError indicates the worker failed to execute a command.
type CapabilityError struct {
	Command string
	Err     error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s failed: %v", e.Command, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// IsWorkerctlError implements WorkerctlError.
func (e *CapabilityError) IsWorkerctlError() bool { return true }

// DecodeError indicates a wire frame could not be decoded.
// This error preserves the original raw data that failed to parse.
type DecodeError struct {
	RawData string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode frame: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsWorkerctlError implements WorkerctlError.
func (e *DecodeError) IsWorkerctlError() bool { return true }

// ProcessError indicates the worker process failed.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("worker process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("worker process failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsWorkerctlError implements WorkerctlError.
func (e *ProcessError) IsWorkerctlError() bool { return true }

// WorkerNotFoundError indicates the worker binary could not be located.
type WorkerNotFoundError struct {
	Path string
	Err  error
}

func (e *WorkerNotFoundError) Error() string {
	return fmt.Sprintf("worker binary not found at %s: %v", e.Path, e.Err)
}

func (e *WorkerNotFoundError) Unwrap() error {
	return e.Err
}

// IsWorkerctlError implements WorkerctlError.
func (e *WorkerNotFoundError) IsWorkerctlError() bool { return true }

// ConnectionError indicates the worker process could not be launched.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to worker: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsWorkerctlError implements WorkerctlError.
func (e *ConnectionError) IsWorkerctlError() bool { return true }
