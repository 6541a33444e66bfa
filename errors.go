package workerctl

import "github.com/wagiedev/workerctl/internal/errors"

// Re-export error types from internal package

// WorkerNotFoundError indicates the worker binary was not found.
type WorkerNotFoundError = errors.WorkerNotFoundError

// ConnectionError indicates failure to launch the worker.
type ConnectionError = errors.ConnectionError

// ProcessError indicates the worker process failed.
type ProcessError = errors.ProcessError

// TransportError indicates a raw send or receive failed irrecoverably.
type TransportError = errors.TransportError

// DecodeError indicates a wire frame could not be decoded.
type DecodeError = errors.DecodeError

// CapabilityError indicates the worker failed to execute a command.
type CapabilityError = errors.CapabilityError

// PoisonedError indicates guarded state is unusable.
type PoisonedError = errors.PoisonedError

// WorkerctlError is the base interface for all workerctl errors.
type WorkerctlError = errors.WorkerctlError

// Re-export sentinel errors from internal package.
var (
	// ErrClientNotConnected indicates the client is not connected.
	ErrClientNotConnected = errors.ErrClientNotConnected

	// ErrClientAlreadyConnected indicates the client is already connected.
	ErrClientAlreadyConnected = errors.ErrClientAlreadyConnected

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.ErrClientClosed

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.ErrTransportNotConnected

	// ErrSignalled indicates a wait was released by session shutdown.
	ErrSignalled = errors.ErrSignalled

	// ErrSessionClosed indicates the session ended before a command completed.
	ErrSessionClosed = errors.ErrSessionClosed

	// ErrStillReferenced indicates other handles to a command still exist.
	ErrStillReferenced = errors.ErrStillReferenced

	// ErrHandleReleased indicates the handle was already consumed or released.
	ErrHandleReleased = errors.ErrHandleReleased

	// ErrUnknownCommand indicates the command is not one the worker understands.
	ErrUnknownCommand = errors.ErrUnknownCommand

	// ErrTransportClosed matches every TransportError.
	ErrTransportClosed = errors.ErrTransportClosed
)
