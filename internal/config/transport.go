// Package config provides configuration types for workerctl sessions.
package config

import (
	"context"

	"github.com/wagiedev/workerctl/internal/wire"
)

// Transport is the raw link between a controller and one worker.
// Implement this to provide custom transports for testing, mocking,
// or alternative communication methods (e.g., an in-process worker).
//
// The default implementation is subprocess.WorkerTransport which spawns the
// worker as a child process. Custom transports can be injected via
// Options.Transport.
type Transport interface {
	// Start initializes the transport and prepares it for communication.
	// This is called before any instruction is sent or message received.
	Start(ctx context.Context) error

	// Send delivers one instruction to the worker. It must honour ctx so a
	// shutdown drain can bound it.
	Send(ctx context.Context, inst wire.Instruction) error

	// Recv returns the next worker message. Returning when ctx expires means
	// nothing arrived in time; io.EOF means the worker closed its side.
	Recv(ctx context.Context) (wire.Message, error)

	// Close terminates the transport and releases resources.
	// It's safe to call Close multiple times.
	Close() error

	// IsReady returns true if the transport is ready for communication.
	IsReady() bool

	// EndInput signals that no more instructions will be sent.
	// For process-based transports, this typically closes stdin.
	EndInput() error
}
