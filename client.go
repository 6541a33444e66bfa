package workerctl

import (
	"context"
)

// Client drives one worker session.
//
// Lifecycle: Clients are single-use. After Close(), create a new client with NewClient().
//
// Example usage:
//
//	client := NewClient()
//	defer client.Close()
//
//	err := client.Start(ctx,
//	    WithLogger(slog.Default()),
//	    WithScanSources("/var/log/app/*.log"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Issue a command and wait for its result
//	data, err := client.Execute(ctx, CommandFindJSON)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, doc := range data.JSON {
//	    fmt.Println(doc)
//	}
type Client interface {
	// Start launches the worker and begins dispatching its messages.
	// Must be called before any other methods.
	// Returns WorkerNotFoundError if the worker is not found, ConnectionError on failure.
	Start(ctx context.Context, opts ...Option) error

	// Send issues cmd and returns immediately with a handle on it.
	// The handle should be waited on or released.
	Send(cmd Command) (*Pending, error)

	// Execute issues cmd and waits for its result.
	// The quit command completes with nil data once acknowledged.
	// A command the worker fails to carry out is only logged by the worker,
	// so no result ever arrives; pass a ctx with a deadline to bound the wait.
	Execute(ctx context.Context, cmd Command) (*Data, error)

	// Status describes the session and its outstanding commands.
	Status() Status

	// SessionID returns the session's ULID, or "" before Start.
	SessionID() string

	// Err returns the receive failure that ended the session, if any.
	Err() error

	// Close terminates the session and releases all resources.
	// Queued instructions, including a final quit, get the grace period to
	// reach the worker. Safe to call multiple times.
	Close() error
}

// NewClient creates a new interactive client.
//
// Call Start() with options to begin a session:
//
//	client := NewClient()
//	err := client.Start(ctx, WithLogger(log))
func NewClient() Client {
	return newClientImpl()
}
