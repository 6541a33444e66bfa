package workerctl

import (
	"context"

	"github.com/wagiedev/workerctl/internal/client"
)

// clientWrapper wraps the internal client to adapt it to the public interface.
type clientWrapper struct {
	impl *client.Client
}

// Compile-time check that *clientWrapper implements the Client interface.
var _ Client = (*clientWrapper)(nil)

// newClientImpl creates the internal client implementation.
func newClientImpl() Client {
	return &clientWrapper{impl: client.New()}
}

// Start launches the worker and begins dispatching its messages.
func (c *clientWrapper) Start(ctx context.Context, opts ...Option) error {
	return c.impl.Start(ctx, applyOptions(opts))
}

// Send issues cmd and returns a handle on it.
func (c *clientWrapper) Send(cmd Command) (*Pending, error) {
	return c.impl.Send(cmd)
}

// Execute issues cmd and waits for its result.
func (c *clientWrapper) Execute(ctx context.Context, cmd Command) (*Data, error) {
	return c.impl.Execute(ctx, cmd)
}

// Status describes the session.
func (c *clientWrapper) Status() Status {
	return c.impl.Status()
}

// SessionID returns the session's ULID.
func (c *clientWrapper) SessionID() string {
	return c.impl.SessionID()
}

// Err returns the failure that ended the session.
func (c *clientWrapper) Err() error {
	return c.impl.Err()
}

// Close terminates the session.
func (c *clientWrapper) Close() error {
	return c.impl.Close()
}
