package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/workerctl/internal/config"
	"github.com/wagiedev/workerctl/internal/duplex"
	"github.com/wagiedev/workerctl/internal/errors"
	"github.com/wagiedev/workerctl/internal/logging"
	"github.com/wagiedev/workerctl/internal/mcp"
	"github.com/wagiedev/workerctl/internal/metrics"
	"github.com/wagiedev/workerctl/internal/protocol"
	"github.com/wagiedev/workerctl/internal/subprocess"
	"github.com/wagiedev/workerctl/internal/tracker"
	"github.com/wagiedev/workerctl/internal/wire"
)

// Client owns a transport, its duplex endpoint and the controller driving it.
type Client struct {
	log        *slog.Logger
	transport  config.Transport
	controller *protocol.Controller

	// Errgroup for the dispatch goroutine
	eg             *errgroup.Group
	cancelDispatch context.CancelFunc

	// Lifecycle management
	mu        sync.Mutex
	connected bool
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// Compile-time verification that Client can back the MCP tools.
var _ mcp.Commander = (*Client)(nil)

// New creates a new client.
//
// The client is not connected after creation. Call Start() with options to connect.
func New() *Client {
	return &Client{}
}

// Start launches the worker and begins dispatching its messages.
//
// ctx bounds the transport start only; the session lives until Close.
// Returns WorkerNotFoundError if the worker binary cannot be located, or
// ConnectionError if the process fails to start.
func (c *Client) Start(ctx context.Context, options *config.Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.ErrClientClosed
	}

	if c.connected {
		return errors.ErrClientAlreadyConnected
	}

	if options == nil {
		options = &config.Options{}
	}

	log := logging.OrNop(options.Logger)
	c.log = log.With("component", "client")

	var transport config.Transport

	switch {
	case options.Transport != nil:
		transport = options.Transport

		c.log.Debug("Using injected custom transport")
	case options.InProcess != nil:
		transport = NewInProcessTransport(log, options.InProcess, options.ForwardLevel)

		c.log.Debug("Using in-process worker")
	default:
		transport = subprocess.NewWorkerTransport(log, options)
	}

	if err := transport.Start(ctx); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}

	c.transport = transport

	var m *metrics.Metrics
	if options.Registerer != nil {
		m = metrics.New(options.Registerer)
	}

	endpoint := duplex.New[wire.Instruction, wire.Message](transport, transport, &duplex.Config{
		Logger:      log,
		RecvTimeout: options.RecvTimeout,
		GracePeriod: options.GracePeriod,
	})

	c.controller = protocol.NewController(log, endpoint, m)

	// The dispatch loop must outlive the caller's ctx, which may only bound
	// startup. Close cancels it.
	dispatchCtx, cancel := context.WithCancel(context.Background())
	c.cancelDispatch = cancel
	c.eg = &errgroup.Group{}

	c.eg.Go(func() error {
		err := c.controller.Dispatch(dispatchCtx)
		if stderrors.Is(err, context.Canceled) {
			return nil
		}

		return err
	})

	c.connected = true
	c.log.Info("Client started", "session_id", c.controller.SessionID())

	return nil
}

func (c *Client) active() (*protocol.Controller, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.ErrClientClosed
	}

	if !c.connected {
		return nil, errors.ErrClientNotConnected
	}

	return c.controller, nil
}

// Send issues cmd and returns the caller's handle on it.
func (c *Client) Send(cmd wire.Command) (*tracker.Pending, error) {
	controller, err := c.active()
	if err != nil {
		return nil, err
	}

	return controller.Send(cmd)
}

// Execute issues cmd and waits for its result. The quit command completes
// with nil data once acknowledged.
//
// A capability failure in the worker is forwarded as a log record and never
// answered, so the wait lasts until ctx is done or the session ends.
func (c *Client) Execute(ctx context.Context, cmd wire.Command) (*wire.Data, error) {
	pending, err := c.Send(cmd)
	if err != nil {
		if pending != nil {
			pending.Release()
		}

		return nil, err
	}

	data, err := pending.WaitForComplete(ctx)
	if stderrors.Is(err, errors.ErrSignalled) {
		// The worker may hang up right after acknowledging quit.
		if cmd == wire.CommandQuit && pending.Completed() {
			return nil, nil
		}

		if fatal := c.Err(); fatal != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrSessionClosed, fatal)
		}

		return nil, errors.ErrSessionClosed
	}

	return data, err
}

// SessionID returns the session's ULID, or "" before Start.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.controller == nil {
		return ""
	}

	return c.controller.SessionID()
}

// Status describes the session and its outstanding commands.
func (c *Client) Status() mcp.Status {
	c.mu.Lock()
	controller, closed := c.controller, c.closed
	c.mu.Unlock()

	if controller == nil {
		return mcp.Status{Closed: closed}
	}

	pending, inProgress := controller.Tracker().Snapshot()

	return mcp.Status{
		SessionID:  controller.SessionID(),
		Closed:     closed || controller.Tracker().IsShutdown(),
		Pending:    pending,
		InProgress: inProgress,
	}
}

// Err returns the receive failure that ended the session, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	controller := c.controller
	c.mu.Unlock()

	if controller == nil {
		return nil
	}

	return controller.FatalError()
}

// Close terminates the session and cleans up resources.
//
// After Close(), the client cannot be reused - create a new client with New().
// This method is safe to call multiple times.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		wasConnected := c.connected
		c.connected = false
		c.mu.Unlock()

		if !wasConnected {
			return
		}

		c.log.Info("Closing client")

		c.closeErr = c.controller.Close()
		c.cancelDispatch()

		if err := c.eg.Wait(); err != nil && c.closeErr == nil {
			c.closeErr = err
		}

		if err := c.transport.EndInput(); err != nil {
			c.log.Debug("Failed to end transport input", "error", err)
		}

		if err := c.transport.Close(); err != nil && c.closeErr == nil {
			c.closeErr = err
		}

		c.log.Info("Client closed")
	})

	return c.closeErr
}
