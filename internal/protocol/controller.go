package protocol

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/workerctl/internal/errors"
	"github.com/wagiedev/workerctl/internal/logging"
	"github.com/wagiedev/workerctl/internal/metrics"
	"github.com/wagiedev/workerctl/internal/tracker"
	"github.com/wagiedev/workerctl/internal/wire"
)

// ControllerEndpoint is the controller's side of a duplex channel.
//
// This interface is satisfied by *duplex.Endpoint[wire.Instruction,
// wire.Message] but allows for testing with mock endpoints.
type ControllerEndpoint interface {
	Send(inst wire.Instruction) error
	Recv() (wire.Message, error)
	Signal()
	Close() error
}

// Controller drives one worker session.
type Controller struct {
	log       *slog.Logger
	workerLog *slog.Logger
	endpoint  ControllerEndpoint
	tracker   *tracker.Tracker
	metrics   *metrics.Metrics
	sessionID string

	errMu    sync.RWMutex
	fatalErr error

	// workerExited is set once the worker announced it is exiting; the
	// end of stream that follows is then not a failure.
	workerExited atomic.Bool

	terminateOnce sync.Once
	closeOnce     sync.Once
	closeErr      error
}

// NewController creates a controller over endpoint.
//
// The logger receives the controller's own records and, under the "worker"
// component, the log records forwarded by the worker. A nil m disables metrics.
func NewController(log *slog.Logger, endpoint ControllerEndpoint, m *metrics.Metrics) *Controller {
	log = logging.OrNop(log)
	sessionID := ulid.Make().String()

	c := &Controller{
		log:       log.With("component", "protocol", "session_id", sessionID),
		workerLog: log.With("component", "worker", "session_id", sessionID),
		endpoint:  endpoint,
		tracker:   tracker.New(),
		metrics:   m,
		sessionID: sessionID,
	}

	m.SessionOpened()
	c.log.Debug("Controller session opened")

	return c
}

// SessionID returns the ULID identifying this session in logs.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Tracker exposes the command tracker, mainly for inspection.
func (c *Controller) Tracker() *tracker.Tracker {
	return c.tracker
}

// FatalError returns the receive failure that ended the session, if any.
func (c *Controller) FatalError() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return c.fatalErr
}

// Send issues cmd to the worker and returns the caller's owning handle.
//
// If the instruction cannot be queued the handle is still returned together
// with an error matching errors.ErrTransportClosed; the command will never
// complete and the handle should be released.
func (c *Controller) Send(cmd wire.Command) (*tracker.Pending, error) {
	if !cmd.Valid() {
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownCommand, cmd)
	}

	inst, pending, err := c.tracker.Issue(cmd)
	if err != nil {
		return nil, err
	}

	c.log.Info("Sent command", "id", inst.ID, "command", inst.Command)
	c.metrics.CommandIssued(string(cmd))

	if err := c.endpoint.Send(inst); err != nil {
		c.log.Warn("Failed to queue instruction", "id", inst.ID, "error", err)

		return pending, &errors.TransportError{Op: "send", Err: err}
	}

	return pending, nil
}

// TryRecvOne processes exactly one message from the worker. It returns the
// Data carried by the message, or nil for messages that are only logged or
// tracked.
//
// A receive failure terminates the session and is returned.
func (c *Controller) TryRecvOne() (*wire.Data, error) {
	msg, err := c.endpoint.Recv()
	if err != nil {
		if c.exitedCleanly(err) {
			c.log.Info("Worker closed the channel")
			c.Terminate()

			return nil, errors.ErrSignalled
		}

		c.recvFailed(err)

		return nil, err
	}

	switch m := msg.(type) {
	case *wire.Ready:
		c.log.Info("Worker ready")

	case *wire.Exiting:
		c.workerExited.Store(true)
		c.log.Info("Worker exiting")

	case *wire.Log:
		c.metrics.WorkerLog(m.Severity.String())
		c.workerLog.Log(context.Background(), logging.SeverityLevel(m.Severity), m.Text, "worker_time", m.Time)

	case *wire.Ack:
		c.handleAck(m.ID)

	case *wire.Data:
		c.handleData(m)

		return m, nil

	default:
		c.log.Debug("Skipping unknown message type", "message_type", msg.MessageType())
	}

	return nil, nil
}

// Recv blocks until the next Data result.
func (c *Controller) Recv() (*wire.Data, error) {
	for {
		data, err := c.TryRecvOne()
		if err != nil {
			return nil, err
		}

		if data != nil {
			return data, nil
		}
	}
}

// Results iterates over data results until the session ends or ctx is done.
// ctx is checked between results; Close the controller to interrupt a
// blocked iteration.
func (c *Controller) Results(ctx context.Context) iter.Seq2[*wire.Data, error] {
	return func(yield func(*wire.Data, error) bool) {
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)

				return
			}

			data, err := c.Recv()
			if err != nil {
				if stderrors.Is(err, errors.ErrSignalled) {
					return
				}

				yield(nil, err)

				return
			}

			if !yield(data, nil) {
				return
			}
		}
	}
}

// Dispatch processes messages in the background until the session ends,
// completing Pending handles and discarding the Data values themselves. Use it
// when results are consumed only through handles.
//
// ctx ending terminates the session. Dispatch returns nil when the session was
// terminated, ctx.Err() when ctx ended it, and the receive failure otherwise.
func (c *Controller) Dispatch(ctx context.Context) error {
	stop := context.AfterFunc(ctx, c.Terminate)
	defer stop()

	c.log.Debug("Dispatch loop started")
	defer c.log.Debug("Dispatch loop stopped")

	for {
		if _, err := c.TryRecvOne(); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if stderrors.Is(err, errors.ErrSignalled) {
				return nil
			}

			return err
		}
	}
}

// Terminate ends the session: it sends a best-effort quit, releases every
// waiter on a tracked command and signals the channel. Queued instructions,
// including the quit, still get the grace period to go out.
func (c *Controller) Terminate() {
	c.terminateOnce.Do(func() {
		c.log.Info("Terminating session")

		if quit, err := c.Send(wire.CommandQuit); quit != nil {
			quit.Release()
		} else if err != nil {
			c.log.Debug("Could not send quit", "error", err)
		}

		if remaining := c.tracker.Shutdown(); len(remaining) > 0 {
			c.log.Debug("Released unfinished commands", "count", len(remaining))
		}

		c.endpoint.Signal()
	})
}

// Close terminates the session and waits for the channel to shut down.
// It is safe to call multiple times.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.Terminate()

		c.closeErr = c.endpoint.Close()
		if c.exitedCleanly(c.closeErr) {
			c.closeErr = nil
		}

		c.metrics.SessionClosed()

		c.log.Debug("Controller session closed", "error", c.closeErr)
	})

	return c.closeErr
}

// exitedCleanly reports whether err is the end of stream after the worker's
// Exiting message.
func (c *Controller) exitedCleanly(err error) bool {
	return err != nil && c.workerExited.Load() && stderrors.Is(err, io.EOF)
}

func (c *Controller) recvFailed(err error) {
	if stderrors.Is(err, errors.ErrSignalled) {
		c.Terminate()

		return
	}

	c.errMu.Lock()

	if c.fatalErr == nil {
		c.fatalErr = err
	}

	c.errMu.Unlock()

	c.metrics.TransportError("receive")
	c.log.Error("An error occurred while receiving a message", "error", err)

	c.Terminate()
}

func (c *Controller) handleAck(id wire.CommandID) {
	out, err := c.tracker.Acknowledge(id)
	if err != nil {
		c.log.Error("Command tracker unusable", "id", id, "error", err)

		return
	}

	if !out.Found {
		c.metrics.Ack(metrics.OutcomeUnknown)
		c.log.Warn("Received acknowledgement for unknown command", "id", id)

		return
	}

	if !out.Alive {
		c.metrics.Ack(metrics.OutcomeAbandoned)
		c.log.Info("Received acknowledgement", "id", id, "command", out.Instruction.Command, "owners", 0)

		return
	}

	c.metrics.Ack(metrics.OutcomeTracked)
	c.log.Info("Received acknowledgement", "id", id, "command", out.Instruction.Command)
}

func (c *Controller) handleData(data *wire.Data) {
	out, err := c.tracker.Complete(data)
	if err != nil {
		c.log.Error("Command tracker unusable", "id", data.ID, "error", err)

		return
	}

	switch {
	case !out.Found:
		c.metrics.Result(string(data.Kind), metrics.OutcomeUnknown)
		c.log.Debug("Received result for untracked command", "id", data.ID, "kind", data.Kind)
	case !out.Alive:
		c.metrics.Result(string(data.Kind), metrics.OutcomeAbandoned)
		c.log.Debug("Received result for abandoned command", "id", data.ID, "kind", data.Kind)
	default:
		c.metrics.Result(string(data.Kind), metrics.OutcomeTracked)
		c.log.Debug("Received result", "id", data.ID, "result", data.String())
	}
}
