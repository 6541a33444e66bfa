package protocol

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"

	"github.com/wagiedev/workerctl/internal/errors"
	"github.com/wagiedev/workerctl/internal/logging"
	"github.com/wagiedev/workerctl/internal/wire"
)

// WorkerEndpoint is the worker's side of a duplex channel.
type WorkerEndpoint interface {
	Send(msg wire.Message) error
	Recv() (wire.Instruction, error)
	Signal()
}

// Capabilities executes the data-producing commands.
type Capabilities interface {
	FindJSON(ctx context.Context) ([]string, error)
	ProcessID(ctx context.Context) (uint32, error)
	ThreadID(ctx context.Context) (uint32, error)
}

// Worker answers instructions from a controller.
type Worker struct {
	log      *slog.Logger
	endpoint WorkerEndpoint
	caps     Capabilities
}

// NewWorker creates a worker. Use ForwardingLogger to also ship its records
// to the controller.
func NewWorker(log *slog.Logger, endpoint WorkerEndpoint, caps Capabilities) *Worker {
	return &Worker{
		log:      logging.OrNop(log).With("component", "worker"),
		endpoint: endpoint,
		caps:     caps,
	}
}

// ForwardingLogger returns a logger writing to local and, for records at or
// above level, sending them to the controller through endpoint.
func ForwardingLogger(local *slog.Logger, endpoint WorkerEndpoint, level slog.Leveler) *slog.Logger {
	forward := logging.NewForwardHandler(func(l *wire.Log) error {
		return endpoint.Send(l)
	}, level)

	return slog.New(logging.Fanout{logging.OrNop(local).Handler(), forward})
}

// Run serves instructions until a quit instruction arrives, the channel is
// signalled or ctx is done. It sends Ready first and Exiting last.
//
// Capability failures are logged and never end the loop. Run returns the
// receive failure that ended it, if any.
func (w *Worker) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, w.endpoint.Signal)
	defer stop()

	if err := w.endpoint.Send(&wire.Ready{}); err != nil {
		return &errors.TransportError{Op: "send", Err: err}
	}

	w.log.Info("Worker ready")

	runErr := w.loop(ctx)

	if err := w.endpoint.Send(&wire.Exiting{}); err != nil {
		w.log.Debug("Could not announce exit", "error", err)
	}

	return runErr
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		inst, err := w.endpoint.Recv()
		if err != nil {
			if stderrors.Is(err, errors.ErrSignalled) {
				w.log.Debug("Worker signalled")

				return nil
			}

			if stderrors.Is(err, io.EOF) {
				w.log.Info("Controller closed the channel")

				return err
			}

			w.log.Error("Failed to receive instruction", "error", err)

			return err
		}

		w.log.Log(ctx, logging.LevelVerbose, "Acknowledging instruction", "id", inst.ID, "command", inst.Command)

		if err := w.endpoint.Send(&wire.Ack{ID: inst.ID}); err != nil {
			return &errors.TransportError{Op: "send", Err: err}
		}

		if inst.Command == wire.CommandQuit {
			w.log.Info("Quitting")

			return nil
		}

		data, err := w.execute(ctx, inst)
		if err != nil {
			w.log.Error("Command failed", "id", inst.ID, "error", err)

			continue
		}

		if err := w.endpoint.Send(data); err != nil {
			return &errors.TransportError{Op: "send", Err: err}
		}
	}
}

func (w *Worker) execute(ctx context.Context, inst wire.Instruction) (*wire.Data, error) {
	wrap := func(err error) error {
		return &errors.CapabilityError{Command: string(inst.Command), Err: err}
	}

	switch inst.Command {
	case wire.CommandFindJSON:
		docs, err := w.caps.FindJSON(ctx)
		if err != nil {
			return nil, wrap(err)
		}

		w.log.Debug("Found JSON documents", "id", inst.ID, "count", len(docs))

		return wire.NewJSONData(inst.ID, docs), nil

	case wire.CommandGetProcessID:
		pid, err := w.caps.ProcessID(ctx)
		if err != nil {
			return nil, wrap(err)
		}

		return wire.NewProcessIDData(inst.ID, pid), nil

	case wire.CommandGetThreadID:
		tid, err := w.caps.ThreadID(ctx)
		if err != nil {
			return nil, wrap(err)
		}

		return wire.NewThreadIDData(inst.ID, tid), nil

	default:
		return nil, wrap(errors.ErrUnknownCommand)
	}
}
