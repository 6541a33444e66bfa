package subprocess

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"

	"github.com/wagiedev/workerctl/internal/duplex"
	"github.com/wagiedev/workerctl/internal/logging"
	"github.com/wagiedev/workerctl/internal/protocol"
	"github.com/wagiedev/workerctl/internal/transport"
	"github.com/wagiedev/workerctl/internal/wire"
)

// ServeConfig configures ServeWorker.
type ServeConfig struct {
	// Logger receives the worker's local output, normally written to stderr.
	Logger *slog.Logger

	// ForwardLevel is the minimum level of records also sent to the controller.
	ForwardLevel slog.Leveler

	// In carries instructions from the controller, Out carries messages back.
	In  io.Reader
	Out io.Writer

	Capabilities protocol.Capabilities

	// Endpoint holds the duplex timings. The logger field is ignored.
	Endpoint duplex.Config
}

// ServeWorker runs a worker over cfg.In and cfg.Out until the controller
// sends quit, closes its side, or ctx is done. Queued replies are flushed
// within the endpoint grace period before it returns. The controller hanging
// up is a normal exit.
func ServeWorker(ctx context.Context, cfg ServeConfig) error {
	log := logging.OrNop(cfg.Logger)

	sender := transport.NewStreamSender[wire.Message](log, cfg.Out, wire.MessageCodec{})
	receiver := transport.NewStreamReceiver[wire.Instruction](log, cfg.In, wire.InstructionCodec{})

	epCfg := cfg.Endpoint
	epCfg.Logger = log

	endpoint := duplex.New[wire.Message, wire.Instruction](sender, receiver, &epCfg)

	level := cfg.ForwardLevel
	if level == nil {
		level = slog.LevelInfo
	}

	worker := protocol.NewWorker(protocol.ForwardingLogger(log, endpoint, level), endpoint, cfg.Capabilities)

	runErr := worker.Run(ctx)
	closeErr := endpoint.Close()

	_ = receiver.Close()

	for _, err := range []error{runErr, closeErr} {
		if err != nil && !stderrors.Is(err, io.EOF) {
			return err
		}
	}

	return nil
}
