package client

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"

	"github.com/wagiedev/workerctl/internal/config"
	"github.com/wagiedev/workerctl/internal/duplex"
	"github.com/wagiedev/workerctl/internal/errors"
	"github.com/wagiedev/workerctl/internal/logging"
	"github.com/wagiedev/workerctl/internal/protocol"
	"github.com/wagiedev/workerctl/internal/transport"
	"github.com/wagiedev/workerctl/internal/wire"
)

// pipeBuffer is the number of values each in-process pipe holds.
const pipeBuffer = 64

// InProcessTransport runs a worker in a goroutine of the calling process and
// links it to the controller with a pair of pipes.
type InProcessTransport struct {
	log     *slog.Logger
	caps    protocol.Capabilities
	forward slog.Leveler
	cfg     duplex.Config

	mu       sync.Mutex
	toWorker *transport.Pipe[wire.Instruction]
	fromWork *transport.Pipe[wire.Message]
	cancel   context.CancelFunc
	done     chan struct{}
	runErr   error
}

// Compile-time verification that InProcessTransport implements config.Transport.
var _ config.Transport = (*InProcessTransport)(nil)

// NewInProcessTransport creates a transport whose worker answers with caps.
// forward is the minimum level of worker records sent to the controller.
func NewInProcessTransport(log *slog.Logger, caps protocol.Capabilities, forward slog.Leveler) *InProcessTransport {
	if forward == nil {
		forward = slog.LevelInfo
	}

	log = logging.OrNop(log)

	return &InProcessTransport{
		log:     log.With("component", "inprocess_transport"),
		caps:    caps,
		forward: forward,
		cfg: duplex.Config{
			Logger: log,
		},
	}
}

// Start launches the worker goroutine. The worker lives until EndInput,
// Close, or a quit instruction.
func (t *InProcessTransport) Start(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.toWorker != nil {
		return errors.ErrClientAlreadyConnected
	}

	t.toWorker = transport.NewPipe[wire.Instruction](pipeBuffer)
	t.fromWork = transport.NewPipe[wire.Message](pipeBuffer)
	t.done = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	endpoint := duplex.New[wire.Message, wire.Instruction](t.fromWork, t.toWorker, &t.cfg)
	worker := protocol.NewWorker(
		protocol.ForwardingLogger(t.log, endpoint, t.forward),
		endpoint,
		t.caps,
	)

	go func() {
		defer close(t.done)

		runErr := worker.Run(ctx)
		closeErr := endpoint.Close()

		// The controller reads until EOF, which it sees once every queued
		// reply was consumed.
		_ = t.fromWork.Close()

		for _, err := range []error{runErr, closeErr} {
			if err != nil && !stderrors.Is(err, io.EOF) && !stderrors.Is(err, context.Canceled) {
				t.runErr = err

				return
			}
		}
	}()

	t.log.Debug("In-process worker started")

	return nil
}

func (t *InProcessTransport) pipes() (*transport.Pipe[wire.Instruction], *transport.Pipe[wire.Message]) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.toWorker, t.fromWork
}

// Send delivers inst to the worker.
func (t *InProcessTransport) Send(ctx context.Context, inst wire.Instruction) error {
	toWorker, _ := t.pipes()
	if toWorker == nil {
		return errors.ErrTransportNotConnected
	}

	return toWorker.Send(ctx, inst)
}

// Recv returns the next worker message, or io.EOF once the worker exited.
func (t *InProcessTransport) Recv(ctx context.Context) (wire.Message, error) {
	_, fromWork := t.pipes()
	if fromWork == nil {
		return nil, errors.ErrTransportNotConnected
	}

	return fromWork.Recv(ctx)
}

// IsReady reports whether the worker goroutine is running.
func (t *InProcessTransport) IsReady() bool {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	if done == nil {
		return false
	}

	select {
	case <-done:
		return false
	default:
		return true
	}
}

// EndInput closes the instruction pipe. The worker drains what is buffered
// and exits.
func (t *InProcessTransport) EndInput() error {
	toWorker, _ := t.pipes()
	if toWorker == nil {
		return nil
	}

	return toWorker.Close()
}

// Close stops the worker and waits for it. It is safe to call multiple times.
func (t *InProcessTransport) Close() error {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	if done == nil {
		return nil
	}

	cancel()
	_ = t.toWorker.Close()
	<-done
	_ = t.fromWork.Close()

	return t.runErr
}
