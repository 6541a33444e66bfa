package duplex

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/workerctl/internal/errors"
	"github.com/wagiedev/workerctl/internal/queue"
)

const (
	// DefaultRecvTimeout bounds a single raw receive attempt.
	DefaultRecvTimeout = 5 * time.Second
	// DefaultGracePeriod bounds the shutdown drain of the outbound queue.
	DefaultGracePeriod = 5 * time.Second
)

// Sender is the raw outbound half of a link.
type Sender[S any] interface {
	Send(ctx context.Context, item S) error
}

// Receiver is the raw inbound half of a link. Returning when ctx expires, or
// returning errors.ErrRecvTimeout, means nothing arrived in time.
type Receiver[R any] interface {
	Recv(ctx context.Context) (R, error)
}

// Config configures an Endpoint. Zero durations select the defaults.
type Config struct {
	Logger      *slog.Logger
	RecvTimeout time.Duration
	GracePeriod time.Duration
}

func (c *Config) withDefaults() Config {
	out := Config{}
	if c != nil {
		out = *c
	}

	if out.Logger == nil {
		out.Logger = slog.New(slog.DiscardHandler)
	}

	if out.RecvTimeout <= 0 {
		out.RecvTimeout = DefaultRecvTimeout
	}

	if out.GracePeriod <= 0 {
		out.GracePeriod = DefaultGracePeriod
	}

	return out
}

// Endpoint is one side of a duplex link sending S and receiving R.
type Endpoint[S, R any] struct {
	log *slog.Logger
	cfg Config

	sender   Sender[S]
	receiver Receiver[R]

	outbound *queue.Queue[S]
	inbound  *queue.Queue[R]

	group        errgroup.Group
	senderDone   atomic.Bool
	receiverDone atomic.Bool
	signalled    atomic.Bool

	recvCtx    context.Context
	cancelRecv context.CancelFunc
	sendCtx    context.Context
	cancelSend context.CancelFunc

	errMu   sync.Mutex
	recvErr error

	graceMu       sync.Mutex
	graceDeadline time.Time
	graceTimer    *time.Timer
	drainCtx      context.Context
	endDrain      context.CancelFunc

	signalOnce sync.Once
	closeOnce  sync.Once
	closeErr   error
}

// New creates an Endpoint and starts its sender and receiver pumps.
func New[S, R any](sender Sender[S], receiver Receiver[R], cfg *Config) *Endpoint[S, R] {
	c := cfg.withDefaults()

	e := &Endpoint[S, R]{
		log:      c.Logger.With("component", "duplex"),
		cfg:      c,
		sender:   sender,
		receiver: receiver,
		outbound: queue.New[S](),
		inbound:  queue.New[R](),
	}

	e.recvCtx, e.cancelRecv = context.WithCancel(context.Background())
	e.sendCtx, e.cancelSend = context.WithCancel(context.Background())

	e.group.Go(e.sendLoop)
	e.group.Go(e.recvLoop)

	e.log.Debug("Endpoint started",
		"recv_timeout", c.RecvTimeout,
		"grace_period", c.GracePeriod,
	)

	return e
}

// Send queues item for the sender pump. It fails with ErrSenderStopped,
// without queueing, once the sender pump has terminated.
func (e *Endpoint[S, R]) Send(item S) error {
	if e.senderDone.Load() {
		return errors.ErrSenderStopped
	}

	return e.outbound.Enqueue(item)
}

// Recv blocks for the next inbound item.
//
// Items received before the receiver pump failed are still returned. After
// that Recv reports the receive failure as a *errors.TransportError, or
// errors.ErrSignalled when the endpoint was signalled or closed.
func (e *Endpoint[S, R]) Recv() (R, error) {
	item, err := e.inbound.Dequeue()
	if err == nil {
		return item, nil
	}

	if stderrors.Is(err, errors.ErrSignalled) && !e.signalled.Load() {
		if item, ok := e.inbound.TryDequeue(); ok {
			return item, nil
		}
	}

	return item, e.terminalError(err)
}

// TryRecv returns the next inbound item without blocking.
func (e *Endpoint[S, R]) TryRecv() (R, bool, error) {
	var zero R

	if e.receiverDone.Load() {
		return zero, false, errors.ErrReceiverStopped
	}

	item, ok := e.inbound.TryDequeue()

	return item, ok, nil
}

// TryRecvTimeout waits up to d for the next inbound item.
func (e *Endpoint[S, R]) TryRecvTimeout(d time.Duration) (R, bool, error) {
	var zero R

	if e.receiverDone.Load() {
		return zero, false, errors.ErrReceiverStopped
	}

	return e.inbound.TryDequeueTimeout(d)
}

// Err returns the failure that stopped the receiver pump, if any.
func (e *Endpoint[S, R]) Err() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()

	return e.recvErr
}

// Signal asks both pumps to stop without waiting for them. Until the grace
// deadline the sender pump keeps forwarding items, including ones sent after
// the signal.
func (e *Endpoint[S, R]) Signal() {
	e.signalOnce.Do(func() {
		e.signalled.Store(true)

		e.graceMu.Lock()
		e.graceDeadline = time.Now().Add(e.cfg.GracePeriod)
		e.graceTimer = time.AfterFunc(e.cfg.GracePeriod, e.cancelSend)
		e.drainCtx, e.endDrain = context.WithDeadline(context.Background(), e.graceDeadline)
		e.graceMu.Unlock()

		e.log.Debug("Endpoint signalled")

		e.outbound.SetSignal(true)
		e.inbound.SetSignal(true)
	})
}

// Close signals the endpoint, stops the receiver and waits for both pumps.
// The grace drain ends as soon as the items already queued are sent, still
// bounded by the grace deadline. It is safe to call multiple times and
// returns the first pump failure.
func (e *Endpoint[S, R]) Close() error {
	e.closeOnce.Do(func() {
		e.Signal()
		e.cancelRecv()

		e.graceMu.Lock()
		e.endDrain()
		e.graceMu.Unlock()

		e.closeErr = e.group.Wait()

		e.graceMu.Lock()
		e.graceTimer.Stop()
		e.graceMu.Unlock()

		e.cancelSend()

		e.log.Debug("Endpoint closed", "error", e.closeErr)
	})

	return e.closeErr
}

func (e *Endpoint[S, R]) sendLoop() error {
	defer e.senderDone.Store(true)

	for {
		item, err := e.outbound.Dequeue()
		if err != nil {
			if stderrors.Is(err, errors.ErrSignalled) {
				return e.drain()
			}

			e.log.Error("Outbound queue failed", "error", err)

			return err
		}

		if err := e.sender.Send(e.sendCtx, item); err != nil {
			if e.sendCtx.Err() != nil {
				e.log.Warn("Grace period elapsed during send", "error", err)

				return nil
			}

			return e.sendFailed(err)
		}
	}
}

// drain forwards items queued before or racing with the signal until the
// grace deadline passes, or until the queue is empty once Close ended the
// drain.
func (e *Endpoint[S, R]) drain() error {
	e.graceMu.Lock()
	deadline := e.graceDeadline
	drainCtx := e.drainCtx
	e.graceMu.Unlock()

	sent := 0

	for time.Now().Before(deadline) {
		item, ok, err := e.outbound.TryDequeueContext(drainCtx)
		if err != nil {
			return err
		}

		if !ok {
			break
		}

		ctx, cancel := context.WithDeadline(e.sendCtx, deadline)
		err = e.sender.Send(ctx, item)

		cancel()

		if err != nil {
			if ctx.Err() != nil {
				e.log.Warn("Grace period elapsed during send", "sent", sent)

				return nil
			}

			return e.sendFailed(err)
		}

		sent++
	}

	if dropped := e.outbound.Len(); dropped > 0 {
		e.log.Warn("Grace period elapsed with items still queued", "dropped", dropped)
	}

	e.log.Debug("Sender pump drained", "sent", sent)

	return nil
}

func (e *Endpoint[S, R]) sendFailed(err error) error {
	e.outbound.SetSignal(true)

	e.log.Warn("Raw send failed, stopping sender pump", "error", err)

	return &errors.TransportError{Op: "send", Err: err}
}

func (e *Endpoint[S, R]) recvLoop() error {
	defer e.receiverDone.Store(true)
	defer e.inbound.SetSignal(true)

	for {
		if e.recvCtx.Err() != nil || e.inbound.IsSignalled() {
			return nil
		}

		ctx, cancel := context.WithTimeout(e.recvCtx, e.cfg.RecvTimeout)
		item, err := e.receiver.Recv(ctx)

		cancel()

		if err != nil {
			if e.recvCtx.Err() != nil {
				return nil
			}

			if isTimeout(err) {
				continue
			}

			terr := &errors.TransportError{Op: "receive", Err: err}

			e.errMu.Lock()
			e.recvErr = terr
			e.errMu.Unlock()

			e.log.Warn("Raw receive failed, stopping receiver pump", "error", err)

			return terr
		}

		if err := e.inbound.Enqueue(item); err != nil {
			e.log.Error("Inbound queue failed", "error", err)

			return err
		}
	}
}

func (e *Endpoint[S, R]) terminalError(err error) error {
	if recvErr := e.Err(); recvErr != nil && stderrors.Is(err, errors.ErrSignalled) {
		return recvErr
	}

	return err
}

func isTimeout(err error) bool {
	return stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, errors.ErrRecvTimeout)
}
