package transport

import (
	"context"
	"io"
	"sync"
)

// Pipe is an in-process link carrying values of T from one side to the other.
// It is both the sending half and the receiving half.
//
// Closing the pipe models the peer going away: Send fails immediately and Recv
// returns io.EOF once the already buffered values have been consumed.
type Pipe[T any] struct {
	ch        chan T
	closed    chan struct{}
	closeOnce sync.Once
}

// NewPipe creates a pipe buffering up to buffer values.
func NewPipe[T any](buffer int) *Pipe[T] {
	return &Pipe[T]{
		ch:     make(chan T, buffer),
		closed: make(chan struct{}),
	}
}

// Send delivers v or fails once the pipe is closed or ctx is done.
func (p *Pipe[T]) Send(ctx context.Context, v T) error {
	select {
	case <-p.closed:
		return io.ErrClosedPipe
	default:
	}

	select {
	case p.ch <- v:
		return nil
	case <-p.closed:
		return io.ErrClosedPipe
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv returns the next value, io.EOF after Close drained the buffer, or
// ctx.Err().
func (p *Pipe[T]) Recv(ctx context.Context) (T, error) {
	var zero T

	select {
	case v := <-p.ch:
		return v, nil
	case <-p.closed:
		select {
		case v := <-p.ch:
			return v, nil
		default:
			return zero, io.EOF
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close marks the pipe as closed. It is safe to call multiple times.
func (p *Pipe[T]) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })

	return nil
}
