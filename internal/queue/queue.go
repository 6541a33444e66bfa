// Package queue implements an unbounded FIFO safe for concurrent producers
// and consumers.
//
// Signalling a queue means "stop consuming", not "drain then stop": Dequeue
// returns errors.ErrSignalled as soon as the signal is set, even when items
// remain. TryDequeueTimeout ignores the signal so a deliberate grace drain can
// still flush what was queued before shutdown.
package queue

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/wagiedev/workerctl/internal/errors"
	"github.com/wagiedev/workerctl/internal/guarded"
)

// Queue is a thread-safe FIFO built on guarded state.
type Queue[T any] struct {
	state *guarded.State[[]T]
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{state: guarded.New[[]T](nil)}
}

// Enqueue appends item. It never blocks and fails only when the queue state
// is poisoned.
func (q *Queue[T]) Enqueue(item T) error {
	return q.state.Lock(func(items *[]T, _ bool) {
		*items = append(*items, item)
	})
}

// Dequeue blocks until an item is available or the queue is signalled.
func (q *Queue[T]) Dequeue() (T, error) {
	var (
		item      T
		signalled bool
	)

	err := q.state.LockWaitWhile(
		func(items *[]T, sig bool) bool { return len(*items) == 0 && !sig },
		func(items *[]T, sig bool) {
			if sig {
				signalled = true

				return
			}

			item = popFront(items)
		},
	)
	if err != nil {
		return item, err
	}

	if signalled {
		return item, errors.ErrSignalled
	}

	return item, nil
}

// TryDequeue pops the head of the queue without blocking.
func (q *Queue[T]) TryDequeue() (T, bool) {
	var (
		item T
		ok   bool
	)

	_ = q.state.Lock(func(items *[]T, _ bool) {
		if len(*items) > 0 {
			item, ok = popFront(items), true
		}
	})

	return item, ok
}

// TryDequeueTimeout waits up to d for an item. The signal does not end the
// wait early.
func (q *Queue[T]) TryDequeueTimeout(d time.Duration) (T, bool, error) {
	var item T

	ok, err := q.state.LockWaitWhileTimeout(d,
		func(items *[]T, _ bool) bool { return len(*items) == 0 },
		func(items *[]T, _ bool) { item = popFront(items) },
	)

	return item, ok, err
}

// TryDequeueContext waits for an item until ctx is done. Like
// TryDequeueTimeout it ignores the signal. Queued items are still returned
// after ctx is done; ok is false only once the queue is empty.
func (q *Queue[T]) TryDequeueContext(ctx context.Context) (T, bool, error) {
	var (
		item T
		ok   bool
	)

	err := q.state.LockWaitWhileContext(ctx,
		func(items *[]T, _ bool) bool { return len(*items) == 0 },
		func(items *[]T, _ bool) { item, ok = popFront(items), true },
	)
	if err != nil && (stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)) {
		return item, false, nil
	}

	return item, ok, err
}

// Len returns the number of queued items, or zero when poisoned.
func (q *Queue[T]) Len() int {
	var n int

	_ = q.state.Lock(func(items *[]T, _ bool) { n = len(*items) })

	return n
}

// SetSignal sets the stop signal and returns its previous value.
func (q *Queue[T]) SetSignal(value bool) bool {
	return q.state.SetSignal(value)
}

// IsSignalled reports whether consumers have been told to stop.
func (q *Queue[T]) IsSignalled() bool {
	return q.state.IsSignalled()
}

func popFront[T any](items *[]T) T {
	var zero T

	s := *items
	item := s[0]
	s[0] = zero

	if len(s) == 1 {
		*items = s[:0]
	} else {
		*items = s[1:]
	}

	return item
}
