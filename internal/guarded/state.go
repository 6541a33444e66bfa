// Package guarded provides a value protected by a mutex and condition variable
// together with a sticky shutdown signal.
//
// Every blocking wait is predicate based and observes the signal, so setting
// the signal releases all waiters. A panic raised while the lock is held
// poisons the state instead of taking down the process: the panicking call and
// every later lock operation return *errors.PoisonedError carrying the last
// observed signal value.
package guarded

import (
	"context"
	"sync"
	"time"

	"github.com/wagiedev/workerctl/internal/errors"
)

// Func receives the guarded value and the current signal while the lock is held.
type Func[T any] func(value *T, signalled bool)

// Cond reports whether a waiter should keep waiting.
type Cond[T any] func(value *T, signalled bool) bool

// State wraps a value with a lock, a condition variable and a shutdown signal.
type State[T any] struct {
	mu        sync.Mutex
	cond      *sync.Cond
	value     T
	signalled bool
	poisoned  bool
}

// New creates a State holding value.
func New[T any](value T) *State[T] {
	s := &State[T]{value: value}
	s.cond = sync.NewCond(&s.mu)

	return s
}

// Lock runs fn with exclusive access to the value.
func (s *State[T]) Lock(fn Func[T]) (err error) {
	s.mu.Lock()
	defer s.release()
	defer s.recoverPoison(&err)

	if s.poisoned {
		return s.poisonedError(nil)
	}

	s.run(fn)

	return nil
}

// LockWaitWhile blocks while cond holds, then runs fn with the lock held.
func (s *State[T]) LockWaitWhile(cond Cond[T], fn Func[T]) (err error) {
	s.mu.Lock()
	defer s.release()
	defer s.recoverPoison(&err)

	for {
		if s.poisoned {
			return s.poisonedError(nil)
		}

		if !cond(&s.value, s.signalled) {
			break
		}

		s.cond.Wait()
	}

	s.run(fn)

	return nil
}

// LockWaitWhileTimeout is LockWaitWhile bounded by d. It returns false, without
// running fn, when the deadline elapsed while cond still held.
func (s *State[T]) LockWaitWhileTimeout(d time.Duration, cond Cond[T], fn Func[T]) (ok bool, err error) {
	deadline := time.Now().Add(d)

	timer := time.AfterFunc(d, s.wake)
	defer timer.Stop()

	s.mu.Lock()
	defer s.release()
	defer s.recoverPoison(&err)

	for {
		if s.poisoned {
			return false, s.poisonedError(nil)
		}

		if !cond(&s.value, s.signalled) {
			break
		}

		if !time.Now().Before(deadline) {
			return false, nil
		}

		s.cond.Wait()
	}

	s.run(fn)

	return true, nil
}

// LockWaitWhileContext is LockWaitWhile that also returns ctx.Err() once ctx
// is done, without running fn.
func (s *State[T]) LockWaitWhileContext(ctx context.Context, cond Cond[T], fn Func[T]) (err error) {
	stop := context.AfterFunc(ctx, s.wake)
	defer stop()

	s.mu.Lock()
	defer s.release()
	defer s.recoverPoison(&err)

	for {
		if s.poisoned {
			return s.poisonedError(nil)
		}

		if !cond(&s.value, s.signalled) {
			break
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		s.cond.Wait()
	}

	s.run(fn)

	return nil
}

// SetSignal sets the shutdown signal, wakes every waiter and returns the
// previous value. It works on poisoned state too.
func (s *State[T]) SetSignal(value bool) bool {
	s.mu.Lock()
	defer s.release()

	old := s.signalled
	s.signalled = value

	return old
}

// IsSignalled reports the shutdown signal without waiting on any predicate.
func (s *State[T]) IsSignalled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.signalled
}

// IsPoisoned reports whether a holder panicked while holding the lock.
func (s *State[T]) IsPoisoned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.poisoned
}

// WaitForSignal blocks until the signal is set.
func (s *State[T]) WaitForSignal() error {
	return s.LockWaitWhile(func(_ *T, signalled bool) bool { return !signalled }, nil)
}

func (s *State[T]) run(fn Func[T]) {
	if fn != nil {
		fn(&s.value, s.signalled)
	}
}

// release wakes waiters so they re-evaluate their predicates, then unlocks.
func (s *State[T]) release() {
	s.cond.Broadcast()
	s.mu.Unlock()
}

// wake is used by timers and context callbacks; taking the lock guarantees the
// waiter is parked in Wait before the broadcast.
func (s *State[T]) wake() {
	s.mu.Lock()
	s.cond.Broadcast()
	s.mu.Unlock()
}

// recoverPoison must be deferred while the lock is held.
func (s *State[T]) recoverPoison(err *error) {
	if r := recover(); r != nil {
		s.poisoned = true
		*err = s.poisonedError(r)
	}
}

func (s *State[T]) poisonedError(cause any) error {
	return &errors.PoisonedError{Signalled: s.signalled, Cause: cause}
}
