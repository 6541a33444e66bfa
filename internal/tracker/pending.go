package tracker

import (
	"context"
	"runtime"
	"sync/atomic"
	"weak"

	"github.com/wagiedev/workerctl/internal/errors"
	"github.com/wagiedev/workerctl/internal/guarded"
	"github.com/wagiedev/workerctl/internal/wire"
)

type pendingState struct {
	started   bool
	completed bool
	result    *wire.Data
}

// pendingCore is shared by every handle to one command.
type pendingCore struct {
	id      wire.CommandID
	command wire.Command
	state   *guarded.State[pendingState]
	refs    atomic.Int64
}

func (c *pendingCore) alive() bool {
	return c.refs.Load() > 0
}

// Pending is an owning handle to an issued command.
//
// Each handle counts as one owner until it is released, consumed by
// WaitForComplete, or garbage collected. A result can only be taken by the
// last remaining owner.
type Pending struct {
	core     *pendingCore
	released atomic.Bool
	cleanup  runtime.Cleanup
}

func newPendingCore(id wire.CommandID, command wire.Command) *pendingCore {
	return &pendingCore{
		id:      id,
		command: command,
		state:   guarded.New(pendingState{}),
	}
}

func newHandle(c *pendingCore) *Pending {
	c.refs.Add(1)

	p := &Pending{core: c}
	p.cleanup = runtime.AddCleanup(p, func(c *pendingCore) { c.refs.Add(-1) }, c)

	return p
}

// ID returns the command id.
func (p *Pending) ID() wire.CommandID { return p.core.id }

// Command returns the issued command.
func (p *Pending) Command() wire.Command { return p.core.command }

// Clone returns an additional owning handle, or nil if p was already released.
func (p *Pending) Clone() *Pending {
	if p.released.Load() {
		return nil
	}

	return newHandle(p.core)
}

// Release gives up this handle's ownership. Releasing twice is a no-op.
func (p *Pending) Release() {
	if !p.released.Swap(true) {
		p.cleanup.Stop()
		p.core.refs.Add(-1)
	}
}

// Started reports whether the worker acknowledged the command.
func (p *Pending) Started() bool {
	var started bool

	_ = p.core.state.Lock(func(s *pendingState, _ bool) { started = s.started })

	return started
}

// Completed reports whether the command's result arrived.
func (p *Pending) Completed() bool {
	var completed bool

	_ = p.core.state.Lock(func(s *pendingState, _ bool) { completed = s.completed })

	return completed
}

// WaitForStart blocks until the worker acknowledged the command, the session
// shut down, or ctx is done. Only ctx and poisoning produce an error.
func (p *Pending) WaitForStart(ctx context.Context) error {
	return p.core.state.LockWaitWhileContext(ctx,
		func(s *pendingState, signalled bool) bool { return !s.started && !signalled },
		nil,
	)
}

// WaitForComplete blocks until the command completed and returns its result.
// It consumes this handle whatever the outcome.
//
// It returns errors.ErrSignalled when the session shut down first,
// errors.ErrStillReferenced when other owners exist, errors.ErrHandleReleased
// when the handle was already consumed, and a *errors.PoisonedError when the
// handle's state is unusable. Commands that produce no data complete with a
// nil result.
func (p *Pending) WaitForComplete(ctx context.Context) (*wire.Data, error) {
	if p.released.Swap(true) {
		return nil, errors.ErrHandleReleased
	}

	p.cleanup.Stop()

	var (
		result    *wire.Data
		owners    int64
		signalled bool
		consumed  bool
	)

	err := p.core.state.LockWaitWhileContext(ctx,
		func(s *pendingState, sig bool) bool { return !s.completed && !sig },
		func(s *pendingState, sig bool) {
			consumed = true
			signalled = sig
			owners = p.core.refs.Add(-1) + 1

			if !sig && owners == 1 {
				result, s.result = s.result, nil
			}
		},
	)
	if !consumed {
		p.core.refs.Add(-1)
	}

	switch {
	case err != nil:
		return nil, err
	case signalled:
		return nil, errors.ErrSignalled
	case owners != 1:
		return nil, errors.ErrStillReferenced
	default:
		return result, nil
	}
}

// PendingInstruction is the tracker's non-owning view of an issued command.
type PendingInstruction struct {
	ID      wire.CommandID
	Command wire.Command
	handle  weak.Pointer[pendingCore]
}

// Instruction returns the wire form of the tracked command.
func (pi *PendingInstruction) Instruction() wire.Instruction {
	return wire.Instruction{ID: pi.ID, Command: pi.Command}
}

// Alive reports whether any owner still holds a handle to the command.
func (pi *PendingInstruction) Alive() bool {
	c := pi.handle.Value()

	return c != nil && c.alive()
}

// MarkStarted records the acknowledgment. It returns false, doing nothing,
// when the command was abandoned.
func (pi *PendingInstruction) MarkStarted() bool {
	return pi.mark(func(s *pendingState) { s.started = true })
}

// MarkCompleted records the result and implies started. It returns false,
// doing nothing, when the command was abandoned.
func (pi *PendingInstruction) MarkCompleted(data *wire.Data) bool {
	return pi.mark(func(s *pendingState) {
		s.started = true
		s.completed = true
		s.result = data
	})
}

// mark reports a poisoned but still referenced command as alive; the owner
// observes the poisoning when it waits.
func (pi *PendingInstruction) mark(fn func(*pendingState)) bool {
	c := pi.handle.Value()
	if c == nil || !c.alive() {
		return false
	}

	_ = c.state.Lock(func(s *pendingState, _ bool) { fn(s) })

	return true
}

func (pi *PendingInstruction) signal() {
	if c := pi.handle.Value(); c != nil {
		c.state.SetSignal(true)
	}
}
