package tracker

import (
	"slices"
	"weak"

	"github.com/wagiedev/workerctl/internal/errors"
	"github.com/wagiedev/workerctl/internal/guarded"
	"github.com/wagiedev/workerctl/internal/wire"
)

type trackerState struct {
	nextID     wire.CommandID
	pending    []*PendingInstruction
	inProgress []*PendingInstruction
}

// Tracker records issued commands until they are acknowledged and completed.
type Tracker struct {
	state *guarded.State[trackerState]
}

// Outcome describes what the tracker did with an acknowledgment or result.
type Outcome struct {
	// Instruction is the tracked command, valid when Found is true.
	Instruction wire.Instruction
	// Found is false for unknown or already resolved ids.
	Found bool
	// Alive is false when the caller abandoned the command.
	Alive bool
	// Completed is true when this step resolved the command.
	Completed bool
}

// New creates an empty Tracker. The first issued id is 0.
func New() *Tracker {
	return &Tracker{state: guarded.New(trackerState{})}
}

// Issue allocates the next id for cmd and starts tracking it. The returned
// Pending is the caller's owning handle.
func (t *Tracker) Issue(cmd wire.Command) (wire.Instruction, *Pending, error) {
	var (
		core   *pendingCore
		handle *Pending
		closed bool
	)

	err := t.state.Lock(func(s *trackerState, signalled bool) {
		if signalled {
			closed = true

			return
		}

		id := s.nextID
		s.nextID++

		core = newPendingCore(id, cmd)
		handle = newHandle(core)

		s.pending = append(s.pending, &PendingInstruction{
			ID:      id,
			Command: cmd,
			handle:  weak.Make(core),
		})
	})
	if err != nil {
		return wire.Instruction{}, nil, err
	}

	if closed {
		return wire.Instruction{}, nil, errors.ErrSessionClosed
	}

	return wire.Instruction{ID: core.id, Command: cmd}, handle, nil
}

// Acknowledge moves the command with id from pending to in progress and
// marks it started. Abandoned commands are dropped from tracking, and
// commands that produce no data complete here.
func (t *Tracker) Acknowledge(id wire.CommandID) (Outcome, error) {
	var pi *PendingInstruction

	err := t.state.Lock(func(s *trackerState, _ bool) {
		pi = take(&s.pending, id)
		if pi != nil && pi.Alive() && pi.Command.ProducesData() {
			s.inProgress = append(s.inProgress, pi)
		}
	})
	if err != nil || pi == nil {
		return Outcome{}, err
	}

	out := Outcome{Instruction: pi.Instruction(), Found: true}

	if pi.Command.ProducesData() {
		out.Alive = pi.MarkStarted()
	} else {
		out.Alive = pi.MarkCompleted(nil)
		out.Completed = out.Alive
	}

	return out, nil
}

// Complete resolves the command that data answers.
func (t *Tracker) Complete(data *wire.Data) (Outcome, error) {
	var pi *PendingInstruction

	err := t.state.Lock(func(s *trackerState, _ bool) {
		pi = take(&s.inProgress, data.ID)
		if pi == nil {
			// A result without a preceding acknowledgment still resolves the
			// command.
			pi = take(&s.pending, data.ID)
		}
	})
	if err != nil || pi == nil {
		return Outcome{}, err
	}

	alive := pi.MarkCompleted(data)

	return Outcome{
		Instruction: pi.Instruction(),
		Found:       true,
		Alive:       alive,
		Completed:   alive,
	}, nil
}

// Shutdown stops issuance and releases every waiter on a tracked command with
// errors.ErrSignalled. It returns the instructions that were still tracked.
func (t *Tracker) Shutdown() []wire.Instruction {
	var tracked []*PendingInstruction

	// Signal before collecting so no Issue can slip in after the snapshot.
	t.state.SetSignal(true)

	_ = t.state.Lock(func(s *trackerState, _ bool) {
		tracked = append(tracked, s.pending...)
		tracked = append(tracked, s.inProgress...)
		s.pending = nil
		s.inProgress = nil
	})

	out := make([]wire.Instruction, 0, len(tracked))

	for _, pi := range tracked {
		pi.signal()

		out = append(out, pi.Instruction())
	}

	return out
}

// IsShutdown reports whether Shutdown was called.
func (t *Tracker) IsShutdown() bool {
	return t.state.IsSignalled()
}

// Snapshot returns the instructions awaiting acknowledgment and those
// acknowledged but not completed, in issuance order.
func (t *Tracker) Snapshot() (pending, inProgress []wire.Instruction) {
	_ = t.state.Lock(func(s *trackerState, _ bool) {
		pending = instructions(s.pending)
		inProgress = instructions(s.inProgress)
	})

	return pending, inProgress
}

func take(list *[]*PendingInstruction, id wire.CommandID) *PendingInstruction {
	i := slices.IndexFunc(*list, func(pi *PendingInstruction) bool { return pi.ID == id })
	if i < 0 {
		return nil
	}

	pi := (*list)[i]
	*list = slices.Delete(*list, i, i+1)

	return pi
}

func instructions(list []*PendingInstruction) []wire.Instruction {
	out := make([]wire.Instruction, 0, len(list))
	for _, pi := range list {
		out = append(out, pi.Instruction())
	}

	return out
}
