package protocol

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/workerctl/internal/errors"
	"github.com/wagiedev/workerctl/internal/wire"
)

// chanWorkerEndpoint feeds instructions from a channel and records replies.
type chanWorkerEndpoint struct {
	in   chan wire.Instruction
	stop chan struct{}
	once sync.Once

	mu   sync.Mutex
	sent []wire.Message
}

func newChanWorkerEndpoint() *chanWorkerEndpoint {
	return &chanWorkerEndpoint{in: make(chan wire.Instruction, 8), stop: make(chan struct{})}
}

func (e *chanWorkerEndpoint) Send(msg wire.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sent = append(e.sent, msg)

	return nil
}

func (e *chanWorkerEndpoint) Recv() (wire.Instruction, error) {
	select {
	case inst := <-e.in:
		return inst, nil
	case <-e.stop:
		return wire.Instruction{}, errors.ErrSignalled
	}
}

func (e *chanWorkerEndpoint) Signal() {
	e.once.Do(func() { close(e.stop) })
}

func (e *chanWorkerEndpoint) messages() []wire.Message {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]wire.Message(nil), e.sent...)
}

func TestWorker_ContextEndsLoop(t *testing.T) {
	end := newChanWorkerEndpoint()
	w := NewWorker(nil, end, &fakeCaps{pid: 5})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- w.Run(ctx)
	}()

	end.in <- wire.Instruction{ID: 0, Command: wire.CommandGetProcessID}

	require.Eventually(t, func() bool { return len(end.messages()) == 3 }, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}

	require.Equal(t, []wire.Message{
		&wire.Ready{},
		&wire.Ack{ID: 0},
		wire.NewProcessIDData(0, 5),
		&wire.Exiting{},
	}, end.messages())
}

func TestWorker_QuitStopsAfterAck(t *testing.T) {
	end := newChanWorkerEndpoint()
	w := NewWorker(nil, end, &fakeCaps{})

	end.in <- wire.Instruction{ID: 3, Command: wire.CommandQuit}
	end.in <- wire.Instruction{ID: 4, Command: wire.CommandGetThreadID}

	require.NoError(t, w.Run(context.Background()))
	require.Equal(t, []wire.Message{
		&wire.Ready{},
		&wire.Ack{ID: 3},
		&wire.Exiting{},
	}, end.messages())
}
