package tracker

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"
	"weak"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/workerctl/internal/errors"
	"github.com/wagiedev/workerctl/internal/wire"
)

func TestTracker_IDsAreSequential(t *testing.T) {
	tr := New()

	for want := range wire.CommandID(5) {
		inst, p, err := tr.Issue(wire.CommandGetProcessID)
		require.NoError(t, err)
		require.Equal(t, want, inst.ID)
		require.Equal(t, want, p.ID())
		require.Equal(t, wire.CommandGetProcessID, p.Command())
	}
}

func TestTracker_ConcurrentIssueNeverReusesIDs(t *testing.T) {
	tr := New()

	var (
		mu   sync.Mutex
		seen = map[wire.CommandID]bool{}
		wg   sync.WaitGroup
	)

	for range 8 {
		wg.Go(func() {
			for range 50 {
				inst, p, err := tr.Issue(wire.CommandGetThreadID)
				assert.NoError(t, err)

				mu.Lock()
				assert.False(t, seen[inst.ID], "id %d reused", inst.ID)
				seen[inst.ID] = true
				mu.Unlock()

				p.Release()
			}
		})
	}

	wg.Wait()
	require.Len(t, seen, 400)
}

func TestTracker_AckMovesPendingToInProgress(t *testing.T) {
	tr := New()

	var handles []*Pending

	for range 3 {
		_, p, err := tr.Issue(wire.CommandFindJSON)
		require.NoError(t, err)

		handles = append(handles, p)
	}

	for i, id := range []wire.CommandID{0, 1, 2} {
		out, err := tr.Acknowledge(id)
		require.NoError(t, err)
		require.True(t, out.Found)
		require.True(t, out.Alive)
		require.False(t, out.Completed)
		require.True(t, handles[i].Started())
		require.False(t, handles[i].Completed())
	}

	pending, inProgress := tr.Snapshot()
	require.Empty(t, pending)
	require.Equal(t, []wire.Instruction{
		{ID: 0, Command: wire.CommandFindJSON},
		{ID: 1, Command: wire.CommandFindJSON},
		{ID: 2, Command: wire.CommandFindJSON},
	}, inProgress)
}

func TestTracker_AckUnknownID(t *testing.T) {
	tr := New()

	out, err := tr.Acknowledge(99)
	require.NoError(t, err)
	require.False(t, out.Found)

	_, p, err := tr.Issue(wire.CommandGetProcessID)
	require.NoError(t, err)

	defer p.Release()

	_, err = tr.Acknowledge(0)
	require.NoError(t, err)

	// A second acknowledgment for the same id is unknown.
	out, err = tr.Acknowledge(0)
	require.NoError(t, err)
	require.False(t, out.Found)
}

func TestTracker_CompleteResolvesExactlyOnce(t *testing.T) {
	tr := New()

	_, p, err := tr.Issue(wire.CommandGetProcessID)
	require.NoError(t, err)

	_, err = tr.Acknowledge(0)
	require.NoError(t, err)

	out, err := tr.Complete(wire.NewProcessIDData(0, 4242))
	require.NoError(t, err)
	require.True(t, out.Completed)

	out, err = tr.Complete(wire.NewProcessIDData(0, 1))
	require.NoError(t, err)
	require.False(t, out.Found)

	data, err := p.WaitForComplete(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint32(4242), data.ProcessID)

	_, err = p.WaitForComplete(context.Background())
	require.ErrorIs(t, err, errors.ErrHandleReleased)

	pending, inProgress := tr.Snapshot()
	require.Empty(t, pending)
	require.Empty(t, inProgress)
}

func TestTracker_QuitCompletesOnAck(t *testing.T) {
	tr := New()

	_, p, err := tr.Issue(wire.CommandQuit)
	require.NoError(t, err)

	out, err := tr.Acknowledge(0)
	require.NoError(t, err)
	require.True(t, out.Completed)

	data, err := p.WaitForComplete(context.Background())
	require.NoError(t, err)
	require.Nil(t, data)

	_, inProgress := tr.Snapshot()
	require.Empty(t, inProgress)
}

func TestTracker_ReleasedHandleIsAbandoned(t *testing.T) {
	tr := New()

	_, p, err := tr.Issue(wire.CommandGetThreadID)
	require.NoError(t, err)

	p.Release()
	p.Release()

	out, err := tr.Acknowledge(0)
	require.NoError(t, err)
	require.True(t, out.Found)
	require.False(t, out.Alive)

	// Abandoned commands are not kept in progress.
	pending, inProgress := tr.Snapshot()
	require.Empty(t, pending)
	require.Empty(t, inProgress)

	out, err = tr.Complete(wire.NewThreadIDData(0, 7))
	require.NoError(t, err)
	require.False(t, out.Found)
}

func TestPendingInstruction_MarksAfterRelease(t *testing.T) {
	c := newPendingCore(0, wire.CommandGetProcessID)
	p := newHandle(c)
	pi := &PendingInstruction{ID: 0, Command: wire.CommandGetProcessID, handle: weak.Make(c)}

	require.True(t, pi.MarkStarted())

	p.Release()

	require.False(t, pi.MarkStarted())
	require.False(t, pi.MarkCompleted(wire.NewProcessIDData(0, 1)))
}

func TestPendingInstruction_DroppedHandleIsCollected(t *testing.T) {
	pi := func() *PendingInstruction {
		c := newPendingCore(0, wire.CommandGetProcessID)
		_ = newHandle(c)

		return &PendingInstruction{ID: 0, Command: wire.CommandGetProcessID, handle: weak.Make(c)}
	}()

	require.Eventually(t, func() bool {
		runtime.GC()

		return !pi.Alive()
	}, 2*time.Second, 10*time.Millisecond)

	require.False(t, pi.MarkStarted())
}

func TestPending_StillReferenced(t *testing.T) {
	tr := New()

	_, p, err := tr.Issue(wire.CommandGetProcessID)
	require.NoError(t, err)

	clone := p.Clone()
	require.NotNil(t, clone)

	_, err = tr.Acknowledge(0)
	require.NoError(t, err)
	_, err = tr.Complete(wire.NewProcessIDData(0, 4242))
	require.NoError(t, err)

	_, err = p.WaitForComplete(context.Background())
	require.ErrorIs(t, err, errors.ErrStillReferenced)

	// The failed attempt consumed p, so the clone is now the only owner.
	data, err := clone.WaitForComplete(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint32(4242), data.ProcessID)

	require.Nil(t, p.Clone())
}

func TestPending_ShutdownReleasesWaiters(t *testing.T) {
	tr := New()

	_, p, err := tr.Issue(wire.CommandFindJSON)
	require.NoError(t, err)

	_, started, err := tr.Issue(wire.CommandGetThreadID)
	require.NoError(t, err)

	_, err = tr.Acknowledge(1)
	require.NoError(t, err)

	result := make(chan error, 1)

	go func() {
		_, err := p.WaitForComplete(context.Background())
		result <- err
	}()

	time.Sleep(10 * time.Millisecond)

	remaining := tr.Shutdown()
	require.Len(t, remaining, 2)

	select {
	case err := <-result:
		require.ErrorIs(t, err, errors.ErrSignalled)
	case <-time.After(time.Second):
		t.Fatal("WaitForComplete was not released by Shutdown")
	}

	_, err = started.WaitForComplete(context.Background())
	require.ErrorIs(t, err, errors.ErrSignalled)

	_, _, err = tr.Issue(wire.CommandQuit)
	require.ErrorIs(t, err, errors.ErrSessionClosed)
	require.True(t, tr.IsShutdown())
}

func TestTracker_ShutdownRacingIssueReleasesEveryHandle(t *testing.T) {
	for range 50 {
		tr := New()

		var (
			mu      sync.Mutex
			handles []*Pending
			wg      sync.WaitGroup
		)

		for range 4 {
			wg.Go(func() {
				for {
					_, p, err := tr.Issue(wire.CommandFindJSON)
					if err != nil {
						assert.ErrorIs(t, err, errors.ErrSessionClosed)

						return
					}

					mu.Lock()
					handles = append(handles, p)
					mu.Unlock()
				}
			})
		}

		time.Sleep(time.Millisecond)
		tr.Shutdown()
		wg.Wait()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)

		for _, p := range handles {
			_, err := p.WaitForComplete(ctx)
			require.ErrorIs(t, err, errors.ErrSignalled, "command %d was issued but never released", p.ID())
		}

		cancel()
	}
}

func TestPending_WaitForStart(t *testing.T) {
	tr := New()

	_, p, err := tr.Issue(wire.CommandGetProcessID)
	require.NoError(t, err)

	defer p.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, p.WaitForStart(ctx), context.DeadlineExceeded)

	go func() {
		time.Sleep(10 * time.Millisecond)

		_, _ = tr.Acknowledge(0)
	}()

	require.NoError(t, p.WaitForStart(context.Background()))
	require.True(t, p.Started())
}

func TestPending_WaitForCompleteContext(t *testing.T) {
	tr := New()

	_, p, err := tr.Issue(wire.CommandGetProcessID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = p.WaitForComplete(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The timed out wait consumed the only handle.
	out, err := tr.Acknowledge(0)
	require.NoError(t, err)
	require.False(t, out.Alive)
}
