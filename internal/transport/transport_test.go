package transport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wagiedev/workerctl/internal/wire"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipe_SendRecv(t *testing.T) {
	p := NewPipe[int](4)
	ctx := context.Background()

	require.NoError(t, p.Send(ctx, 1))
	require.NoError(t, p.Send(ctx, 2))

	v, err := p.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, v)

	require.NoError(t, p.Close())
	require.ErrorIs(t, p.Send(ctx, 3), io.ErrClosedPipe)

	// Buffered values survive the close.
	v, err = p.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, v)

	_, err = p.Recv(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestPipe_RecvTimeout(t *testing.T) {
	p := NewPipe[int](0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Recv(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStreamSender_WritesOneFramePerLine(t *testing.T) {
	var buf bytes.Buffer

	s := NewStreamSender[wire.Instruction](nopLogger(), &buf, wire.InstructionCodec{})

	require.NoError(t, s.Send(context.Background(), wire.Instruction{ID: 0, Command: wire.CommandGetProcessID}))
	require.NoError(t, s.Send(context.Background(), wire.Instruction{ID: 1, Command: wire.CommandQuit}))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	require.JSONEq(t, `{"id":0,"command":"get_process_id"}`, lines[0])
	require.JSONEq(t, `{"id":1,"command":"quit"}`, lines[1])
}

func TestStreamSender_EncodeErrorDoesNotBreak(t *testing.T) {
	var buf bytes.Buffer

	s := NewStreamSender[wire.Instruction](nopLogger(), &buf, wire.InstructionCodec{})

	require.Error(t, s.Send(context.Background(), wire.Instruction{Command: "bogus"}))
	require.NoError(t, s.Send(context.Background(), wire.Instruction{Command: wire.CommandQuit}))
}

func TestStreamSender_CancelledWriteBreaksSender(t *testing.T) {
	pr, pw := io.Pipe()
	defer pr.Close()

	s := NewStreamSender[wire.Instruction](nopLogger(), pw, wire.InstructionCodec{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// Nobody reads pr, so the write blocks until the writer is closed.
	err := s.Send(ctx, wire.Instruction{Command: wire.CommandQuit})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	err = s.Send(context.Background(), wire.Instruction{Command: wire.CommandQuit})
	require.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestStreamReceiver_DecodesAndSkips(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"ready"}`,
		`garbage`,
		``,
		`{"type":"heartbeat"}`,
		`{"type":"ack","id":0}`,
		`{"type":"data","data":{"id":0,"kind":"process_id","process_id":4242}}`,
	}, "\n")

	r := NewStreamReceiver[wire.Message](nopLogger(), strings.NewReader(input), wire.MessageCodec{})
	defer r.Close()

	ctx := context.Background()

	msg, err := r.Recv(ctx)
	require.NoError(t, err)
	require.IsType(t, &wire.Ready{}, msg)

	msg, err = r.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, &wire.Ack{ID: 0}, msg)

	msg, err = r.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, wire.NewProcessIDData(0, 4242), msg)

	_, err = r.Recv(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestStreamReceiver_TimeoutIsRecoverable(t *testing.T) {
	pr, pw := io.Pipe()

	r := NewStreamReceiver[wire.Message](nopLogger(), pr, wire.MessageCodec{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.Recv(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	go func() {
		_, _ = pw.Write([]byte(`{"type":"exiting"}` + "\n"))
		_ = pw.Close()
	}()

	msg, err := r.Recv(context.Background())
	require.NoError(t, err)
	require.IsType(t, &wire.Exiting{}, msg)

	_, err = r.Recv(context.Background())
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, r.Close())
}
