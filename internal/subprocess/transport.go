package subprocess

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/wagiedev/workerctl/internal/cli"
	"github.com/wagiedev/workerctl/internal/config"
	"github.com/wagiedev/workerctl/internal/errors"
	"github.com/wagiedev/workerctl/internal/logging"
	"github.com/wagiedev/workerctl/internal/transport"
	"github.com/wagiedev/workerctl/internal/wire"
)

// maxStderrBufferSize is the maximum size for the stderr buffer.
// Stderr reading continues indefinitely (callback receives all lines),
// but the buffer stops growing after this limit to prevent unbounded memory usage.
const maxStderrBufferSize = 10 * 1024 * 1024 // 10MB

// WorkerTransport implements config.Transport by spawning a worker subprocess.
type WorkerTransport struct {
	log            *slog.Logger
	options        *config.Options
	stderrCallback func(string)

	mu          sync.Mutex
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	sender      *transport.StreamSender[wire.Instruction]
	receiver    *transport.StreamReceiver[wire.Message]
	closing     bool // Close has been called (intentional shutdown)
	stdinClosed bool

	stderrWg  sync.WaitGroup
	stderrMu  sync.Mutex
	stderrBuf strings.Builder

	waitOnce sync.Once
	waitErr  error
}

// Compile-time verification that WorkerTransport implements the Transport interface.
var _ config.Transport = (*WorkerTransport)(nil)

// NewWorkerTransport creates a transport for options. Worker discovery is
// deferred to Start, which returns WorkerNotFoundError if the worker binary
// cannot be located.
func NewWorkerTransport(log *slog.Logger, options *config.Options) *WorkerTransport {
	return &WorkerTransport{
		log:            logging.OrNop(log).With("component", "worker_transport"),
		options:        options,
		stderrCallback: options.Stderr,
	}
}

// Start discovers the worker binary and spawns it. The process is killed when
// ctx is done.
func (t *WorkerTransport) Start(ctx context.Context) error {
	t.log.Info("Starting worker subprocess")

	workerPath, err := cli.NewDiscoverer(&cli.Config{
		WorkerPath: t.options.WorkerPath,
		Logger:     t.log,
	}).Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover worker: %w", err)
	}

	args := cli.BuildArgs(t.options)
	t.log.Debug("Built worker arguments", "path", workerPath, "args", args)

	cwd := t.options.Cwd
	if cwd == "" {
		cwd, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
	}

	//nolint:gosec // G204: the worker path and arguments come from trusted configuration
	cmd := exec.CommandContext(ctx, workerPath, args...)
	cmd.Dir = cwd
	cmd.Env = cli.BuildEnvironment(t.options)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &errors.ConnectionError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &errors.ConnectionError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &errors.ConnectionError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		t.log.Error("Failed to start worker process", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("start process: %w", err)}
	}

	t.mu.Lock()
	t.cmd = cmd
	t.stdin = stdin
	t.sender = transport.NewStreamSender[wire.Instruction](t.log, stdin, wire.InstructionCodec{})
	t.receiver = transport.NewStreamReceiver[wire.Message](t.log, stdout, wire.MessageCodec{})
	t.mu.Unlock()

	// Stderr must be fully read before cmd.Wait.
	t.stderrWg.Go(func() { t.readStderr(stderr) })

	t.log.Info("Worker subprocess started", "pid", cmd.Process.Pid)

	return nil
}

// Send writes inst to the worker's stdin. If ctx ends during a blocked write,
// stdin is closed and every later Send fails.
func (t *WorkerTransport) Send(ctx context.Context, inst wire.Instruction) error {
	t.mu.Lock()
	sender, closed := t.sender, t.stdinClosed
	t.mu.Unlock()

	if sender == nil {
		return errors.ErrTransportNotConnected
	}

	if closed {
		return io.ErrClosedPipe
	}

	if err := sender.Send(ctx, inst); err != nil {
		return err
	}

	t.log.Debug("Sent instruction to worker", "id", inst.ID, "command", inst.Command)

	return nil
}

// Recv returns the next message from the worker's stdout. Once stdout is
// exhausted the process is reaped: a non-zero exit that was not caused by
// Close is reported as *errors.ProcessError, anything else as io.EOF.
func (t *WorkerTransport) Recv(ctx context.Context) (wire.Message, error) {
	t.mu.Lock()
	receiver := t.receiver
	t.mu.Unlock()

	if receiver == nil {
		return nil, errors.ErrTransportNotConnected
	}

	msg, err := receiver.Recv(ctx)
	if !stderrors.Is(err, io.EOF) {
		return msg, err
	}

	if werr := t.wait(); werr != nil {
		return nil, werr
	}

	return nil, io.EOF
}

// IsReady returns true if the worker process is running and stdin is open.
func (t *WorkerTransport) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cmd != nil && t.cmd.Process != nil && t.stdin != nil && !t.stdinClosed
}

// EndInput closes the worker's stdin. A worker treats that as the controller
// hanging up and exits after flushing its replies.
func (t *WorkerTransport) EndInput() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stdin != nil && !t.stdinClosed {
		t.log.Debug("Closing stdin pipe")

		t.stdinClosed = true

		return t.stdin.Close()
	}

	return nil
}

// Close kills the worker process and reaps it. It's safe to call Close
// multiple times or on a transport that never started.
func (t *WorkerTransport) Close() error {
	t.mu.Lock()
	t.closing = true
	t.stdinClosed = true
	cmd, receiver := t.cmd, t.receiver
	t.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if receiver != nil {
		_ = receiver.Close()
	}

	t.log.Debug("Killing worker process", "pid", cmd.Process.Pid)

	if err := cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill worker process (pid %d): %w", cmd.Process.Pid, err)
	}

	_ = t.wait()

	return nil
}

// Stderr returns what the worker wrote to stderr so far, capped at
// maxStderrBufferSize.
func (t *WorkerTransport) Stderr() string {
	t.stderrMu.Lock()
	defer t.stderrMu.Unlock()

	return t.stderrBuf.String()
}

func (t *WorkerTransport) readStderr(r io.Reader) {
	// Relies on process exit to close the pipe and end Scan.
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		t.stderrMu.Lock()

		if t.stderrBuf.Len() < maxStderrBufferSize {
			if t.stderrBuf.Len() > 0 {
				t.stderrBuf.WriteString("\n")
			}

			t.stderrBuf.WriteString(line)
		}

		t.stderrMu.Unlock()

		if t.stderrCallback != nil {
			t.stderrCallback(line)
		}
	}

	if err := scanner.Err(); err != nil {
		t.log.Debug("Stderr scanner error", "error", err)
	}
}

// wait reaps the process once and returns the exit failure, if any.
func (t *WorkerTransport) wait() error {
	t.waitOnce.Do(func() {
		t.stderrWg.Wait()

		t.log.Debug("Waiting for worker process to exit")

		err := t.cmd.Wait()
		if err == nil {
			t.log.Info("Worker process exited successfully")

			return
		}

		t.mu.Lock()
		isClosing := t.closing
		t.mu.Unlock()

		if isClosing {
			t.log.Debug("Worker process terminated during shutdown")

			return
		}

		exitCode := 0

		if exitErr, ok := stderrors.AsType[*exec.ExitError](err); ok {
			exitCode = exitErr.ExitCode()
		}

		stderr := strings.TrimSpace(t.Stderr())

		t.log.Error("Worker process exited with error", "exit_code", exitCode, "stderr", stderr)

		t.waitErr = &errors.ProcessError{
			ExitCode: exitCode,
			Stderr:   stderr,
			Err:      err,
		}
	})

	return t.waitErr
}
