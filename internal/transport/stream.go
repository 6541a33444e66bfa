package transport

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/wagiedev/workerctl/internal/errors"
	"github.com/wagiedev/workerctl/internal/wire"
)

const (
	// maxScanTokenSize is the maximum size of a single frame.
	maxScanTokenSize = 1024 * 1024 // 1MB
	// writeExitTimeout bounds how long Send waits for an abandoned write.
	writeExitTimeout = time.Second
)

// StreamSender writes one encoded frame per line to w.
type StreamSender[T any] struct {
	log    *slog.Logger
	w      io.Writer
	codec  wire.Codec[T]
	mu     sync.Mutex
	broken bool
}

// NewStreamSender creates a sender writing frames encoded by codec to w.
func NewStreamSender[T any](log *slog.Logger, w io.Writer, codec wire.Codec[T]) *StreamSender[T] {
	return &StreamSender[T]{
		log:   log.With("component", "stream_sender"),
		w:     w,
		codec: codec,
	}
}

// Send encodes v and writes it followed by a newline. The write runs in its
// own goroutine so a blocked writer cannot outlive ctx. After a write was
// abandoned the sender is broken and every later Send fails.
func (s *StreamSender[T]) Send(ctx context.Context, v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken {
		return io.ErrClosedPipe
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	frame, err := s.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	frame = append(frame, '\n')

	done := make(chan error, 1)

	go func() {
		_, werr := s.w.Write(frame)
		done <- werr
	}()

	select {
	case err := <-done:
		if err != nil {
			s.log.Debug("Failed to write frame", "error", err)

			s.broken = true

			return fmt.Errorf("write frame: %w", err)
		}

		return nil

	case <-ctx.Done():
		s.broken = true

		if c, ok := s.w.(io.Closer); ok {
			_ = c.Close()
		}

		select {
		case <-done:
		case <-time.After(writeExitTimeout):
			s.log.Warn("Write goroutine did not exit after writer close, potential leak")
		}

		return ctx.Err()
	}
}

type frameResult struct {
	frame []byte
	err   error
}

// StreamReceiver decodes newline-delimited frames read from r.
//
// Frames that fail to decode are logged and skipped, as are frames carrying
// an unknown message type. End of stream is reported as io.EOF.
type StreamReceiver[T any] struct {
	log    *slog.Logger
	codec  wire.Codec[T]
	frames chan frameResult
	done   chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
	r         io.Reader
}

// NewStreamReceiver creates a receiver decoding frames from r with codec.
// Reading starts on the first Recv.
func NewStreamReceiver[T any](log *slog.Logger, r io.Reader, codec wire.Codec[T]) *StreamReceiver[T] {
	return &StreamReceiver[T]{
		log:    log.With("component", "stream_receiver"),
		codec:  codec,
		frames: make(chan frameResult),
		done:   make(chan struct{}),
		r:      r,
	}
}

// Recv returns the next decoded value. A ctx deadline expiring is a timeout
// and the receiver remains usable afterwards.
func (s *StreamReceiver[T]) Recv(ctx context.Context) (T, error) {
	var zero T

	s.startOnce.Do(func() { go s.readLoop() })

	for {
		select {
		case res, ok := <-s.frames:
			if !ok {
				return zero, io.EOF
			}

			if res.err != nil {
				return zero, res.err
			}

			v, err := s.codec.Decode(res.frame)
			if err != nil {
				if stderrors.Is(err, errors.ErrUnknownMessageType) {
					s.log.Debug("Skipping frame with unknown message type", "error", err)
				} else {
					s.log.Warn("Skipping undecodable frame", "error", err)
				}

				continue
			}

			return v, nil

		case <-s.done:
			return zero, io.ErrClosedPipe

		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Close stops delivering frames. The read goroutine exits once the underlying
// reader returns, which for process pipes happens when the process dies.
func (s *StreamReceiver[T]) Close() error {
	s.closeOnce.Do(func() { close(s.done) })

	return nil
}

func (s *StreamReceiver[T]) readLoop() {
	defer close(s.frames)
	defer s.log.Debug("Stream read loop stopped")

	scanner := bufio.NewScanner(s.r)
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	frameCount := 0

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		frame := make([]byte, len(line))
		copy(frame, line)

		frameCount++

		select {
		case s.frames <- frameResult{frame: frame}:
		case <-s.done:
			return
		}
	}

	if err := scanner.Err(); err != nil {
		s.log.Debug("Scanner error while reading frames", "error", err, "frame_count", frameCount)

		select {
		case s.frames <- frameResult{err: fmt.Errorf("scanner error: %w", err)}:
		case <-s.done:
		}
	}
}
