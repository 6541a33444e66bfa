package logging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/wagiedev/workerctl/internal/wire"
)

// Sink receives forwarded log records.
type Sink func(*wire.Log) error

// ForwardHandler turns slog records into wire.Log messages handed to a Sink.
// Attributes are rendered into the text as key=value pairs.
type ForwardHandler struct {
	sink   Sink
	level  slog.Leveler
	prefix string
	attrs  string
}

var _ slog.Handler = (*ForwardHandler)(nil)

// NewForwardHandler forwards records at or above level to sink.
func NewForwardHandler(sink Sink, level slog.Leveler) *ForwardHandler {
	if level == nil {
		level = slog.LevelInfo
	}

	return &ForwardHandler{sink: sink, level: level}
}

// Enabled implements slog.Handler.
func (h *ForwardHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

// Handle implements slog.Handler. Sink errors are returned to slog, which
// drops them.
func (h *ForwardHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	b.WriteString(r.Message)
	b.WriteString(h.attrs)

	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.prefix, a)

		return true
	})

	return h.sink(&wire.Log{
		Time:     r.Time,
		Severity: LevelSeverity(r.Level),
		Text:     b.String(),
	})
}

// WithAttrs implements slog.Handler.
func (h *ForwardHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder

	b.WriteString(h.attrs)

	for _, a := range attrs {
		writeAttr(&b, h.prefix, a)
	}

	clone := *h
	clone.attrs = b.String()

	return &clone
}

// WithGroup implements slog.Handler.
func (h *ForwardHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	clone := *h
	clone.prefix = h.prefix + name + "."

	return &clone
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}

		for _, ga := range a.Value.Group() {
			writeAttr(b, p, ga)
		}

		return
	}

	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(a.Value.String())
}

// Fanout sends each record to every handler that enables its level.
type Fanout []slog.Handler

var _ slog.Handler = Fanout(nil)

// Enabled implements slog.Handler.
func (f Fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}

	return false
}

// Handle implements slog.Handler and returns the first handler error.
func (f Fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error

	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}

		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}

	return first
}

// WithAttrs implements slog.Handler.
func (f Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(Fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}

	return out
}

// WithGroup implements slog.Handler.
func (f Fanout) WithGroup(name string) slog.Handler {
	out := make(Fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}

	return out
}
