// Package logging builds the slog loggers used by controllers and workers,
// maps slog levels to wire severities and forwards worker records to the
// controller.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/wagiedev/workerctl/internal/wire"
)

// LevelVerbose is below slog.LevelDebug and carries wire.SeverityVerbose.
const LevelVerbose = slog.LevelDebug - 4

// Options configures New.
type Options struct {
	Level slog.Leveler
	JSON  bool
}

// New returns a logger writing to w. Attributes stored with ContextAttrs are
// added to every record logged with that context.
func New(w io.Writer, opts Options) *slog.Logger {
	hopts := &slog.HandlerOptions{
		Level:       opts.Level,
		ReplaceAttr: replaceLevel,
	}

	var base slog.Handler
	if opts.JSON {
		base = slog.NewJSONHandler(w, hopts)
	} else {
		base = slog.NewTextHandler(w, hopts)
	}

	return slog.New(NewContextHandler(base))
}

// Nop returns a logger that discards all output.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrNop returns log, or a discarding logger when log is nil.
func OrNop(log *slog.Logger) *slog.Logger {
	if log == nil {
		return Nop()
	}

	return log
}

func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= LevelVerbose {
			a.Value = slog.StringValue("VERBOSE")
		}
	}

	return a
}

type ctxKey struct{}

// ContextHandler adds attributes stored in the context to each record.
type ContextHandler struct {
	slog.Handler
}

// NewContextHandler wraps handler.
func NewContextHandler(handler slog.Handler) ContextHandler {
	return ContextHandler{Handler: handler}
}

// Handle implements slog.Handler.
func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if a, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		r.AddAttrs(a...)
	}

	return h.Handler.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithGroup(name)}
}

// ContextAttrs returns a context carrying attrs in addition to any already
// stored in ctx.
func ContextAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	prev, _ := ctx.Value(ctxKey{}).([]slog.Attr)

	a := make([]slog.Attr, 0, len(prev)+len(attrs))
	a = append(a, prev...)
	a = append(a, attrs...)

	return context.WithValue(ctx, ctxKey{}, a)
}

// ParseLevel accepts error, warning (or warn), info, debug and verbose.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "error":
		return slog.LevelError, nil
	case "warning", "warn":
		return slog.LevelWarn, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "verbose":
		return LevelVerbose, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

// SeverityLevel maps a wire severity to a slog level.
func SeverityLevel(s wire.Severity) slog.Level {
	switch s {
	case wire.SeverityError:
		return slog.LevelError
	case wire.SeverityWarning:
		return slog.LevelWarn
	case wire.SeverityInfo:
		return slog.LevelInfo
	case wire.SeverityDebug:
		return slog.LevelDebug
	default:
		return LevelVerbose
	}
}

// LevelSeverity maps a slog level to the closest wire severity.
func LevelSeverity(l slog.Level) wire.Severity {
	switch {
	case l >= slog.LevelError:
		return wire.SeverityError
	case l >= slog.LevelWarn:
		return wire.SeverityWarning
	case l >= slog.LevelInfo:
		return wire.SeverityInfo
	case l >= slog.LevelDebug:
		return wire.SeverityDebug
	default:
		return wire.SeverityVerbose
	}
}
