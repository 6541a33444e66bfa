package workerctl

import (
	"log/slog"
	"os"

	"github.com/wagiedev/workerctl/internal/logging"
)

// LevelVerbose is the level below debug used for per-frame tracing.
const LevelVerbose = logging.LevelVerbose

// NopLogger returns a logger that discards all output.
// Use this when you want silent operation with no logging overhead.
func NopLogger() *slog.Logger {
	return logging.Nop()
}

// NewLogger returns a text or JSON logger writing to stderr at level.
func NewLogger(level slog.Level, json bool) *slog.Logger {
	return logging.New(os.Stderr, logging.Options{Level: level, JSON: json})
}
