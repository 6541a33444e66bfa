package capability

import (
	"context"
	"log/slog"
	"os"

	"github.com/wagiedev/workerctl/internal/logging"
)

// Local executes commands inside the worker process.
type Local struct {
	log     *slog.Logger
	scanner *Scanner
}

// New creates the local capability set. A nil scanner config disables
// FindJSON sources but keeps the command answering with no documents.
func New(log *slog.Logger, scan *ScanConfig) *Local {
	log = logging.OrNop(log).With("component", "capability")

	return &Local{
		log:     log,
		scanner: NewScanner(log, scan),
	}
}

// FindJSON scans the configured sources.
func (l *Local) FindJSON(ctx context.Context) ([]string, error) {
	return l.scanner.Scan(ctx)
}

// ProcessID returns the worker's process id.
func (l *Local) ProcessID(context.Context) (uint32, error) {
	return uint32(os.Getpid()), nil //nolint:gosec // pids are positive and fit in 32 bits
}

// ThreadID returns the id of the OS thread executing the call.
func (l *Local) ThreadID(context.Context) (uint32, error) {
	return threadID()
}
