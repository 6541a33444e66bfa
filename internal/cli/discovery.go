package cli

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/wagiedev/workerctl/internal/errors"
)

// DefaultWorkerName is searched in PATH when nothing better is known.
const DefaultWorkerName = "workerctl"

// Config holds configuration for worker discovery.
type Config struct {
	// WorkerPath is an explicit worker path that skips the search.
	WorkerPath string

	// Logger is an optional logger for discovery operations.
	// If nil, a default no-op logger is used.
	Logger *slog.Logger
}

// Discoverer locates the worker binary.
type Discoverer interface {
	// Discover returns the path of the worker executable or an error.
	Discover(ctx context.Context) (string, error)
}

type discoverer struct {
	cfg        *Config
	log        *slog.Logger
	executable func() (string, error)
}

// Compile-time verification that discoverer implements Discoverer.
var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a new worker discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &discoverer{
		cfg:        cfg,
		log:        log,
		executable: os.Executable,
	}
}

// Discover locates the worker binary.
func (d *discoverer) Discover(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.log.Debug("Discovering worker binary")

	if d.cfg.WorkerPath != "" {
		return d.explicit(d.cfg.WorkerPath)
	}

	path, err := d.executable()
	if err == nil {
		d.log.Debug("Using running executable as worker", "path", path)

		return path, nil
	}

	d.log.Debug("Running executable unavailable", "error", err)

	path, err = exec.LookPath(DefaultWorkerName)
	if err != nil {
		d.log.Warn("Worker binary not found", "name", DefaultWorkerName)

		return "", &errors.WorkerNotFoundError{Path: "$PATH/" + DefaultWorkerName, Err: err}
	}

	return path, nil
}

func (d *discoverer) explicit(path string) (string, error) {
	d.log.Debug("Using explicit worker path", "path", path)

	if !strings.ContainsRune(path, os.PathSeparator) {
		found, err := exec.LookPath(path)
		if err != nil {
			return "", &errors.WorkerNotFoundError{Path: path, Err: err}
		}

		return found, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", &errors.WorkerNotFoundError{Path: path, Err: err}
	}

	if info.IsDir() {
		return "", &errors.WorkerNotFoundError{Path: path, Err: stderrors.New("is a directory")}
	}

	return path, nil
}
