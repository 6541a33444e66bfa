package config

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wagiedev/workerctl/internal/capability"
	"github.com/wagiedev/workerctl/internal/protocol"
)

// DefaultWorkerCommand is the subcommand that turns the workerctl binary into
// a worker.
const DefaultWorkerCommand = "worker"

// Options configures a controller session and the worker it drives.
type Options struct {
	// Logger is the slog logger for controller output and re-emitted worker
	// records. If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// WorkerPath is the worker executable. Empty means the running binary.
	WorkerPath string

	// WorkerArgs replace the default worker arguments (DefaultWorkerCommand).
	// Scan and ForwardLevel flags are appended after them by cli.BuildArgs.
	WorkerArgs []string

	// Env holds extra environment variables for the worker process.
	Env map[string]string

	// Cwd sets the working directory for the worker process.
	Cwd string

	// RecvTimeout bounds a single raw receive attempt.
	RecvTimeout time.Duration

	// GracePeriod bounds the shutdown drain of queued instructions.
	GracePeriod time.Duration

	// ForwardLevel is the minimum level of worker records sent back over the
	// channel.
	ForwardLevel slog.Level

	// Scan configures the worker's find_json capability.
	Scan capability.ScanConfig

	// Registerer receives the session metrics. Nil disables metrics.
	Registerer prometheus.Registerer

	// Transport overrides the default subprocess transport.
	Transport Transport

	// InProcess, when set and Transport is nil, runs the worker in a goroutine
	// answering with these capabilities instead of spawning a subprocess.
	InProcess protocol.Capabilities

	// Stderr is called with each line the worker writes to stderr.
	Stderr func(string)
}
