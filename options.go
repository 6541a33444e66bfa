package workerctl

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wagiedev/workerctl/internal/config"
)

// Options configures a client session.
type Options = config.Options

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Basic Configuration =====

// WithOptions starts from a copy of base, typically loaded from a
// configuration file. Later options override its fields.
func WithOptions(base *Options) Option {
	return func(o *Options) {
		if base != nil {
			*o = *base
		}
	}
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithWorkerPath sets the worker binary. By default the running executable
// is used, then workerctl from PATH.
func WithWorkerPath(path string) Option {
	return func(o *Options) {
		o.WorkerPath = path
	}
}

// WithWorkerArgs replaces the leading worker arguments (default: "worker").
func WithWorkerArgs(args ...string) Option {
	return func(o *Options) {
		o.WorkerArgs = args
	}
}

// WithEnv adds environment variables for the worker process.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		o.Env = env
	}
}

// WithCwd sets the working directory of the worker process.
func WithCwd(cwd string) Option {
	return func(o *Options) {
		o.Cwd = cwd
	}
}

// WithStderr sets a callback receiving each stderr line of the worker.
func WithStderr(handler func(string)) Option {
	return func(o *Options) {
		o.Stderr = handler
	}
}

// ===== Channel Timings =====

// WithRecvTimeout bounds each raw receive. A timed out receive is retried.
func WithRecvTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.RecvTimeout = d
	}
}

// WithGracePeriod bounds how long queued instructions may still go out after
// the session is terminated.
func WithGracePeriod(d time.Duration) Option {
	return func(o *Options) {
		o.GracePeriod = d
	}
}

// ===== Worker Behaviour =====

// WithForwardLevel sets the minimum level of worker records forwarded to the
// controller.
func WithForwardLevel(level slog.Level) Option {
	return func(o *Options) {
		o.ForwardLevel = level
	}
}

// WithScanSources sets the files or glob patterns find_json reads.
func WithScanSources(sources ...string) Option {
	return func(o *Options) {
		o.Scan.Sources = sources
	}
}

// WithScanMarker makes find_json only consider text after the marker.
func WithScanMarker(marker string) Option {
	return func(o *Options) {
		o.Scan.Marker = marker
	}
}

// WithMaxSourceBytes caps how much of each source find_json reads.
func WithMaxSourceBytes(n int64) Option {
	return func(o *Options) {
		o.Scan.MaxSourceBytes = n
	}
}

// ===== Advanced =====

// WithRegisterer registers the controller metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *Options) {
		o.Registerer = reg
	}
}

// WithTransport injects a custom transport implementation.
// The transport must implement the Transport interface.
func WithTransport(transport Transport) Option {
	return func(o *Options) {
		o.Transport = transport
	}
}

// WithInProcessWorker runs the worker in a goroutine of this process,
// answering commands with caps, instead of spawning a subprocess.
func WithInProcessWorker(caps Capabilities) Option {
	return func(o *Options) {
		o.InProcess = caps
	}
}
