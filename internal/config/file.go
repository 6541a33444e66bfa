package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wagiedev/workerctl/internal/capability"
	"github.com/wagiedev/workerctl/internal/logging"
)

// File is the on-disk YAML configuration of the workerctl command.
type File struct {
	Log      LogFile               `yaml:"log"`
	Worker   WorkerFile            `yaml:"worker"`
	Endpoint EndpointFile          `yaml:"endpoint"`
	Scan     capability.ScanConfig `yaml:"scan"`
	Metrics  MetricsFile           `yaml:"metrics"`
}

// LogFile configures local logging.
type LogFile struct {
	Level string `yaml:"level"` // error|warning|info|debug|verbose
	JSON  bool   `yaml:"json"`
}

// WorkerFile configures the worker process.
type WorkerFile struct {
	Path string            `yaml:"path"`
	Args []string          `yaml:"args"`
	Env  map[string]string `yaml:"env"`
	Cwd  string            `yaml:"cwd"`
	// ForwardLevel is the minimum level of worker records sent back.
	ForwardLevel string `yaml:"forward_level"`
}

// EndpointFile holds the duplex endpoint timings, as Go duration strings.
type EndpointFile struct {
	RecvTimeout time.Duration `yaml:"recv_timeout"`
	GracePeriod time.Duration `yaml:"grace_period"`
}

// MetricsFile configures the Prometheus endpoint. Empty Listen disables it.
type MetricsFile struct {
	Listen string `yaml:"listen"`
}

// DefaultFile is written when no configuration file exists yet.
const DefaultFile = `log:
  level: info
  json: false
worker:
  forward_level: info
endpoint:
  recv_timeout: 5s
  grace_period: 5s
scan:
  sources: []
metrics:
  listen: ""
`

// Load decodes and validates YAML from r. Unknown keys are rejected. An empty
// document yields the zero File.
func Load(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}

	return &f, nil
}

// Validate checks level names and durations.
func (f *File) Validate() error {
	if _, err := logging.ParseLevel(f.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	if _, err := logging.ParseLevel(f.Worker.ForwardLevel); err != nil {
		return fmt.Errorf("worker.forward_level: %w", err)
	}

	for name, d := range map[string]time.Duration{
		"endpoint.recv_timeout": f.Endpoint.RecvTimeout,
		"endpoint.grace_period": f.Endpoint.GracePeriod,
	} {
		if d < 0 {
			return fmt.Errorf("%s: negative duration %s", name, d)
		}
	}

	if f.Scan.MaxSourceBytes < 0 {
		return fmt.Errorf("scan.max_source_bytes: negative size %d", f.Scan.MaxSourceBytes)
	}

	return nil
}

// LogLevel returns the parsed local log level.
func (f *File) LogLevel() slog.Level {
	lvl, _ := logging.ParseLevel(f.Log.Level)

	return lvl
}

// Options converts the file into session options using log.
func (f *File) Options(log *slog.Logger) *Options {
	fwd, _ := logging.ParseLevel(f.Worker.ForwardLevel)

	return &Options{
		Logger:       log,
		WorkerPath:   f.Worker.Path,
		WorkerArgs:   f.Worker.Args,
		Env:          f.Worker.Env,
		Cwd:          f.Worker.Cwd,
		RecvTimeout:  f.Endpoint.RecvTimeout,
		GracePeriod:  f.Endpoint.GracePeriod,
		ForwardLevel: fwd,
		Scan:         f.Scan,
	}
}
