package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wagiedev/workerctl/internal/capability"
	"github.com/wagiedev/workerctl/internal/cli"
	"github.com/wagiedev/workerctl/internal/config"
	"github.com/wagiedev/workerctl/internal/duplex"
	"github.com/wagiedev/workerctl/internal/logging"
	"github.com/wagiedev/workerctl/internal/subprocess"
)

var workerFlags struct {
	forwardLevel   string
	sources        []string
	marker         string
	maxSourceBytes int64
}

func init() {
	f := workerCmd.Flags()
	f.StringVar(&workerFlags.forwardLevel, "forward-level", "info", "Minimum level of records sent to the controller")
	f.StringArrayVar(&workerFlags.sources, "source", nil, "File or glob pattern scanned by find_json; repeatable")
	f.StringVar(&workerFlags.marker, "marker", "", "Marker preceding the JSON documents (default \""+capability.DefaultMarker+"\")")
	f.Int64Var(&workerFlags.maxSourceBytes, "max-source-bytes", 0, "Maximum bytes read from one source")
}

var workerCmd = &cobra.Command{
	Use:    config.DefaultWorkerCommand,
	Short:  "internal command",
	Hidden: true,
	// The worker is configured by its flags only; stdout belongs to the
	// controller channel.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE:              doWorker,
}

func doWorker(cmd *cobra.Command, _ []string) error {
	forward, err := logging.ParseLevel(workerFlags.forwardLevel)
	if err != nil {
		return fmt.Errorf("--forward-level: %w", err)
	}

	local := slog.LevelWarn
	if flagVerbose {
		local = slog.LevelDebug
	}

	log := logging.New(os.Stderr, logging.Options{Level: local})
	slog.SetDefault(log)

	ctx := logging.ContextAttrs(cmd.Context(), slog.Group("workerctl",
		slog.String("cmd", cmd.Name()),
		slog.Int("pid", os.Getpid()),
	))

	log.DebugContext(ctx, "Worker starting", "controller_pid", os.Getenv(cli.EnvControllerPID))

	return subprocess.ServeWorker(ctx, subprocess.ServeConfig{
		Logger:       log,
		ForwardLevel: forward,
		In:           os.Stdin,
		Out:          os.Stdout,
		Capabilities: capability.New(log, &capability.ScanConfig{
			Sources:        workerFlags.sources,
			Marker:         workerFlags.marker,
			MaxSourceBytes: workerFlags.maxSourceBytes,
		}),
		Endpoint: duplex.Config{},
	})
}
