package cli

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/wagiedev/workerctl/internal/config"
	"github.com/wagiedev/workerctl/internal/logging"
)

// EnvControllerPID tells the worker which process drives it.
const EnvControllerPID = "WORKERCTL_CONTROLLER_PID"

// BuildArgs returns the worker argument list for options. Custom WorkerArgs
// replace the default subcommand; scan and forwarding flags always follow.
func BuildArgs(options *config.Options) []string {
	args := []string{config.DefaultWorkerCommand}
	if len(options.WorkerArgs) > 0 {
		args = slices.Clone(options.WorkerArgs)
	}

	args = append(args, "--forward-level", logging.LevelSeverity(options.ForwardLevel).String())

	for _, src := range options.Scan.Sources {
		args = append(args, "--source", src)
	}

	if options.Scan.Marker != "" {
		args = append(args, "--marker", options.Scan.Marker)
	}

	if options.Scan.MaxSourceBytes > 0 {
		args = append(args, "--max-source-bytes", strconv.FormatInt(options.Scan.MaxSourceBytes, 10))
	}

	return args
}

// BuildEnvironment returns the current environment plus workerctl variables
// and options.Env, in that order so user values win.
func BuildEnvironment(options *config.Options) []string {
	env := os.Environ()
	env = append(env, fmt.Sprintf("%s=%d", EnvControllerPID, os.Getpid()))

	for _, key := range slices.Sorted(maps.Keys(options.Env)) {
		env = append(env, fmt.Sprintf("%s=%s", key, options.Env[key]))
	}

	return env
}
