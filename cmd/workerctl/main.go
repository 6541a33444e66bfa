package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wagiedev/workerctl/internal/config"
	"github.com/wagiedev/workerctl/internal/logging"
)

const (
	configFileName = "workerctl.yaml"
	envConfigPath  = "WORKERCTL_CONFIG"
)

var (
	userConfigPath string // default config directory on given OS
	configPath     string // actual config file used (if loaded)
	cfg            *config.File
	logger         *slog.Logger

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		d = os.TempDir()
	}

	userConfigPath = filepath.Join(d, "workerctl")
}

func main() {
	// root flags
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "",
		"Config file to load - default is "+configFileName+" in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	// never print messages
	rootCmd.SilenceErrors = true

	// parse or create a config, setup logging
	rootCmd.PersistentPreRunE = initWorkerctl

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("workerctl failed", "error", err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "workerctl",
	Short:        "Drive a worker process over a duplex command channel",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of workerctl",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()

		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Fprintln(out, "workerctl: version info not available")

			return
		}

		if configPath != "" {
			fmt.Fprintf(out, "config:    %s\n", configPath)
		}

		fmt.Fprintf(out, "workerctl: %s\n", info.Main.Version)
		fmt.Fprintf(out, "go:        %s\n", info.GoVersion)

		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Fprintf(out, "commit:    %s\n", s.Value)
			case "vcs.time":
				fmt.Fprintf(out, "date:      %s\n", s.Value)
			case "vcs.modified":
				fmt.Fprintf(out, "dirty:     %s\n", s.Value)
			}
		}
	},
}

func initWorkerctl(cmd *cobra.Command, _ []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	configPath = path

	f, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	cfg, err = config.Load(f)
	if err != nil {
		return fmt.Errorf("parsing config %s: %w", configPath, err)
	}

	// --verbose has a precedence over config file
	level := cfg.LogLevel()
	if flagVerbose {
		level = slog.LevelDebug
	}

	logger = logging.New(os.Stderr, logging.Options{Level: level, JSON: cfg.Log.JSON})
	slog.SetDefault(logger)

	ctx := logging.ContextAttrs(cmd.Context(), slog.Group("workerctl",
		slog.String("cmd", cmd.Name()),
		slog.Int("pid", os.Getpid()),
	))
	cmd.SetContext(ctx)

	logger.DebugContext(ctx, "Configuration loaded", "path", configPath)

	return nil
}

// resolveConfigPath returns the config file to load: $WORKERCTL_CONFIG, then
// --config, then the first existing default location. If none exists the
// default configuration is stored in the user config directory.
func resolveConfigPath() (string, error) {
	if envConfig, ok := os.LookupEnv(envConfigPath); ok {
		return envConfig, nil
	}

	if flagConfigFilePath != "" {
		return flagConfigFilePath, nil
	}

	for _, d := range []string{userConfigPath, "."} {
		path := filepath.Join(d, configFileName)
		if exists(path) {
			return path, nil
		}
	}

	path := filepath.Join(userConfigPath, configFileName)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}

	if err := os.WriteFile(path, []byte(config.DefaultFile), 0o644); err != nil {
		return "", fmt.Errorf("storing default configuration: %w", err)
	}

	return path, nil
}

func exists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}

// splitCommands accepts comma separated or repeated command names.
func splitCommands(values []string) []string {
	var out []string

	for _, v := range values {
		for name := range strings.SplitSeq(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}

	return out
}
