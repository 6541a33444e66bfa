package main

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/workerctl"
)

var (
	flagCommands []string
	flagTimeout  time.Duration
)

func init() {
	runCmd.Flags().StringSliceVarP(&flagCommands, "command", "c", nil,
		"Command to execute (find_json, get_process_id, get_thread_id, quit); repeatable. Reads commands from stdin when absent")
	runCmd.Flags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "Maximum time to wait for one command")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a worker and execute commands against it",
	RunE:  doRun,
}

func doRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	g, ctx := errgroup.WithContext(ctx)

	// The metrics endpoint lives as long as the session.
	metricsCtx, stopMetrics := context.WithCancel(ctx)
	defer stopMetrics()

	opts := sessionOptions()

	if cfg.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, workerctl.WithRegisterer(reg))

		g.Go(func() error {
			return serveMetrics(metricsCtx, cfg.Metrics.Listen, reg)
		})
	}

	g.Go(func() error {
		defer stopMetrics()

		return workerctl.WithClient(ctx, func(c workerctl.Client) error {
			logger.InfoContext(ctx, "Session started", "session_id", c.SessionID())

			commands := splitCommands(flagCommands)
			if len(commands) > 0 {
				for _, name := range commands {
					if err := execute(ctx, c, cmd.OutOrStdout(), name); err != nil {
						return err
					}
				}

				return nil
			}

			return interactive(ctx, c, cmd.InOrStdin(), cmd.OutOrStdout())
		}, opts...)
	})

	return g.Wait()
}

// sessionOptions converts the loaded configuration into client options.
func sessionOptions() []workerctl.Option {
	return []workerctl.Option{
		workerctl.WithOptions(cfg.Options(logger)),
		workerctl.WithStderr(func(line string) {
			logger.Debug("Worker stderr", "line", line)
		}),
	}
}

// interactive executes one command per input line until EOF or quit.
func interactive(ctx context.Context, c workerctl.Client, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}

		if err := execute(ctx, c, out, name); err != nil {
			if stderrors.Is(err, workerctl.ErrUnknownCommand) {
				fmt.Fprintln(out, "error:", err)

				continue
			}

			return err
		}

		if workerctl.Command(name) == workerctl.CommandQuit {
			return nil
		}
	}

	return scanner.Err()
}

func execute(ctx context.Context, c workerctl.Client, out io.Writer, name string) error {
	ctx, cancel := context.WithTimeout(ctx, flagTimeout)
	defer cancel()

	data, err := c.Execute(ctx, workerctl.Command(name))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	printData(out, name, data)

	return nil
}

func printData(out io.Writer, name string, data *workerctl.Data) {
	if data == nil {
		fmt.Fprintf(out, "%s: ok\n", name)

		return
	}

	switch data.Kind {
	case workerctl.DataKindJSON:
		for _, doc := range data.JSON {
			fmt.Fprintln(out, doc)
		}
	case workerctl.DataKindProcessID:
		fmt.Fprintf(out, "process id: %d\n", data.ProcessID)
	case workerctl.DataKindThreadID:
		fmt.Fprintf(out, "thread id: %d\n", data.ThreadID)
	default:
		fmt.Fprintf(out, "%s: %s\n", name, data)
	}
}

// serveMetrics exposes reg on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("Serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}

	if err := <-errCh; !stderrors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}

	return nil
}
