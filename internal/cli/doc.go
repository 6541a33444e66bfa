// Package cli locates the worker binary and builds its command line and
// environment.
//
// # Worker Discovery
//
// The Discoverer interface locates the worker executable:
//
//	discoverer := cli.NewDiscoverer(&cli.Config{
//	    WorkerPath: "",           // Optional explicit path
//	    Logger:     slog.Default(),
//	})
//	workerPath, err := discoverer.Discover(ctx)
//
// Discovery searches in the following order:
//  1. Explicit path in Config.WorkerPath (a bare name is looked up in PATH)
//  2. The running executable, which doubles as a worker
//  3. "workerctl" in the system PATH
//
// # Command Building
//
//	args := cli.BuildArgs(options)
//	env := cli.BuildEnvironment(options)
package cli
