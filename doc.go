// Package workerctl drives a worker process from a controller over a duplex
// channel of newline-delimited JSON frames.
//
// The controller issues commands (find_json, get_process_id, get_thread_id
// and quit). Every command is tracked until the worker acknowledges it and,
// for data-producing commands, until its result arrives. Callers hold a
// Pending handle per command and wait on it.
//
// # Basic Usage
//
// Use WithClient to run one session with automatic cleanup:
//
//	err := workerctl.WithClient(ctx, func(c workerctl.Client) error {
//	    data, err := c.Execute(ctx, workerctl.CommandGetProcessID)
//	    if err != nil {
//	        return err
//	    }
//
//	    fmt.Println("worker pid:", data.ProcessID)
//
//	    return nil
//	},
//	    workerctl.WithLogger(slog.Default()),
//	    workerctl.WithScanSources("/var/log/app/*.log"),
//	)
//
// # Pending Commands
//
// Send returns as soon as the instruction is queued:
//
//	pending, err := client.Send(workerctl.CommandFindJSON)
//	if err != nil {
//	    return err
//	}
//
//	data, err := pending.WaitForComplete(ctx)
//
// A handle can be cloned to share it between goroutines. Only the last
// remaining owner receives the result; the others get ErrStillReferenced.
// When the session shuts down every waiter is released with ErrSignalled.
//
// # Workers
//
// By default the client starts the workerctl binary's hidden worker
// subcommand as a subprocess. WithInProcessWorker runs the worker in a
// goroutine instead, and WithTransport injects any other Transport.
//
// # MCP
//
// ServeMCP exposes a connected client as Model Context Protocol tools over
// stdio or streamable HTTP.
package workerctl
