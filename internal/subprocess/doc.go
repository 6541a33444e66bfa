// Package subprocess runs a worker as a child process.
//
// WorkerTransport implements config.Transport on the controller side: it
// spawns the worker and exchanges newline-delimited JSON frames over the
// child's stdin and stdout, buffering stderr for error reports.
//
// ServeWorker is the other end: it serves a protocol.Worker over a pair of
// streams, normally the process's own stdin and stdout.
package subprocess
