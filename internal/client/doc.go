// Package client implements the Client that owns one controller session.
//
// Start picks the transport (a worker subprocess unless one is injected),
// wraps it in a duplex endpoint and runs the controller's dispatch loop in the
// background, so callers only deal with pending command handles. Close
// terminates the session, flushes the quit instruction within the grace
// period and shuts the transport down.
package client
