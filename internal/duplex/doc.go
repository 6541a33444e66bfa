// Package duplex turns a raw sender and a raw receiver into a channel endpoint
// with one outbound and one inbound queue, each serviced by a background pump.
//
// The sender pump forwards queued items until the endpoint is signalled, then
// keeps forwarding already queued items for a bounded grace period so that
// code racing with shutdown can still get a final message out. The receiver
// pump performs bounded receives, treating timeouts as "try again" and any
// other error as the end of the link.
//
// Close joins both pumps, so no goroutine outlives the endpoint.
package duplex
