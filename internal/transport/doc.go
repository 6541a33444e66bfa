// Package transport provides raw one-directional links that a duplex endpoint
// can pump: an in-process channel pipe and a newline-delimited JSON stream
// over an io.Writer or io.Reader.
//
// A raw link's Recv honours the context deadline, which the endpoint uses to
// bound every receive attempt. Any other error is a hard failure.
package transport
