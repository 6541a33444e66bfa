// Package wire defines the values exchanged between a controller and its
// worker and their JSON encoding.
//
// Instructions flow from controller to worker; Messages flow back. Each frame
// is a single JSON object. Stream transports separate frames with newlines.
package wire
