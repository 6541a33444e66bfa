// Package capability implements the commands a worker executes: reporting its
// process and thread ids and scanning configured sources for JSON documents
// that follow a marker.
package capability
