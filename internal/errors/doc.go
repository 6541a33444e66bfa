// Package errors defines error types for workerctl.
//
// This package provides sentinel errors for the conditions callers branch on
// (a signalled wait, a closed transport, a handle still shared) and structured
// error types that wrap the underlying failure. All error types support
// error unwrapping and can be checked using errors.Is, errors.As, and errors.AsType.
package errors
