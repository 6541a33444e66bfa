// Package tracker allocates command ids and follows each issued command from
// issuance through acknowledgment to completion.
//
// The caller of Issue owns a *Pending handle, a one-shot future for the
// command's result. The tracker only keeps a weak reference to the state behind
// it, so a caller that releases or drops every handle abandons the command:
// later acknowledgments and results are then accepted and discarded without
// being treated as errors.
//
// The tracker lock and a Pending's lock are never held at the same time.
package tracker
