// Package protocol implements the two ends of a worker session.
//
// The Controller issues commands to a worker and collects what comes back:
// acknowledgments move tracked commands from pending to in progress, data
// results complete them, and worker log records are re-emitted locally. A
// receive failure tears the session down.
//
// The Worker announces itself, acknowledges every instruction before executing
// it, dispatches data commands to its Capabilities and says goodbye when told
// to quit or when its channel closes.
//
// Example usage:
//
//	endpoint := duplex.New[wire.Instruction, wire.Message](sender, receiver, nil)
//	controller := protocol.NewController(log, endpoint, nil)
//	defer controller.Close()
//
//	pending, err := controller.Send(wire.CommandGetProcessID)
//	...
//	go controller.Dispatch(ctx)
//	data, err := pending.WaitForComplete(ctx)
package protocol
