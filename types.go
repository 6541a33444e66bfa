package workerctl

import (
	"github.com/wagiedev/workerctl/internal/mcp"
	"github.com/wagiedev/workerctl/internal/protocol"
	"github.com/wagiedev/workerctl/internal/tracker"
	"github.com/wagiedev/workerctl/internal/wire"
)

// Command names an operation the worker performs.
type Command = wire.Command

// Commands understood by the worker.
const (
	CommandFindJSON     = wire.CommandFindJSON
	CommandGetProcessID = wire.CommandGetProcessID
	CommandGetThreadID  = wire.CommandGetThreadID
	CommandQuit         = wire.CommandQuit
)

// CommandID identifies one issued command within a session.
type CommandID = wire.CommandID

// Instruction is a command as sent to the worker.
type Instruction = wire.Instruction

// Data is the result of a data-producing command.
type Data = wire.Data

// DataKind tells which field of Data is set.
type DataKind = wire.DataKind

// Data kinds.
const (
	DataKindJSON      = wire.DataKindJSON
	DataKindProcessID = wire.DataKindProcessID
	DataKindThreadID  = wire.DataKindThreadID
)

// Pending is an owning handle to an issued command.
type Pending = tracker.Pending

// Status describes a session and its outstanding commands.
type Status = mcp.Status

// Capabilities executes the data-producing commands on the worker side.
type Capabilities = protocol.Capabilities
