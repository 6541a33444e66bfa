package mcp

import "github.com/wagiedev/workerctl/internal/wire"

// Status is the state of the controller session behind the tools.
type Status struct {
	SessionID  string             `json:"session_id"`
	Closed     bool               `json:"closed"`
	Pending    []wire.Instruction `json:"pending"`
	InProgress []wire.Instruction `json:"in_progress"`
}
