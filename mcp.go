package workerctl

import (
	"context"
	"runtime/debug"

	internalmcp "github.com/wagiedev/workerctl/internal/mcp"
)

// MCPServerName is the implementation name announced to MCP clients.
const MCPServerName = "workerctl"

// MCPServer is a registry of MCP tools backed by a session.
type MCPServer = internalmcp.Server

// MCPServerType selects how ServeMCP serves the tools.
type MCPServerType = internalmcp.ServerType

// MCP server types.
const (
	MCPServerTypeStdio = internalmcp.ServerTypeStdio
	MCPServerTypeHTTP  = internalmcp.ServerTypeHTTP
)

// MCPServeConfig configures ServeMCP.
type MCPServeConfig = internalmcp.ServeConfig

// NewMCPServer returns a server exposing find_json, get_process_id,
// get_thread_id and session_status as tools running on c. Quit is not
// exposed; the session ends when c is closed.
func NewMCPServer(c Client) *MCPServer {
	s := internalmcp.NewServer(MCPServerName, Version())
	internalmcp.RegisterCommands(s, c)

	return s
}

// ServeMCP serves the tools of a connected client until ctx is done or the
// MCP client disconnects.
func ServeMCP(ctx context.Context, c Client, cfg MCPServeConfig) error {
	return internalmcp.Serve(ctx, NewMCPServer(c), cfg)
}

// Version returns the module version of the running binary, or "devel".
func Version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "devel"
	}

	return info.Main.Version
}
