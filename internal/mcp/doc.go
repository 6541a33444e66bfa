// Package mcp exposes worker commands as Model Context Protocol tools.
//
// Server keeps a registry of tools that can be called directly, which is how
// the package is tested, or served to MCP clients through the official SDK
// over stdio or streamable HTTP. RegisterCommands binds the data-producing
// worker commands and a session status tool to a Commander, normally a live
// controller session.
package mcp
