package mcp

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server is a tool registry that can be served through the MCP SDK.
//
// The registry also supports direct programmatic invocation via CallTool.
type Server struct {
	name    string
	version string
	mu      sync.RWMutex
	tools   map[string]*tool
}

type tool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
}

// NewServer creates an empty tool registry.
func NewServer(name, version string) *Server {
	return &Server{
		name:    name,
		version: version,
		tools:   make(map[string]*tool, 4),
	}
}

// AddTool registers a tool with the server. A tool without an input schema
// accepts an empty object.
func (s *Server) AddTool(t *mcp.Tool, handler mcp.ToolHandler) {
	if t.InputSchema == nil {
		t.InputSchema = &jsonschema.Schema{Type: "object"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools[t.Name] = &tool{tool: t, handler: handler}
}

// Name returns the server name.
func (s *Server) Name() string {
	return s.name
}

// Version returns the server version.
func (s *Server) Version() string {
	return s.version
}

// ListTools returns all registered tools ordered by name.
func (s *Server) ListTools() []*mcp.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*mcp.Tool, 0, len(s.tools))
	for _, t := range s.tools {
		result = append(result, t.tool)
	}

	slices.SortFunc(result, func(a, b *mcp.Tool) int { return strings.Compare(a.Name, b.Name) })

	return result
}

// CallTool executes a tool by name with the given input. Failures are
// reported in the result, as MCP tool errors, never as a Go error.
func (s *Server) CallTool(ctx context.Context, name string, input map[string]any) *mcp.CallToolResult {
	s.mu.RLock()
	t, exists := s.tools[name]
	s.mu.RUnlock()

	if !exists {
		return ErrorResult("Tool not found: " + name)
	}

	inputBytes, err := json.Marshal(input)
	if err != nil {
		return ErrorResult("Failed to marshal input: " + err.Error())
	}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      name,
			Arguments: inputBytes,
		},
	}

	result, err := t.handler(ctx, req)
	if err != nil {
		return ErrorResult("Tool execution failed: " + err.Error())
	}

	if result == nil {
		return &mcp.CallToolResult{Content: []mcp.Content{}}
	}

	return result
}

// SDK builds an MCP SDK server carrying every registered tool.
func (s *Server) SDK() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: s.name, Version: s.version}, nil)

	for _, t := range s.ListTools() {
		s.mu.RLock()
		handler := s.tools[t.Name].handler
		s.mu.RUnlock()

		server.AddTool(t, handler)
	}

	return server
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}

// NewTool creates an mcp.Tool with the given parameters.
func NewTool(name, description string, inputSchema *jsonschema.Schema) *mcp.Tool {
	t := &mcp.Tool{
		Name:        name,
		Description: description,
	}

	if inputSchema != nil {
		t.InputSchema = inputSchema
	}

	return t
}

// ParseArguments unmarshals CallToolRequest arguments into a map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil {
		return make(map[string]any), nil
	}

	if len(req.Params.Arguments) == 0 {
		return make(map[string]any), nil
	}

	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	return args, nil
}
