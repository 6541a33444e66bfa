package mcp

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/workerctl/internal/wire"
)

// Tool names.
const (
	ToolFindJSON      = "find_json"
	ToolGetProcessID  = "get_process_id"
	ToolGetThreadID   = "get_thread_id"
	ToolSessionStatus = "session_status"
)

// Commander runs worker commands on behalf of the tools.
type Commander interface {
	// Execute issues cmd and waits for its result.
	Execute(ctx context.Context, cmd wire.Command) (*wire.Data, error)
	// Status describes the session.
	Status() Status
}

// RegisterCommands adds the worker command tools and the status tool to s.
func RegisterCommands(s *Server, c Commander) {
	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true}

	findJSON := NewTool(ToolFindJSON,
		"Scan the worker's configured sources for JSON documents following the marker.",
		&jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"limit": {Type: "integer", Description: "Return at most this many documents (0 means all)."},
			},
		})
	findJSON.Annotations = readOnly

	s.AddTool(findJSON, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := ParseArguments(req)
		if err != nil {
			return ErrorResult(err.Error()), nil
		}

		limit, err := intArgument(args, "limit")
		if err != nil {
			return ErrorResult(err.Error()), nil
		}

		data, err := c.Execute(ctx, wire.CommandFindJSON)
		if err != nil {
			return ErrorResult(err.Error()), nil
		}

		docs := data.JSON
		if limit > 0 && len(docs) > limit {
			docs = docs[:limit]
		}

		content := make([]mcp.Content, 0, len(docs))
		for _, doc := range docs {
			content = append(content, &mcp.TextContent{Text: doc})
		}

		return &mcp.CallToolResult{Content: content}, nil
	})

	for _, def := range []struct {
		name, description string
		cmd               wire.Command
	}{
		{ToolGetProcessID, "Return the worker's process id.", wire.CommandGetProcessID},
		{ToolGetThreadID, "Return the id of the worker thread serving commands.", wire.CommandGetThreadID},
	} {
		cmd := def.cmd
		t := NewTool(def.name, def.description, nil)
		t.Annotations = readOnly

		s.AddTool(t, func(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			data, err := c.Execute(ctx, cmd)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}

			id := data.ProcessID
			if cmd == wire.CommandGetThreadID {
				id = data.ThreadID
			}

			return TextResult(fmt.Sprint(id)), nil
		})
	}

	status := NewTool(ToolSessionStatus, "Describe the controller session and its outstanding commands.", nil)
	status.Annotations = readOnly

	s.AddTool(status, func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(c.Status())
		if err != nil {
			return nil, err
		}

		return TextResult(string(b)), nil
	})
}

func intArgument(args map[string]any, name string) (int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return 0, nil
	}

	f, ok := v.(float64)
	if !ok || f < 0 || f != float64(int(f)) {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}

	return int(f), nil
}
