package mcp

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	mcpgo "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/workerctl/internal/wire"
)

func nopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fakeCommander struct {
	mu       sync.Mutex
	docs     []string
	err      error
	executed []wire.Command
}

func (f *fakeCommander) Execute(_ context.Context, cmd wire.Command) (*wire.Data, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.executed = append(f.executed, cmd)

	if f.err != nil {
		return nil, f.err
	}

	switch cmd {
	case wire.CommandFindJSON:
		return wire.NewJSONData(0, f.docs), nil
	case wire.CommandGetProcessID:
		return wire.NewProcessIDData(1, 4242), nil
	default:
		return wire.NewThreadIDData(2, 77), nil
	}
}

func (f *fakeCommander) Status() Status {
	return Status{
		SessionID: "01JABCDEFGHJKMNPQRSTVWXYZ0",
		Pending:   []wire.Instruction{{ID: 3, Command: wire.CommandFindJSON}},
	}
}

func textOf(t *testing.T, result *mcpgo.CallToolResult) []string {
	t.Helper()

	texts := make([]string, 0, len(result.Content))

	for _, c := range result.Content {
		tc, ok := c.(*mcpgo.TextContent)
		require.True(t, ok, "expected text content, got %T", c)

		texts = append(texts, tc.Text)
	}

	return texts
}

func TestServerMetadata(t *testing.T) {
	server := NewServer("workerctl", "1.2.3")

	require.Equal(t, "workerctl", server.Name())
	require.Equal(t, "1.2.3", server.Version())
	require.Empty(t, server.ListTools())
}

func TestServerCallTool_Errors(t *testing.T) {
	server := NewServer("workerctl", "1.0.0")
	server.AddTool(
		NewTool("fails", "always fails", nil),
		func(context.Context, *mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			return nil, errors.New("boom")
		},
	)

	result := server.CallTool(context.Background(), "fails", nil)
	require.True(t, result.IsError)
	require.Equal(t, []string{"Tool execution failed: boom"}, textOf(t, result))

	missing := server.CallTool(context.Background(), "unknown", map[string]any{})
	require.True(t, missing.IsError)
	require.Equal(t, []string{"Tool not found: unknown"}, textOf(t, missing))
}

func TestRegisterCommands_ListTools(t *testing.T) {
	server := NewServer("workerctl", "1.0.0")
	RegisterCommands(server, &fakeCommander{})

	tools := server.ListTools()

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
		require.NotNil(t, tool.InputSchema)
		require.True(t, tool.Annotations.ReadOnlyHint)
	}

	require.Equal(t, []string{ToolFindJSON, ToolGetProcessID, ToolGetThreadID, ToolSessionStatus}, names)
}

func TestRegisterCommands_CallTools(t *testing.T) {
	commander := &fakeCommander{docs: []string{`{"a":1}`, `{"b":2}`, `{"c":3}`}}
	server := NewServer("workerctl", "1.0.0")
	RegisterCommands(server, commander)

	ctx := context.Background()

	result := server.CallTool(ctx, ToolGetProcessID, nil)
	require.False(t, result.IsError)
	require.Equal(t, []string{"4242"}, textOf(t, result))

	result = server.CallTool(ctx, ToolGetThreadID, nil)
	require.Equal(t, []string{"77"}, textOf(t, result))

	result = server.CallTool(ctx, ToolFindJSON, map[string]any{"limit": 2})
	require.Equal(t, []string{`{"a":1}`, `{"b":2}`}, textOf(t, result))

	result = server.CallTool(ctx, ToolFindJSON, nil)
	require.Len(t, result.Content, 3)

	result = server.CallTool(ctx, ToolFindJSON, map[string]any{"limit": -1})
	require.True(t, result.IsError)

	result = server.CallTool(ctx, ToolSessionStatus, nil)
	require.Equal(t,
		[]string{`{"session_id":"01JABCDEFGHJKMNPQRSTVWXYZ0","closed":false,"pending":[{"id":3,"command":"find_json"}],"in_progress":null}`},
		textOf(t, result))

	require.Equal(t, []wire.Command{
		wire.CommandGetProcessID,
		wire.CommandGetThreadID,
		wire.CommandFindJSON,
		wire.CommandFindJSON,
	}, commander.executed, "an invalid limit must not reach the worker")
}

func TestRegisterCommands_ExecuteFailureIsToolError(t *testing.T) {
	server := NewServer("workerctl", "1.0.0")
	RegisterCommands(server, &fakeCommander{err: errors.New("session closed")})

	result := server.CallTool(context.Background(), ToolGetProcessID, nil)
	require.True(t, result.IsError)
	require.Equal(t, []string{"session closed"}, textOf(t, result))
}

func TestServerSDK_InMemoryClient(t *testing.T) {
	server := NewServer("workerctl", "1.0.0")
	RegisterCommands(server, &fakeCommander{})

	ctx := context.Background()
	clientTransport, serverTransport := mcpgo.NewInMemoryTransports()

	serverSession, err := server.SDK().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcpgo.NewClient(&mcpgo.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	list, err := clientSession.ListTools(ctx, &mcpgo.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, list.Tools, 4)

	result, err := clientSession.CallTool(ctx, &mcpgo.CallToolParams{Name: ToolGetProcessID})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, []string{"4242"}, textOf(t, result))

	require.NoError(t, clientSession.Close())
	_ = serverSession.Wait()
}
