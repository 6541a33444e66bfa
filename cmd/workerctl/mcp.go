package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wagiedev/workerctl"
	internalmcp "github.com/wagiedev/workerctl/internal/mcp"
)

var (
	flagMCPType string
	flagMCPAddr string
)

func init() {
	mcpCmd.Flags().StringVar(&flagMCPType, "type", string(workerctl.MCPServerTypeStdio), "Transport to serve: stdio or http")
	mcpCmd.Flags().StringVar(&flagMCPAddr, "addr", "127.0.0.1:8765", "Listen address for --type http")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve worker commands as MCP tools",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		serverType, err := internalmcp.ParseServerType(flagMCPType)
		if err != nil {
			return fmt.Errorf("--type: %w", err)
		}

		return workerctl.WithClient(ctx, func(c workerctl.Client) error {
			logger.InfoContext(ctx, "Serving MCP tools",
				"type", serverType,
				"session_id", c.SessionID(),
			)

			return workerctl.ServeMCP(ctx, c, workerctl.MCPServeConfig{
				Type:   serverType,
				Addr:   flagMCPAddr,
				Logger: logger,
			})
		}, sessionOptions()...)
	},
}
