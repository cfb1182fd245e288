package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/expensesync/expensesync/internal/config"
	"github.com/expensesync/expensesync/internal/mcp"
)

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools on the MCP server",
		Long:  "Connect to the configured MCP persistence server and list its tools.",
		RunE:  runTools,
	}
}

func runTools(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	client := mcp.NewClient(config.LoadMCPConfig(), slog.Default())
	defer func() { _ = client.Close() }()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to MCP server: %w", err)
	}

	tools := client.Tools()
	if len(tools) == 0 {
		fmt.Println("no tools advertised by the server")
		return nil
	}

	for _, name := range tools {
		fmt.Println(name)
	}
	return nil
}
