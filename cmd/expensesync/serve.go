package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/expensesync/expensesync/internal/config"
	"github.com/expensesync/expensesync/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Long:  "Start the HTTP server that accepts receipt emails and runs the extraction pipeline.",
		RunE:  runServe,
	}

	cmd.Flags().String("host", "", "listen address (overrides config)")
	cmd.Flags().Int("port", 0, "listen port (overrides config)")
	cmd.Flags().String("provider", "", "LLM provider to use (overrides config)")
	cmd.Flags().String("recorder", "", "persistence backend: mcp, sheets, none (overrides config)")

	_ = viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("recorder.kind", cmd.Flags().Lookup("recorder"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	applyProviderFlag(cmd)

	p, err := buildPipeline(ctx, logger)
	if err != nil {
		return err
	}
	defer p.close()

	srv := server.New(config.LoadServerConfig(), p.engine, p.mcpClient, p.provider, p.recorder, logger)

	logger.Info("starting expensesync",
		"version", version,
		"provider", p.provider,
		"recorder", p.recorder,
		"max_attempts", p.engine.MaxAttempts())

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
