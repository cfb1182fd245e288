package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/expensesync/expensesync/internal/config"
	"github.com/expensesync/expensesync/internal/engine"
	"github.com/expensesync/expensesync/internal/llm"
	"github.com/expensesync/expensesync/internal/mcp"
	"github.com/expensesync/expensesync/internal/sheets"
	"github.com/expensesync/expensesync/internal/validate"
)

// pipeline bundles the wired components shared by serve and process.
type pipeline struct {
	engine    *engine.Engine
	extractor *llm.Extractor
	mcpClient *mcp.Client
	provider  string
	recorder  string
}

// applyProviderFlag copies a command's --provider flag into the config.
// More than one command defines this flag, so it cannot be bound to the
// llm.provider key at init time: viper keeps only the last binding, and
// the other commands' flags would be silently ignored.
func applyProviderFlag(cmd *cobra.Command) {
	if cmd.Flags().Changed("provider") {
		provider, _ := cmd.Flags().GetString("provider")
		viper.Set("llm.provider", provider)
	}
}

// buildPipeline wires extractor, validator, and the configured recorder
// into an engine. The MCP connection is attempted eagerly so failures
// surface at startup, but a failed connect is not fatal: the client
// reconnects lazily on first use.
func buildPipeline(ctx context.Context, logger *slog.Logger) (*pipeline, error) {
	llmCfg := config.LoadLLMConfig()
	extractor, err := llm.NewExtractor(llmCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	var (
		recorder  engine.Recorder
		mcpClient *mcp.Client
	)

	recorderKind := config.RecorderKind()
	switch recorderKind {
	case "mcp":
		mcpClient = mcp.NewClient(config.LoadMCPConfig(), logger)
		if err := mcpClient.Connect(ctx); err != nil {
			logger.Warn("MCP server not reachable at startup, will retry on first use", "error", err)
		}
		recorder = mcp.NewRecorder(mcpClient, logger)
	case "sheets":
		sheetsCfg, cfgErr := config.LoadSheetsConfig()
		if cfgErr != nil {
			return nil, fmt.Errorf("failed to load sheets config: %w", cfgErr)
		}
		writer, writerErr := sheets.NewWriter(ctx, *sheetsCfg, logger)
		if writerErr != nil {
			return nil, fmt.Errorf("failed to create sheets recorder: %w", writerErr)
		}
		recorder = writer
	case "none":
		logger.Warn("persistence disabled, extracted expenses will not be saved")
	default:
		return nil, fmt.Errorf("unknown recorder kind: %s", recorderKind)
	}

	eng := engine.NewWithConfig(extractor, validate.New(), recorder, logger, config.LoadEngineConfig())

	return &pipeline{
		engine:    eng,
		extractor: extractor,
		mcpClient: mcpClient,
		provider:  llmCfg.Provider,
		recorder:  recorderKind,
	}, nil
}

// close releases the pipeline's resources.
func (p *pipeline) close() {
	_ = p.extractor.Close()
	if p.mcpClient != nil {
		_ = p.mcpClient.Close()
	}
}
