package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/expensesync/expensesync/internal/model"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [file]",
		Short: "Process one receipt email from a file or stdin",
		Long: `Run the extraction pipeline once on a receipt email read from the given
file, or from stdin when no file is given, and print the outcome as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runProcess,
	}

	cmd.Flags().String("subject", "", "email subject line")
	cmd.Flags().String("sender", "", "email sender address")
	cmd.Flags().String("provider", "", "LLM provider to use (overrides config)")
	cmd.Flags().Bool("dry-run", false, "skip persistence, extraction and validation only")

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	body, err := readEmailBody(args)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return fmt.Errorf("email body is empty")
	}

	applyProviderFlag(cmd)

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		viper.Set("recorder.kind", "none")
	}

	p, err := buildPipeline(ctx, logger)
	if err != nil {
		return err
	}
	defer p.close()

	subject, _ := cmd.Flags().GetString("subject")
	sender, _ := cmd.Flags().GetString("sender")

	outcome := p.engine.ProcessReceipt(ctx, model.Receipt{
		EmailBody:    string(body),
		EmailSubject: subject,
		Sender:       sender,
	})

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(outcome); err != nil {
		return fmt.Errorf("failed to encode outcome: %w", err)
	}

	if outcome.Status == model.StatusFailed {
		return fmt.Errorf("receipt processing failed after %d attempts", outcome.Attempts)
	}
	return nil
}

func readEmailBody(args []string) ([]byte, error) {
	if len(args) == 1 {
		body, err := os.ReadFile(args[0]) // #nosec G304
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		return body, nil
	}

	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return body, nil
}
