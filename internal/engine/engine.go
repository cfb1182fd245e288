// Package engine implements the extract-validate-retry-persist workflow
// for receipt processing.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/expensesync/expensesync/internal/model"
)

// state is the retry controller's position in the workflow.
type state int

const (
	stateExtracting state = iota
	stateValidating
	stateSucceeded
	stateFailed
)

// Engine orchestrates receipt processing: it drives the extraction step,
// validates the result, retries with corrective feedback up to the attempt
// limit, and forwards validated expenses to the recorder. Exhausting the
// budget produces a failed outcome, never an error.
type Engine struct {
	extractor   Extractor
	validator   Validator
	recorder    Recorder
	logger      *slog.Logger
	maxAttempts int
}

// Config holds configuration options for the engine.
type Config struct {
	MaxAttempts int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{MaxAttempts: 3}
}

// New creates an engine with the default configuration. The recorder may
// be nil, in which case successful extractions are not persisted.
func New(extractor Extractor, validator Validator, recorder Recorder, logger *slog.Logger) *Engine {
	return NewWithConfig(extractor, validator, recorder, logger, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(extractor Extractor, validator Validator, recorder Recorder, logger *slog.Logger, cfg Config) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Engine{
		extractor:   extractor,
		validator:   validator,
		recorder:    recorder,
		logger:      logger,
		maxAttempts: cfg.MaxAttempts,
	}
}

// ProcessReceipt runs the full workflow for one receipt. The returned
// outcome always satisfies: attempts <= maxAttempts, and Data is non-nil
// exactly when Status is success.
func (e *Engine) ProcessReceipt(ctx context.Context, receipt model.Receipt) model.Outcome {
	var (
		expense  model.Expense
		feedback []string
		errs     = []string{}
		attempts = 0
		st       = stateExtracting
	)

	for st != stateSucceeded && st != stateFailed {
		switch st {
		case stateExtracting:
			attempts++
			e.logger.Info("extraction attempt",
				"attempt", attempts,
				"max_attempts", e.maxAttempts)

			extracted, err := e.extractor.Extract(ctx, receipt, feedback)
			if err != nil {
				// Model unreachable and unparseable output both count
				// as a failed attempt and stay inside the loop.
				msg := fmt.Sprintf("attempt %d: %v", attempts, err)
				errs = append(errs, msg)
				e.logger.Warn("extraction attempt failed", "attempt", attempts, "error", err)

				if attempts >= e.maxAttempts {
					st = stateFailed
					continue
				}
				feedback = []string{err.Error()}
				continue
			}

			expense = extracted
			st = stateValidating

		case stateValidating:
			result := e.validator.Validate(expense)
			for _, warning := range result.Warnings {
				e.logger.Warn("validation warning", "attempt", attempts, "warning", warning)
			}

			if result.Valid {
				st = stateSucceeded
				continue
			}

			for _, errMsg := range result.Errors {
				errs = append(errs, fmt.Sprintf("attempt %d: %s", attempts, errMsg))
			}
			e.logger.Warn("validation failed",
				"attempt", attempts,
				"errors", result.Errors)

			if attempts >= e.maxAttempts {
				st = stateFailed
				continue
			}
			feedback = result.Errors
			st = stateExtracting
		}
	}

	if st == stateFailed {
		e.logger.Error("receipt processing failed",
			"attempts", attempts,
			"errors", len(errs))
		return model.Outcome{
			Status:   model.StatusFailed,
			Message:  fmt.Sprintf("could not extract a valid expense after %d attempts", attempts),
			Attempts: attempts,
			Errors:   errs,
		}
	}

	outcome := model.Outcome{
		Status:   model.StatusSuccess,
		Message:  fmt.Sprintf("expense extracted: %s", expense.Summary()),
		Data:     &expense,
		Attempts: attempts,
		Errors:   errs,
	}

	// Persistence failure is reported in-band; it never retroactively
	// changes a successful extraction status.
	if e.recorder != nil {
		location, err := e.recorder.Record(ctx, expense)
		if err != nil {
			e.logger.Error("persistence failed",
				"recorder", e.recorder.Name(),
				"error", err)
			outcome.Errors = append(outcome.Errors,
				fmt.Sprintf("persistence failed: %v", err))
			outcome.Message = fmt.Sprintf("expense extracted but not persisted: %s", expense.Summary())
		} else {
			e.logger.Info("expense persisted",
				"recorder", e.recorder.Name(),
				"location", location)
			if location != "" {
				outcome.Message = fmt.Sprintf("expense saved at %s: %s", location, expense.Summary())
			}
		}
	}

	return outcome
}

// MaxAttempts returns the configured attempt limit.
func (e *Engine) MaxAttempts() int {
	return e.maxAttempts
}
