package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/expensesync/expensesync/internal/common"
	"github.com/expensesync/expensesync/internal/model"
)

// addExpenseTool is the remote operation that persists one expense.
const addExpenseTool = "add_expense"

// Recorder persists validated expenses by invoking the add_expense tool on
// the MCP server. Transient failures get a short retry budget of their own,
// independent of the extraction attempt limit.
type Recorder struct {
	client *Client
	logger *slog.Logger
	retry  common.RetryOptions
}

// NewRecorder wraps a client as an expense recorder.
func NewRecorder(client *Client, logger *slog.Logger) *Recorder {
	return &Recorder{
		client: client,
		logger: logger,
		retry: common.RetryOptions{
			MaxAttempts:  2,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
	}
}

// Record sends the expense to the server and returns the location the
// server reports for it (the tool result text), if any.
func (r *Recorder) Record(ctx context.Context, expense model.Expense) (string, error) {
	args := map[string]any{
		"merchant":    expense.Merchant,
		"amount":      expense.Amount,
		"currency":    expense.Currency,
		"date":        expense.Date,
		"category":    expense.Category,
		"description": expense.Description,
	}

	var result *ToolResult
	err := common.WithRetry(ctx, func() error {
		res, callErr := r.client.CallTool(ctx, addExpenseTool, args)
		if callErr != nil {
			return callErr
		}
		if res.IsError {
			// The server executed the tool and rejected the expense;
			// retrying the same payload will not change its mind.
			return &common.RetryableError{
				Err:       fmt.Errorf("server rejected expense: %s", res.Text()),
				Retryable: false,
			}
		}
		result = res
		return nil
	}, r.retry)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrPersistenceFailed, err)
	}

	location := result.Text()
	r.logger.Debug("expense recorded", "location", location)
	return location, nil
}

// Name identifies the recorder in log output.
func (r *Recorder) Name() string { return "mcp" }
