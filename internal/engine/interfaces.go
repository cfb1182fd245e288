package engine

import (
	"context"

	"github.com/expensesync/expensesync/internal/model"
)

// Extractor converts receipt text into a structured expense via an LLM.
// Feedback carries the previous attempt's validation errors.
type Extractor interface {
	Extract(ctx context.Context, receipt model.Receipt, feedback []string) (model.Expense, error)
}

// Validator applies the deterministic business rules to an expense.
type Validator interface {
	Validate(expense model.Expense) model.ValidationResult
}

// Recorder forwards a validated expense to durable storage and returns a
// human-readable location or acknowledgment from the remote side.
type Recorder interface {
	Record(ctx context.Context, expense model.Expense) (string, error)
	Name() string
}
