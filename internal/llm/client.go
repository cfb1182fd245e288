package llm

import (
	"context"

	"github.com/expensesync/expensesync/internal/model"
)

// Client defines the interface for LLM providers.
type Client interface {
	// Extract sends an extraction prompt and returns the structured
	// expense the model produced. Implementations make exactly one
	// outbound call per invocation; retry policy belongs to the caller.
	Extract(ctx context.Context, prompt string) (ExtractionResponse, error)
}

// ExtractionResponse contains the model's parsed extraction result.
type ExtractionResponse struct {
	Raw     string
	Expense model.Expense
}
