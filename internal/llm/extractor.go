package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/expensesync/expensesync/internal/model"
	"github.com/expensesync/expensesync/internal/validate"
)

// Extractor turns raw receipt text into a structured expense using an LLM.
// It makes exactly one model call per Extract invocation; the retry
// controller owns the retry budget and passes validation errors back in
// as feedback.
type Extractor struct {
	client      Client
	rateLimiter *rateLimiter
	logger      *slog.Logger
}

// NewExtractor creates an extractor around the given client.
func NewExtractor(cfg Config, logger *slog.Logger) (*Extractor, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	return &Extractor{
		client:      client,
		rateLimiter: newRateLimiter(cfg.RateLimit),
		logger:      logger,
	}, nil
}

// NewExtractorWithClient creates an extractor with an injected client.
// Used by tests and by callers that manage client construction themselves.
func NewExtractorWithClient(client Client, logger *slog.Logger) *Extractor {
	return &Extractor{
		client:      client,
		rateLimiter: newRateLimiter(0),
		logger:      logger,
	}
}

// Extract runs one extraction attempt. Feedback carries the previous
// attempt's validation errors; when present it is prepended to the prompt
// so the model can correct itself.
func (e *Extractor) Extract(ctx context.Context, receipt model.Receipt, feedback []string) (model.Expense, error) {
	if err := e.rateLimiter.wait(ctx); err != nil {
		return model.Expense{}, fmt.Errorf("rate limit error: %w", err)
	}

	prompt := e.buildPrompt(receipt, feedback)

	response, err := e.client.Extract(ctx, prompt)
	if err != nil {
		return model.Expense{}, err
	}

	e.logger.Debug("extraction attempt completed",
		"merchant", response.Expense.Merchant,
		"amount", response.Expense.Amount,
		"category", response.Expense.Category)

	return response.Expense, nil
}

// buildPrompt creates the extraction prompt for a receipt.
func (e *Extractor) buildPrompt(receipt model.Receipt, feedback []string) string {
	var b strings.Builder

	if len(feedback) > 0 {
		b.WriteString("FEEDBACK: your previous extraction failed validation with these errors:\n")
		for _, errMsg := range feedback {
			fmt.Fprintf(&b, "- %s\n", errMsg)
		}
		b.WriteString("Correct every error above in this attempt.\n\n")
	}

	b.WriteString("Extract the expense from the receipt email below.\n\n")

	if receipt.Sender != "" {
		fmt.Fprintf(&b, "From: %s\n", receipt.Sender)
	}
	if receipt.EmailSubject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", receipt.EmailSubject)
	}
	fmt.Fprintf(&b, "\nEmail content:\n%s\n\n", receipt.EmailBody)

	fmt.Fprintf(&b, `Respond with a JSON object with exactly these fields:
- "merchant": the merchant or store name
- "amount": the amount as a positive decimal number, no currency symbol
- "currency": the 3-letter ISO currency code (EUR for €, USD for $, GBP for £)
- "date": the transaction date in %s format; if absent use the email's date
- "category": exactly one of: %s
- "description": "merchant - product or service", at most 50 characters

Category guide:
- alimentacion: supermarkets, groceries
- transporte: fuel, parking, taxi, public transport
- ocio: restaurants, cafes, cinema, sports, entertainment
- hogar: furniture, cleaning, home services, utilities
- ropa: clothing, footwear, accessories
- salud: pharmacy, doctors, insurance
- tecnologia: electronics, gadgets, software
- suscripciones: streaming, cloud storage, recurring memberships
- ahorros: transfers to savings
- otros: anything that does not clearly fit`,
		model.DateLayout,
		strings.Join(validate.Categories(), ", "))

	return b.String()
}

// Close stops background goroutines and cleans up resources.
func (e *Extractor) Close() error {
	if e.rateLimiter != nil {
		e.rateLimiter.Close()
	}
	return nil
}
