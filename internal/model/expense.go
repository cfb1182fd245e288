// Package model defines the core data types shared across the application.
package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format expected on extracted expenses.
const DateLayout = "2006-01-02"

// Expense is a structured expense record extracted from receipt text.
// It may be incomplete or invalid until it passes validation.
type Expense struct {
	Merchant    string  `json:"merchant"`
	Currency    string  `json:"currency"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// ParsedDate parses the expense date under the expected layout.
func (e *Expense) ParsedDate() (time.Time, error) {
	t, err := time.Parse(DateLayout, e.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", e.Date, err)
	}
	return t, nil
}

// Summary returns a short human-readable description of the expense,
// used in log lines and success messages.
func (e *Expense) Summary() string {
	return fmt.Sprintf("%s - %.2f %s (%s)", e.Merchant, e.Amount, e.Currency, e.Category)
}
