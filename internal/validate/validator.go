// Package validate applies deterministic business rules to extracted
// expenses. It is a pure function of its input: no I/O, no external calls.
package validate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/expensesync/expensesync/internal/model"
)

// allowedCategories is the fixed set of expense categories. The extraction
// prompt advertises the same set; anything outside it fails validation.
var allowedCategories = map[string]bool{
	"alimentacion":  true,
	"transporte":    true,
	"ocio":          true,
	"hogar":         true,
	"ropa":          true,
	"salud":         true,
	"tecnologia":    true,
	"suscripciones": true,
	"ahorros":       true,
	"otros":         true,
}

// recognizedCurrencies is the set of ISO-4217 codes the service accepts.
var recognizedCurrencies = map[string]bool{
	"EUR": true, "USD": true, "GBP": true, "CHF": true, "JPY": true,
	"CAD": true, "AUD": true, "NZD": true, "SEK": true, "NOK": true,
	"DKK": true, "PLN": true, "CZK": true, "HUF": true, "RON": true,
	"MXN": true, "BRL": true, "ARS": true, "CLP": true, "COP": true,
	"CNY": true, "HKD": true, "SGD": true, "INR": true, "KRW": true,
	"TRY": true, "ZAR": true,
}

const (
	// futureTolerance allows for timezone skew between the receipt issuer
	// and this service.
	futureTolerance = 24 * time.Hour

	// staleAfter is the age past which a date draws a warning. Receipts
	// this old usually mean the model picked up the wrong date.
	staleAfter = 2 * 365 * 24 * time.Hour

	// largeAmount draws a warning, not an error. Legitimate but rare.
	largeAmount = 10000.0
)

// Validator checks extracted expenses against the business rules.
// The zero value is not usable; construct with New.
type Validator struct {
	now func() time.Time
}

// New creates a Validator using the wall clock.
func New() *Validator {
	return &Validator{now: time.Now}
}

// NewWithClock creates a Validator with an injected clock for tests.
func NewWithClock(now func() time.Time) *Validator {
	return &Validator{now: now}
}

// Validate evaluates every rule independently and collects all violations;
// it never short-circuits on the first failure.
func (v *Validator) Validate(expense model.Expense) model.ValidationResult {
	result := model.ValidationResult{
		Errors:   []string{},
		Warnings: []string{},
	}

	if expense.Merchant == "" {
		result.Errors = append(result.Errors, "merchant must not be empty")
	}

	if expense.Amount <= 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("amount must be a positive number, got %.2f", expense.Amount))
	} else if expense.Amount > largeAmount {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("amount %.2f is unusually large, verify the receipt", expense.Amount))
	}

	currency := strings.ToUpper(strings.TrimSpace(expense.Currency))
	if len(currency) != 3 || !recognizedCurrencies[currency] {
		result.Errors = append(result.Errors,
			fmt.Sprintf("currency %q is not a recognized 3-letter code", expense.Currency))
	}

	if date, err := expense.ParsedDate(); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("date %q does not parse as %s", expense.Date, model.DateLayout))
	} else {
		now := v.now()
		if date.After(now.Add(futureTolerance)) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("date %s is in the future", expense.Date))
		} else if now.Sub(date) > staleAfter {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("date %s is more than two years old", expense.Date))
		}
	}

	category := strings.ToLower(strings.TrimSpace(expense.Category))
	if !allowedCategories[category] {
		result.Errors = append(result.Errors,
			fmt.Sprintf("category %q is not in the allowed set: %s",
				expense.Category, strings.Join(Categories(), ", ")))
	}

	if expense.Description == "" {
		result.Warnings = append(result.Warnings, "description is empty")
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// Categories returns the allowed category names, sorted.
func Categories() []string {
	names := make([]string, 0, len(allowedCategories))
	for name := range allowedCategories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
