package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensesync/expensesync/internal/common"
)

func TestParseExtraction(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantMerchant string
		wantCurrency string
		wantCategory string
		wantAmount   float64
	}{
		{
			name: "plain json object",
			content: `{"merchant": "Amazon", "amount": 29.99, "currency": "EUR",
				"date": "2024-12-06", "category": "tecnologia", "description": "Amazon - Echo Dot"}`,
			wantMerchant: "Amazon",
			wantAmount:   29.99,
			wantCurrency: "EUR",
			wantCategory: "tecnologia",
		},
		{
			name: "json fenced in markdown",
			content: "```json\n" +
				`{"merchant": "Mercadona", "amount": 15.67, "currency": "eur", "date": "2024-11-02", "category": "Alimentacion", "description": "groceries"}` +
				"\n```",
			wantMerchant: "Mercadona",
			wantAmount:   15.67,
			wantCurrency: "EUR",
			wantCategory: "alimentacion",
		},
		{
			name: "prose around the object",
			content: `Here is the extracted expense:
				{"merchant": "Repsol", "amount": 52.30, "currency": "EUR", "date": "2024-10-10", "category": "transporte", "description": "fuel"}
				Let me know if you need anything else.`,
			wantMerchant: "Repsol",
			wantAmount:   52.30,
			wantCurrency: "EUR",
			wantCategory: "transporte",
		},
		{
			name: "amount as string with comma decimal",
			content: `{"merchant": "Zara", "amount": "15,67", "currency": "EUR",
				"date": "2024-09-01", "category": "ropa", "description": "shirt"}`,
			wantMerchant: "Zara",
			wantAmount:   15.67,
			wantCurrency: "EUR",
			wantCategory: "ropa",
		},
		{
			name: "amount as string with currency symbol",
			content: `{"merchant": "Netflix", "amount": "€12.99", "currency": "EUR",
				"date": "2024-09-01", "category": "suscripciones", "description": "monthly plan"}`,
			wantMerchant: "Netflix",
			wantAmount:   12.99,
			wantCurrency: "EUR",
			wantCategory: "suscripciones",
		},
		{
			name: "amount with thousands separator",
			content: `{"merchant": "MediaMarkt", "amount": "1.234,56", "currency": "EUR",
				"date": "2024-09-01", "category": "tecnologia", "description": "laptop"}`,
			wantMerchant: "MediaMarkt",
			wantAmount:   1234.56,
			wantCurrency: "EUR",
			wantCategory: "tecnologia",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expense, err := parseExtraction(tt.content)
			require.NoError(t, err)

			assert.Equal(t, tt.wantMerchant, expense.Merchant)
			assert.InDelta(t, tt.wantAmount, expense.Amount, 0.001)
			assert.Equal(t, tt.wantCurrency, expense.Currency)
			assert.Equal(t, tt.wantCategory, expense.Category)
		})
	}
}

func TestParseExtraction_UnparseableOutput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty response", content: ""},
		{name: "no json at all", content: "I could not find an expense in this email."},
		{name: "truncated json", content: `{"merchant": "Amazon", "amount":`},
		{name: "amount missing", content: `{"merchant": "Amazon", "currency": "EUR"}`},
		{name: "amount not numeric", content: `{"merchant": "Amazon", "amount": "unknown", "currency": "EUR"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseExtraction(tt.content)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrUnparseableOutput), "got: %v", err)
		})
	}
}

func TestCleanMarkdownWrapper(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "no wrapper", content: `{"a":1}`, want: `{"a":1}`},
		{name: "json fence", content: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", content: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "surrounding prose", content: "result: {\"a\":1} done", want: `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanMarkdownWrapper(tt.content))
		})
	}
}
