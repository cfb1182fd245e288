package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/expensesync/expensesync/internal/common"
	"github.com/expensesync/expensesync/internal/model"
)

// cleanMarkdownWrapper strips markdown code fences that models sometimes
// wrap around JSON despite instructions, and trims anything outside the
// outermost JSON object.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx != -1 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end != -1 && end > start {
		content = content[start : end+1]
	}

	return content
}

// rawExtraction mirrors the JSON shape requested from the model. Amount is
// kept raw because models occasionally return it as a quoted string or
// with a comma decimal separator.
type rawExtraction struct {
	Merchant    string          `json:"merchant"`
	Amount      json.RawMessage `json:"amount"`
	Currency    string          `json:"currency"`
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
}

// parseExtraction converts the model's response text into an Expense.
// Any failure is wrapped in ErrUnparseableOutput so the retry controller
// treats it like a validation failure.
func parseExtraction(content string) (model.Expense, error) {
	cleaned := cleanMarkdownWrapper(content)

	var raw rawExtraction
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return model.Expense{}, fmt.Errorf("%w: %v", common.ErrUnparseableOutput, err)
	}

	amount, err := parseAmount(raw.Amount)
	if err != nil {
		return model.Expense{}, fmt.Errorf("%w: %v", common.ErrUnparseableOutput, err)
	}

	return model.Expense{
		Merchant:    strings.TrimSpace(raw.Merchant),
		Amount:      amount,
		Currency:    strings.ToUpper(strings.TrimSpace(raw.Currency)),
		Date:        strings.TrimSpace(raw.Date),
		Category:    strings.ToLower(strings.TrimSpace(raw.Category)),
		Description: strings.TrimSpace(raw.Description),
	}, nil
}

// parseAmount accepts a JSON number, or a quoted string possibly using a
// comma decimal separator or carrying a currency symbol.
func parseAmount(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("no amount in response")
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return num, nil
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, fmt.Errorf("amount is neither number nor string: %s", string(raw))
	}

	// Keep digits, separators and sign; drop currency symbols and spaces.
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			return r
		}
		return -1
	}, str)
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	// "1.234.56" from a thousands separator: keep only the last dot.
	if strings.Count(cleaned, ".") > 1 {
		last := strings.LastIndex(cleaned, ".")
		cleaned = strings.ReplaceAll(cleaned[:last], ".", "") + cleaned[last:]
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse amount %q", str)
	}
	return value, nil
}
