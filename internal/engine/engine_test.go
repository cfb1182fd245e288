package engine

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensesync/expensesync/internal/model"
	"github.com/expensesync/expensesync/internal/validate"
)

var testNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func testValidator() *validate.Validator {
	return validate.NewWithClock(func() time.Time { return testNow })
}

func testLogger() *slog.Logger {
	return slog.Default()
}

func goodExpense() model.Expense {
	return model.Expense{
		Merchant:    "Amazon",
		Amount:      29.99,
		Currency:    "EUR",
		Date:        "2024-12-06",
		Category:    "tecnologia",
		Description: "Amazon - Echo Dot",
	}
}

func testReceipt() model.Receipt {
	return model.Receipt{
		EmailBody:    "Amazon — charged €29.99 on 2024-12-06 for Echo Dot",
		EmailSubject: "Your Amazon order",
		Sender:       "auto-confirm@amazon.es",
	}
}

func TestProcessReceipt_SuccessFirstAttempt(t *testing.T) {
	extractor := NewMockExtractor(MockExtraction{Expense: goodExpense()})
	recorder := &MockRecorder{Location: "Expenses!A42"}
	eng := New(extractor, testValidator(), recorder, testLogger())

	outcome := eng.ProcessReceipt(context.Background(), testReceipt())

	assert.Equal(t, model.StatusSuccess, outcome.Status)
	assert.Equal(t, 1, outcome.Attempts)
	require.NotNil(t, outcome.Data)
	assert.Equal(t, "Amazon", outcome.Data.Merchant)
	assert.InDelta(t, 29.99, outcome.Data.Amount, 0.001)
	assert.Equal(t, "EUR", outcome.Data.Currency)
	assert.Equal(t, "2024-12-06", outcome.Data.Date)
	assert.Equal(t, "tecnologia", outcome.Data.Category)
	assert.Empty(t, outcome.Errors)
	assert.Contains(t, outcome.Message, "Expenses!A42")

	calls := extractor.Calls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].Feedback, "first attempt carries no feedback")

	require.Len(t, recorder.Recorded(), 1)
}

func TestProcessReceipt_RetriesWithValidationFeedback(t *testing.T) {
	invalid := goodExpense()
	invalid.Category = "gadgets"

	extractor := NewMockExtractor(
		MockExtraction{Expense: invalid},
		MockExtraction{Expense: goodExpense()},
	)
	eng := New(extractor, testValidator(), nil, testLogger())

	outcome := eng.ProcessReceipt(context.Background(), testReceipt())

	assert.Equal(t, model.StatusSuccess, outcome.Status)
	assert.Equal(t, 2, outcome.Attempts)
	require.NotNil(t, outcome.Data)
	assert.NotEmpty(t, outcome.Errors, "first attempt's validation errors are preserved")

	calls := extractor.Calls()
	require.Len(t, calls, 2)
	require.Len(t, calls[1].Feedback, 1)
	assert.Contains(t, calls[1].Feedback[0], "category")
}

func TestProcessReceipt_AlwaysInvalidExhaustsBudget(t *testing.T) {
	bad := goodExpense()
	bad.Amount = -5

	extractor := NewMockExtractor(MockExtraction{Expense: bad})
	eng := New(extractor, testValidator(), nil, testLogger())

	outcome := eng.ProcessReceipt(context.Background(), testReceipt())

	assert.Equal(t, model.StatusFailed, outcome.Status)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Nil(t, outcome.Data)
	assert.Len(t, outcome.Errors, 3)
	assert.Len(t, extractor.Calls(), 3)
}

func TestProcessReceipt_ExtractionErrorCountsAsAttempt(t *testing.T) {
	extractor := NewMockExtractor(
		MockExtraction{Err: errors.New("model unreachable: connection refused")},
		MockExtraction{Expense: goodExpense()},
	)
	eng := New(extractor, testValidator(), nil, testLogger())

	outcome := eng.ProcessReceipt(context.Background(), testReceipt())

	assert.Equal(t, model.StatusSuccess, outcome.Status)
	assert.Equal(t, 2, outcome.Attempts)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], "attempt 1")

	calls := extractor.Calls()
	require.Len(t, calls, 2)
	require.Len(t, calls[1].Feedback, 1)
	assert.Contains(t, calls[1].Feedback[0], "unreachable")
}

func TestProcessReceipt_AllExtractionsFail(t *testing.T) {
	extractor := NewMockExtractor(MockExtraction{Err: errors.New("model unreachable")})
	eng := New(extractor, testValidator(), nil, testLogger())

	outcome := eng.ProcessReceipt(context.Background(), testReceipt())

	assert.Equal(t, model.StatusFailed, outcome.Status)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Nil(t, outcome.Data)
	assert.Len(t, outcome.Errors, 3)
}

func TestProcessReceipt_PersistenceFailureKeepsSuccess(t *testing.T) {
	extractor := NewMockExtractor(MockExtraction{Expense: goodExpense()})
	recorder := &MockRecorder{Err: errors.New("ledger unavailable")}
	eng := New(extractor, testValidator(), recorder, testLogger())

	outcome := eng.ProcessReceipt(context.Background(), testReceipt())

	assert.Equal(t, model.StatusSuccess, outcome.Status)
	assert.Equal(t, 1, outcome.Attempts)
	require.NotNil(t, outcome.Data)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], "persistence failed")
	assert.Contains(t, outcome.Message, "not persisted")
	assert.Empty(t, recorder.Recorded())
}

func TestProcessReceipt_NilRecorderSkipsPersistence(t *testing.T) {
	extractor := NewMockExtractor(MockExtraction{Expense: goodExpense()})
	eng := New(extractor, testValidator(), nil, testLogger())

	outcome := eng.ProcessReceipt(context.Background(), testReceipt())

	assert.Equal(t, model.StatusSuccess, outcome.Status)
	assert.Empty(t, outcome.Errors)
}

func TestProcessReceipt_CustomAttemptLimit(t *testing.T) {
	bad := goodExpense()
	bad.Merchant = ""

	extractor := NewMockExtractor(MockExtraction{Expense: bad})
	eng := NewWithConfig(extractor, testValidator(), nil, testLogger(), Config{MaxAttempts: 5})

	outcome := eng.ProcessReceipt(context.Background(), testReceipt())

	assert.Equal(t, model.StatusFailed, outcome.Status)
	assert.Equal(t, 5, outcome.Attempts)
	assert.Len(t, extractor.Calls(), 5)
}

func TestNewWithConfig_InvalidMaxAttemptsFallsBack(t *testing.T) {
	eng := NewWithConfig(NewMockExtractor(), testValidator(), nil, testLogger(), Config{MaxAttempts: 0})

	assert.Equal(t, 3, eng.MaxAttempts())
}
