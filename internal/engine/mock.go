package engine

import (
	"context"
	"sync"

	"github.com/expensesync/expensesync/internal/model"
)

// MockExtractor is a test implementation of the Extractor interface.
// It replays scripted results per attempt and records every call.
type MockExtractor struct {
	results []MockExtraction
	calls   []MockExtractorCall
	mu      sync.Mutex
}

// MockExtraction is one scripted extraction result.
type MockExtraction struct {
	Err     error
	Expense model.Expense
}

// MockExtractorCall records details of an extraction request.
type MockExtractorCall struct {
	Receipt  model.Receipt
	Feedback []string
}

// NewMockExtractor creates a mock that replays the given results in order.
// Once the script is exhausted the last result repeats.
func NewMockExtractor(results ...MockExtraction) *MockExtractor {
	return &MockExtractor{results: results}
}

// Extract returns the next scripted result.
func (m *MockExtractor) Extract(_ context.Context, receipt model.Receipt, feedback []string) (model.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockExtractorCall{
		Receipt:  receipt,
		Feedback: append([]string(nil), feedback...),
	})

	if len(m.results) == 0 {
		return model.Expense{}, nil
	}

	idx := len(m.calls) - 1
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	result := m.results[idx]
	return result.Expense, result.Err
}

// Calls returns a copy of the recorded calls.
func (m *MockExtractor) Calls() []MockExtractorCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockExtractorCall(nil), m.calls...)
}

// MockRecorder is a test implementation of the Recorder interface.
type MockRecorder struct {
	Err      error
	Location string
	recorded []model.Expense
	mu       sync.Mutex
}

// Record stores the expense and returns the configured location and error.
func (m *MockRecorder) Record(_ context.Context, expense model.Expense) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.recorded = append(m.recorded, expense)
	return m.Location, nil
}

// Name identifies the mock in log output.
func (m *MockRecorder) Name() string { return "mock" }

// Recorded returns a copy of the expenses successfully recorded.
func (m *MockRecorder) Recorded() []model.Expense {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Expense(nil), m.recorded...)
}
