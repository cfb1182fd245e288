package model

// Status is the terminal status of a receipt processing run.
type Status string

// Processing statuses.
const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Receipt is the raw per-request input: unstructured email text plus
// optional subject and sender context. It is discarded after processing.
type Receipt struct {
	EmailBody    string `json:"email_body"`
	EmailSubject string `json:"email_subject,omitempty"`
	Sender       string `json:"sender,omitempty"`
}

// ValidationResult holds the outcome of deterministic rule checking.
// Errors fail validation; warnings are informational only.
type ValidationResult struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Valid    bool     `json:"valid"`
}

// Outcome is the final artifact returned to the caller. Data is present
// if and only if Status is StatusSuccess; Attempts counts extraction
// invocations actually made and never exceeds the configured maximum.
type Outcome struct {
	Status   Status   `json:"status"`
	Message  string   `json:"message"`
	Data     *Expense `json:"data,omitempty"`
	Attempts int      `json:"attempts"`
	Errors   []string `json:"errors"`
}
