package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/expensesync/expensesync/internal/common"
	"github.com/expensesync/expensesync/internal/model"
)

// headerRow is written once to an empty ledger sheet.
var headerRow = []any{"Date", "Merchant", "Amount", "Currency", "Category", "Description", "Recorded At"}

// Writer appends expenses to a Google Sheets ledger. It implements the
// engine's Recorder interface as an alternative to the MCP server.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config

	mu          sync.Mutex
	headerReady bool
}

// NewWriter creates a Google Sheets expense recorder.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: service,
		logger:  logger,
	}, nil
}

// Record appends the expense as one row and returns the spreadsheet range
// the row landed in.
func (w *Writer) Record(ctx context.Context, expense model.Expense) (string, error) {
	if err := w.ensureHeader(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrPersistenceFailed, err)
	}

	row := expenseRow(expense, time.Now())
	body := &sheets.ValueRange{Values: [][]any{row}}

	retryOpts := common.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	var location string
	err := common.WithRetry(ctx, func() error {
		resp, appendErr := w.service.Spreadsheets.Values.
			Append(w.config.SpreadsheetID, w.config.SheetName, body).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		if appendErr != nil {
			return appendErr
		}
		if resp.Updates != nil {
			location = resp.Updates.UpdatedRange
		}
		return nil
	}, retryOpts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrPersistenceFailed, err)
	}

	w.logger.Info("expense appended to ledger",
		"spreadsheet_id", w.config.SpreadsheetID,
		"range", location)

	return location, nil
}

// Name identifies the recorder in log output.
func (w *Writer) Name() string { return "sheets" }

// expenseRow maps an expense to the ledger column order.
func expenseRow(expense model.Expense, recordedAt time.Time) []any {
	return []any{
		expense.Date,
		expense.Merchant,
		expense.Amount,
		expense.Currency,
		expense.Category,
		expense.Description,
		recordedAt.UTC().Format(time.RFC3339),
	}
}

// ensureHeader writes the header row if the sheet is empty. The check is
// skipped once it has succeeded; a failed check is retried on the next
// Record rather than sticking for the writer's lifetime.
func (w *Writer) ensureHeader(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.headerReady {
		return nil
	}

	resp, err := w.service.Spreadsheets.Values.
		Get(w.config.SpreadsheetID, w.config.SheetName+"!A1:G1").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to read ledger header: %w", err)
	}

	if len(resp.Values) == 0 {
		_, err = w.service.Spreadsheets.Values.
			Update(w.config.SpreadsheetID, w.config.SheetName+"!A1", &sheets.ValueRange{Values: [][]any{headerRow}}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("unable to write ledger header: %w", err)
		}
	}

	w.headerReady = true
	return nil
}

// createSheetsService builds the API client from either a service account
// key file or stored OAuth2 refresh-token credentials.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = oauthConfig.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}
