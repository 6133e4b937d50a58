package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendwise/internal/log"
	ports "spendwise/internal/sheets"
)

// dateLayout is the format of the date column; Sheets parses it as a date
// under USER_ENTERED.
const dateLayout = "2006-01-02"

// Config selects the target spreadsheet and how to authenticate.
// CredentialsJSON wins over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesSheet string
}

// Ensure interface conformance
var _ ports.ExpenseExporter = (*Client)(nil)

// NewFromConfig creates a Sheets client authenticated with a service account.
func NewFromConfig(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	var cred goption.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline JSON credentials", log.FieldComponent, log.ComponentSheets)
		cred = goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		slog.InfoContext(ctx, "Reading credentials from file", log.FieldComponent, log.ComponentSheets, "path", cfg.CredentialsFile)
		cred = goption.WithCredentialsFile(cfg.CredentialsFile)
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	svc, err := gsheet.NewService(ctx, cred, goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return New(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// New wraps an existing service. An empty sheetName defaults to "Expenses".
func New(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = "Expenses"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, expensesSheet: sheetName}
}

// Export appends the row after the last non-empty row of the sheet.
func (c *Client) Export(ctx context.Context, row ports.ExpenseRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if err := row.Expense.Amount.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	rng := fmt.Sprintf("%s!A:F", c.expensesSheet)
	vr := &gsheet.ValueRange{Values: [][]any{expenseRow(row)}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.expensesSheet, err)
	}
	if resp.Updates == nil {
		return rng, nil
	}
	return resp.Updates.UpdatedRange, nil
}

// expenseRow lays out [date, description, amount, category, currency, user id].
// The amount goes out as its fixed two-decimal text so no float is involved.
func expenseRow(row ports.ExpenseRow) []any {
	e := row.Expense
	return []any{
		e.OccurredAt.UTC().Format(dateLayout),
		e.Description,
		e.Amount.String(),
		row.CategoryName,
		row.CurrencyCode,
		e.UserID,
	}
}
