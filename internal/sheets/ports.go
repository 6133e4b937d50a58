package sheets

import (
	"context"

	"spendwise/internal/core"
)

// ExpenseRow is an expense with its references resolved to display names.
type ExpenseRow struct {
	Expense      core.Expense
	CategoryName string
	CurrencyCode string
}

// ExpenseExporter is the outbound port for spreadsheet exports.
type ExpenseExporter interface {
	// Export appends one row and returns a reference to where it landed.
	Export(ctx context.Context, row ExpenseRow) (rowRef string, err error)
}
