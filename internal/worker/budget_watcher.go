// Package worker reacts to committed expense changes published on AMQP.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
	"spendwise/internal/sheets"
)

type (
	// BudgetUsages measures the budgets an expense counts against.
	BudgetUsages interface {
		UsageFor(ctx context.Context, userID, categoryID int64, at time.Time) ([]core.BudgetUsage, error)
	}

	CategoryLookup interface {
		GetByID(ctx context.Context, id int64) (core.Category, error)
	}

	CurrencyLookup interface {
		GetByID(ctx context.Context, id int64) (core.Currency, error)
	}
)

// BudgetWatcher re-evaluates the budgets touched by each expense change and
// optionally exports created expenses to a spreadsheet.
type BudgetWatcher struct {
	budgets    BudgetUsages
	categories CategoryLookup
	currencies CurrencyLookup
	exporter   sheets.ExpenseExporter
	metrics    *metrics.Metrics
	logger     *log.Logger
	events     *log.StructuredLogger
}

type Option func(*BudgetWatcher)

// WithExporter enables the spreadsheet export of created expenses.
func WithExporter(e sheets.ExpenseExporter, categories CategoryLookup, currencies CurrencyLookup) Option {
	return func(w *BudgetWatcher) {
		w.exporter = e
		w.categories = categories
		w.currencies = currencies
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *BudgetWatcher) { w.metrics = m }
}

func NewBudgetWatcher(budgets BudgetUsages, logger *log.Logger, opts ...Option) *BudgetWatcher {
	logger = logger.WithComponent(log.ComponentWorker)
	w := &BudgetWatcher{
		budgets: budgets,
		logger:  logger,
		events:  log.NewStructuredLogger(logger),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleExpenseEvent matches amqp.Handler. Any error requeues the event, so
// a redelivered event may report the same over-limit budget twice.
func (w *BudgetWatcher) HandleExpenseEvent(ctx context.Context, event *amqp.ExpenseEvent) error {
	change := event.Change()
	err := w.handle(ctx, change)
	if w.metrics != nil {
		w.metrics.EventConsumed(string(change.Kind), err)
	}
	return err
}

func (w *BudgetWatcher) handle(ctx context.Context, change core.ExpenseChange) error {
	w.events.LogExpenseChange(ctx, change)

	over, err := w.evaluate(ctx, change)
	if err != nil {
		return err
	}
	w.logger.DebugContext(ctx, "Budgets evaluated",
		log.FieldExpenseID, change.Expense.ID,
		"over_limit", over)

	if change.Kind == core.ChangeCreated && w.exporter != nil {
		if err := w.export(ctx, change.Expense); err != nil {
			return err
		}
	}
	return nil
}

// evaluate reports every budget of the expense's user and category whose
// window contains the expense date and whose spending exceeds the limit.
// For updates the budgets the row counted against before are checked too.
func (w *BudgetWatcher) evaluate(ctx context.Context, change core.ExpenseChange) (int, error) {
	usages, err := w.usagesOf(ctx, change.Expense)
	if err != nil {
		return 0, err
	}
	if p := change.Previous; p != nil && (p.CategoryID != change.Expense.CategoryID || !p.OccurredAt.Equal(change.Expense.OccurredAt)) {
		prior, err := w.usagesOf(ctx, *p)
		if err != nil {
			return 0, err
		}
		usages = append(usages, prior...)
	}

	over := 0
	seen := make(map[int64]bool, len(usages))
	for _, u := range usages {
		if seen[u.Budget.ID] || !u.OverLimit {
			continue
		}
		seen[u.Budget.ID] = true
		over++
		w.events.LogBudgetOverLimit(ctx, u)
		if w.metrics != nil {
			w.metrics.BudgetOverLimit()
		}
	}
	return over, nil
}

func (w *BudgetWatcher) usagesOf(ctx context.Context, e core.Expense) ([]core.BudgetUsage, error) {
	usages, err := w.budgets.UsageFor(ctx, e.UserID, e.CategoryID, e.OccurredAt)
	if err != nil {
		return nil, fmt.Errorf("evaluate budgets for expense %d: %w", e.ID, err)
	}
	return usages, nil
}

func (w *BudgetWatcher) export(ctx context.Context, e core.Expense) error {
	row, err := w.resolve(ctx, e)
	if err == nil {
		var ref string
		ref, err = w.exporter.Export(ctx, row)
		if err == nil {
			w.logger.InfoContext(ctx, "Exported expense",
				log.FieldExpenseID, e.ID,
				log.FieldSheetsRef, ref,
				log.FieldAmountCents, e.Amount.Cents)
		}
	}
	if w.metrics != nil {
		w.metrics.SheetsExport(err)
	}
	if err != nil {
		return fmt.Errorf("export expense %d: %w", e.ID, err)
	}
	return nil
}

// resolve looks up display names. A reference deleted since the event was
// published falls back to its id.
func (w *BudgetWatcher) resolve(ctx context.Context, e core.Expense) (sheets.ExpenseRow, error) {
	row := sheets.ExpenseRow{
		Expense:      e,
		CategoryName: fmt.Sprintf("#%d", e.CategoryID),
		CurrencyCode: fmt.Sprintf("#%d", e.CurrencyID),
	}

	cat, err := w.categories.GetByID(ctx, e.CategoryID)
	switch {
	case err == nil:
		row.CategoryName = cat.Name
	case !errors.Is(err, core.ErrNotFound):
		return row, fmt.Errorf("load category: %w", err)
	}

	cur, err := w.currencies.GetByID(ctx, e.CurrencyID)
	switch {
	case err == nil:
		row.CurrencyCode = cur.Code
	case !errors.Is(err, core.ErrNotFound):
		return row, fmt.Errorf("load currency: %w", err)
	}

	return row, nil
}
