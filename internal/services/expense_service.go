package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendwise/internal/core"
)

// ExpenseService validates references and amounts before writing expenses.
// Overage is never cached here; budgets read expenses on demand.
type ExpenseService struct {
	store    Store
	clock    core.Clock
	notifier ExpenseNotifier
}

type ExpenseOption func(*ExpenseService)

// WithNotifier publishes every committed change to n. Failures are logged
// and never fail the operation.
func WithNotifier(n ExpenseNotifier) ExpenseOption {
	return func(s *ExpenseService) { s.notifier = n }
}

func NewExpenseService(store Store, clock core.Clock, opts ...ExpenseOption) *ExpenseService {
	if clock == nil {
		clock = core.SystemClock{}
	}
	s := &ExpenseService{store: store, clock: clock}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ExpenseService) List(ctx context.Context) ([]core.Expense, error) {
	return inTx(ctx, s.store, func(tx Tx) ([]core.Expense, error) {
		list, err := tx.Expenses().List(ctx)
		return emptyIfNil(list), err
	})
}

func (s *ExpenseService) GetByID(ctx context.Context, id int64) (core.Expense, error) {
	return inTx(ctx, s.store, func(tx Tx) (core.Expense, error) {
		return getExpense(ctx, tx, id)
	})
}

func (s *ExpenseService) GetByUser(ctx context.Context, userID int64) ([]core.Expense, error) {
	return inTx(ctx, s.store, func(tx Tx) ([]core.Expense, error) {
		list, err := tx.Expenses().ListByUser(ctx, userID)
		return emptyIfNil(list), err
	})
}

func (s *ExpenseService) GetByCategory(ctx context.Context, categoryID int64) ([]core.Expense, error) {
	return inTx(ctx, s.store, func(tx Tx) ([]core.Expense, error) {
		list, err := tx.Expenses().ListByCategory(ctx, categoryID)
		return emptyIfNil(list), err
	})
}

// GetByDateRange returns expenses with start <= occurred_at <= end.
func (s *ExpenseService) GetByDateRange(ctx context.Context, start, end time.Time) ([]core.Expense, error) {
	return inTx(ctx, s.store, func(tx Tx) ([]core.Expense, error) {
		list, err := tx.Expenses().ListBetween(ctx, core.Timestamp(start), core.Timestamp(end))
		return emptyIfNil(list), err
	})
}

// TotalsByUser sums a user's expenses per currency.
func (s *ExpenseService) TotalsByUser(ctx context.Context, userID int64) ([]core.CurrencyTotal, error) {
	return inTx(ctx, s.store, func(tx Tx) ([]core.CurrencyTotal, error) {
		list, err := tx.Expenses().ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return totalsByCurrency(list)
	})
}

// TotalsByCategory sums a category's expenses per currency.
func (s *ExpenseService) TotalsByCategory(ctx context.Context, categoryID int64) ([]core.CurrencyTotal, error) {
	return inTx(ctx, s.store, func(tx Tx) ([]core.CurrencyTotal, error) {
		list, err := tx.Expenses().ListByCategory(ctx, categoryID)
		if err != nil {
			return nil, err
		}
		return totalsByCurrency(list)
	})
}

func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	created, err := inTx(ctx, s.store, func(tx Tx) (core.Expense, error) {
		refs := ReferencesOf(tx)
		if err := requireUser(ctx, refs, e.UserID); err != nil {
			return core.Expense{}, err
		}
		if err := requireCategory(ctx, refs, e.CategoryID); err != nil {
			return core.Expense{}, err
		}
		if err := requireCurrency(ctx, refs, e.CurrencyID); err != nil {
			return core.Expense{}, err
		}
		if !e.Amount.IsPositive() {
			return core.Expense{}, core.Invalid("amount", e.Amount, "must be greater than zero")
		}

		e.ID = 0
		e.OccurredAt = core.Timestamp(e.OccurredAt)
		if e.OccurredAt.IsZero() {
			e.OccurredAt = core.Timestamp(s.clock.Now())
		}
		if err := tx.Expenses().Add(ctx, &e); err != nil {
			return core.Expense{}, fmt.Errorf("add expense: %w", err)
		}
		return e, nil
	})
	if err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense created",
		"expense_id", created.ID,
		"user_id", created.UserID,
		"category_id", created.CategoryID,
		"amount_cents", created.Amount.Cents)
	s.notify(ctx, core.ExpenseChange{Kind: core.ChangeCreated, Expense: created})
	return created, nil
}

func (s *ExpenseService) Update(ctx context.Context, id int64, p core.ExpenseUpdate) error {
	p.OccurredAt = core.Timestamp(p.OccurredAt)
	var previous core.Expense
	updated, err := inTx(ctx, s.store, func(tx Tx) (core.Expense, error) {
		current, err := getExpense(ctx, tx, id)
		if err != nil {
			return core.Expense{}, err
		}
		previous = current

		refs := ReferencesOf(tx)
		if p.CategoryID != current.CategoryID {
			if err := requireCategory(ctx, refs, p.CategoryID); err != nil {
				return core.Expense{}, err
			}
		}
		if p.CurrencyID != current.CurrencyID {
			if err := requireCurrency(ctx, refs, p.CurrencyID); err != nil {
				return core.Expense{}, err
			}
		}
		if !p.Amount.IsPositive() {
			return core.Expense{}, core.Invalid("amount", p.Amount, "must be greater than zero")
		}

		current.Apply(p)
		if err := tx.Expenses().Update(ctx, current); err != nil {
			return core.Expense{}, fmt.Errorf("update expense: %w", err)
		}
		return current, nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense updated", "expense_id", id, "amount_cents", updated.Amount.Cents)
	s.notify(ctx, core.ExpenseChange{Kind: core.ChangeUpdated, Expense: updated, Previous: &previous})
	return nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	removed, err := inTx(ctx, s.store, func(tx Tx) (core.Expense, error) {
		current, err := getExpense(ctx, tx, id)
		if err != nil {
			return core.Expense{}, err
		}
		if err := tx.Expenses().Delete(ctx, id); err != nil {
			return core.Expense{}, fmt.Errorf("delete expense: %w", err)
		}
		return current, nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense deleted", "expense_id", id)
	s.notify(ctx, core.ExpenseChange{Kind: core.ChangeDeleted, Expense: removed})
	return nil
}

func (s *ExpenseService) notify(ctx context.Context, change core.ExpenseChange) {
	if s.notifier == nil {
		return
	}
	change.At = s.clock.Now()
	if err := s.notifier.NotifyExpenseChange(ctx, change); err != nil {
		slog.WarnContext(ctx, "Failed to publish expense change",
			"expense_id", change.Expense.ID,
			"kind", string(change.Kind),
			"error", err)
	}
}

func getExpense(ctx context.Context, tx Tx, id int64) (core.Expense, error) {
	e, found, err := tx.Expenses().Get(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	if !found {
		return core.Expense{}, core.NotFound(core.EntityExpense, id)
	}
	return e, nil
}

// totalsByCurrency keeps the order in which currencies first appear.
func totalsByCurrency(list []core.Expense) ([]core.CurrencyTotal, error) {
	var order []int64
	amounts := make(map[int64][]core.Money)
	for _, e := range list {
		if _, ok := amounts[e.CurrencyID]; !ok {
			order = append(order, e.CurrencyID)
		}
		amounts[e.CurrencyID] = append(amounts[e.CurrencyID], e.Amount)
	}

	totals := make([]core.CurrencyTotal, 0, len(order))
	for _, id := range order {
		sum, err := core.Sum(amounts[id]...)
		if err != nil {
			return nil, fmt.Errorf("total currency %d: %w", id, err)
		}
		totals = append(totals, core.CurrencyTotal{CurrencyID: id, Total: sum, Count: len(amounts[id])})
	}
	return totals, nil
}

func requireUser(ctx context.Context, refs References, id int64) error {
	ok, err := refs.UserExists(ctx, id)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return core.Invalid("user_id", id, "user does not exist")
	}
	return nil
}

func requireCategory(ctx context.Context, refs References, id int64) error {
	ok, err := refs.CategoryExists(ctx, id)
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if !ok {
		return core.Invalid("category_id", id, "category does not exist")
	}
	return nil
}

func requireCurrency(ctx context.Context, refs References, id int64) error {
	ok, err := refs.CurrencyExists(ctx, id)
	if err != nil {
		return fmt.Errorf("check currency: %w", err)
	}
	if !ok {
		return core.Invalid("currency_id", id, "currency does not exist")
	}
	return nil
}
