package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendwise/internal/core"
)

// BudgetService owns budget validation and the overage computation.
// "Active" is derived from date containment and never stored.
type BudgetService struct {
	store Store
	clock core.Clock
}

func NewBudgetService(store Store, clock core.Clock) *BudgetService {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &BudgetService{store: store, clock: clock}
}

func (s *BudgetService) List(ctx context.Context) ([]core.Budget, error) {
	return inTx(ctx, s.store, func(tx Tx) ([]core.Budget, error) {
		list, err := tx.Budgets().List(ctx)
		return emptyIfNil(list), err
	})
}

func (s *BudgetService) GetByID(ctx context.Context, id int64) (core.Budget, error) {
	return inTx(ctx, s.store, func(tx Tx) (core.Budget, error) {
		return getBudget(ctx, tx, id)
	})
}

func (s *BudgetService) GetByUser(ctx context.Context, userID int64) ([]core.Budget, error) {
	return inTx(ctx, s.store, func(tx Tx) ([]core.Budget, error) {
		list, err := tx.Budgets().ListByUser(ctx, userID)
		return emptyIfNil(list), err
	})
}

func (s *BudgetService) GetByCategory(ctx context.Context, categoryID int64) ([]core.Budget, error) {
	return inTx(ctx, s.store, func(tx Tx) ([]core.Budget, error) {
		list, err := tx.Budgets().ListByCategory(ctx, categoryID)
		return emptyIfNil(list), err
	})
}

// GetActiveAt returns budgets whose window contains at, both ends inclusive.
func (s *BudgetService) GetActiveAt(ctx context.Context, at time.Time) ([]core.Budget, error) {
	return inTx(ctx, s.store, func(tx Tx) ([]core.Budget, error) {
		list, err := tx.Budgets().ListActiveAt(ctx, core.Timestamp(at))
		return emptyIfNil(list), err
	})
}

func (s *BudgetService) GetActive(ctx context.Context) ([]core.Budget, error) {
	return s.GetActiveAt(ctx, s.clock.Now())
}

func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.StartDate, b.EndDate = core.Timestamp(b.StartDate), core.Timestamp(b.EndDate)
	created, err := inTx(ctx, s.store, func(tx Tx) (core.Budget, error) {
		refs := ReferencesOf(tx)
		if err := requireUser(ctx, refs, b.UserID); err != nil {
			return core.Budget{}, err
		}
		if err := requireCategory(ctx, refs, b.CategoryID); err != nil {
			return core.Budget{}, err
		}
		if err := requireCurrency(ctx, refs, b.CurrencyID); err != nil {
			return core.Budget{}, err
		}
		if err := validateBudgetTerms(b.Limit, b.StartDate, b.EndDate); err != nil {
			return core.Budget{}, err
		}

		b.ID = 0
		if err := tx.Budgets().Add(ctx, &b); err != nil {
			return core.Budget{}, fmt.Errorf("add budget: %w", err)
		}
		return b, nil
	})
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget created",
		"budget_id", created.ID,
		"user_id", created.UserID,
		"category_id", created.CategoryID,
		"limit_cents", created.Limit.Cents)
	return created, nil
}

func (s *BudgetService) Update(ctx context.Context, id int64, p core.BudgetUpdate) error {
	p.StartDate, p.EndDate = core.Timestamp(p.StartDate), core.Timestamp(p.EndDate)
	err := s.store.InTx(ctx, func(tx Tx) error {
		current, err := getBudget(ctx, tx, id)
		if err != nil {
			return err
		}

		refs := ReferencesOf(tx)
		if p.CategoryID != current.CategoryID {
			if err := requireCategory(ctx, refs, p.CategoryID); err != nil {
				return err
			}
		}
		if p.CurrencyID != current.CurrencyID {
			if err := requireCurrency(ctx, refs, p.CurrencyID); err != nil {
				return err
			}
		}
		if err := validateBudgetTerms(p.Limit, p.StartDate, p.EndDate); err != nil {
			return err
		}

		current.Apply(p)
		if err := tx.Budgets().Update(ctx, current); err != nil {
			return fmt.Errorf("update budget: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Budget updated", "budget_id", id, "limit_cents", p.Limit.Cents)
	return nil
}

func (s *BudgetService) Delete(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(tx Tx) error {
		if _, err := getBudget(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.Budgets().Delete(ctx, id); err != nil {
			return fmt.Errorf("delete budget: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Budget deleted", "budget_id", id)
	return nil
}

// Usage sums the owner's expenses in the budget's category over the budget
// window. Expense currencies are not matched against the budget currency.
func (s *BudgetService) Usage(ctx context.Context, id int64) (core.BudgetUsage, error) {
	return inTx(ctx, s.store, func(tx Tx) (core.BudgetUsage, error) {
		b, err := getBudget(ctx, tx, id)
		if err != nil {
			return core.BudgetUsage{}, err
		}
		return usageOf(ctx, tx, b)
	})
}

// IsOverLimit reports whether spending strictly exceeds the budget limit.
func (s *BudgetService) IsOverLimit(ctx context.Context, id int64) (bool, error) {
	u, err := s.Usage(ctx, id)
	if err != nil {
		return false, err
	}
	return u.OverLimit, nil
}

// UsageFor evaluates every budget of userID in categoryID whose window
// contains at. The worker calls it for each expense change.
func (s *BudgetService) UsageFor(ctx context.Context, userID, categoryID int64, at time.Time) ([]core.BudgetUsage, error) {
	at = core.Timestamp(at)
	return inTx(ctx, s.store, func(tx Tx) ([]core.BudgetUsage, error) {
		budgets, err := tx.Budgets().ListByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list budgets: %w", err)
		}
		out := []core.BudgetUsage{}
		for _, b := range budgets {
			if b.CategoryID != categoryID || !b.Contains(at) {
				continue
			}
			u, err := usageOf(ctx, tx, b)
			if err != nil {
				return nil, err
			}
			out = append(out, u)
		}
		return out, nil
	})
}

func usageOf(ctx context.Context, tx Tx, b core.Budget) (core.BudgetUsage, error) {
	expenses, err := tx.Expenses().ListByUserBetween(ctx, b.UserID, b.StartDate, b.EndDate)
	if err != nil {
		return core.BudgetUsage{}, fmt.Errorf("list budget expenses: %w", err)
	}

	amounts := make([]core.Money, 0, len(expenses))
	for _, e := range expenses {
		if e.CategoryID == b.CategoryID {
			amounts = append(amounts, e.Amount)
		}
	}
	spent, err := core.Sum(amounts...)
	if err != nil {
		return core.BudgetUsage{}, fmt.Errorf("sum budget %d: %w", b.ID, err)
	}

	remaining, err := b.Limit.Sub(spent)
	if err != nil {
		return core.BudgetUsage{}, fmt.Errorf("budget %d remaining: %w", b.ID, err)
	}
	return core.BudgetUsage{
		Budget:    b,
		Spent:     spent,
		Remaining: remaining,
		OverLimit: spent.Exceeds(b.Limit),
	}, nil
}

func validateBudgetTerms(limit core.Money, start, end time.Time) error {
	if !limit.IsPositive() {
		return core.Invalid("limit", limit, "must be greater than zero")
	}
	if !end.After(start) {
		return core.Invalid("end_date", end.Format(time.RFC3339), "must be after start_date")
	}
	return nil
}

func getBudget(ctx context.Context, tx Tx, id int64) (core.Budget, error) {
	b, found, err := tx.Budgets().Get(ctx, id)
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	if !found {
		return core.Budget{}, core.NotFound(core.EntityBudget, id)
	}
	return b, nil
}
