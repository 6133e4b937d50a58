package services

import (
	"context"
	"time"

	"spendwise/internal/core"
)

// Repository contracts consumed by the rule engine. Get-style lookups
// report absence with found=false and a nil error; any returned error is a
// storage fault. Add assigns the new row's ID in place.
type (
	UserRepository interface {
		List(ctx context.Context) ([]core.User, error)
		Get(ctx context.Context, id int64) (core.User, bool, error)
		GetByEmail(ctx context.Context, email string) (core.User, bool, error)
		Exists(ctx context.Context, id int64) (bool, error)
		ExistsByEmail(ctx context.Context, email string) (bool, error)
		Add(ctx context.Context, u *core.User) error
		Update(ctx context.Context, u core.User) error
		Delete(ctx context.Context, id int64) error
	}

	CategoryRepository interface {
		List(ctx context.Context) ([]core.Category, error)
		Get(ctx context.Context, id int64) (core.Category, bool, error)
		GetByName(ctx context.Context, name string) (core.Category, bool, error)
		Exists(ctx context.Context, id int64) (bool, error)
		ExistsByName(ctx context.Context, name string) (bool, error)
		Add(ctx context.Context, c *core.Category) error
		Update(ctx context.Context, c core.Category) error
		Delete(ctx context.Context, id int64) error
	}

	CurrencyRepository interface {
		List(ctx context.Context) ([]core.Currency, error)
		Get(ctx context.Context, id int64) (core.Currency, bool, error)
		GetByCode(ctx context.Context, code string) (core.Currency, bool, error)
		Exists(ctx context.Context, id int64) (bool, error)
		ExistsByCode(ctx context.Context, code string) (bool, error)
		Add(ctx context.Context, c *core.Currency) error
		Update(ctx context.Context, c core.Currency) error
		Delete(ctx context.Context, id int64) error
	}

	// ExpenseRepository lists are ordered most recent first.
	ExpenseRepository interface {
		List(ctx context.Context) ([]core.Expense, error)
		Get(ctx context.Context, id int64) (core.Expense, bool, error)
		ListByUser(ctx context.Context, userID int64) ([]core.Expense, error)
		ListByCategory(ctx context.Context, categoryID int64) ([]core.Expense, error)
		// ListBetween and ListByUserBetween include both ends of the range.
		ListBetween(ctx context.Context, start, end time.Time) ([]core.Expense, error)
		ListByUserBetween(ctx context.Context, userID int64, start, end time.Time) ([]core.Expense, error)
		ExistsForUser(ctx context.Context, userID int64) (bool, error)
		ExistsForCategory(ctx context.Context, categoryID int64) (bool, error)
		ExistsForCurrency(ctx context.Context, currencyID int64) (bool, error)
		Add(ctx context.Context, e *core.Expense) error
		Update(ctx context.Context, e core.Expense) error
		Delete(ctx context.Context, id int64) error
	}

	BudgetRepository interface {
		List(ctx context.Context) ([]core.Budget, error)
		Get(ctx context.Context, id int64) (core.Budget, bool, error)
		ListByUser(ctx context.Context, userID int64) ([]core.Budget, error)
		ListByCategory(ctx context.Context, categoryID int64) ([]core.Budget, error)
		// ListActiveAt returns budgets with start <= at <= end.
		ListActiveAt(ctx context.Context, at time.Time) ([]core.Budget, error)
		ExistsForUser(ctx context.Context, userID int64) (bool, error)
		ExistsForCategory(ctx context.Context, categoryID int64) (bool, error)
		ExistsForCurrency(ctx context.Context, currencyID int64) (bool, error)
		Add(ctx context.Context, b *core.Budget) error
		Update(ctx context.Context, b core.Budget) error
		Delete(ctx context.Context, id int64) error
	}
)

// Tx is the set of repositories bound to one transaction.
type Tx interface {
	Users() UserRepository
	Categories() CategoryRepository
	Currencies() CurrencyRepository
	Expenses() ExpenseRepository
	Budgets() BudgetRepository
}

// Store runs fn inside a single transaction. A non-nil error from fn rolls
// the transaction back and is returned unchanged.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// References answers whether the rows an expense or budget points at exist.
type References interface {
	UserExists(ctx context.Context, id int64) (bool, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)
	CurrencyExists(ctx context.Context, id int64) (bool, error)
}

// Dependents answers whether any expense or budget still points at a row.
type Dependents interface {
	UserHasDependents(ctx context.Context, id int64) (bool, error)
	CategoryHasDependents(ctx context.Context, id int64) (bool, error)
	CurrencyHasDependents(ctx context.Context, id int64) (bool, error)
}

// ReferencesOf exposes the read-only reference checks of a transaction.
func ReferencesOf(tx Tx) References { return txChecks{tx} }

// DependentsOf exposes the read-only dependent-row checks of a transaction.
func DependentsOf(tx Tx) Dependents { return txChecks{tx} }

type txChecks struct{ tx Tx }

func (c txChecks) UserExists(ctx context.Context, id int64) (bool, error) {
	return c.tx.Users().Exists(ctx, id)
}

func (c txChecks) CategoryExists(ctx context.Context, id int64) (bool, error) {
	return c.tx.Categories().Exists(ctx, id)
}

func (c txChecks) CurrencyExists(ctx context.Context, id int64) (bool, error) {
	return c.tx.Currencies().Exists(ctx, id)
}

func (c txChecks) UserHasDependents(ctx context.Context, id int64) (bool, error) {
	return c.any(ctx, id, c.tx.Expenses().ExistsForUser, c.tx.Budgets().ExistsForUser)
}

func (c txChecks) CategoryHasDependents(ctx context.Context, id int64) (bool, error) {
	return c.any(ctx, id, c.tx.Expenses().ExistsForCategory, c.tx.Budgets().ExistsForCategory)
}

func (c txChecks) CurrencyHasDependents(ctx context.Context, id int64) (bool, error) {
	return c.any(ctx, id, c.tx.Expenses().ExistsForCurrency, c.tx.Budgets().ExistsForCurrency)
}

func (txChecks) any(ctx context.Context, id int64, checks ...func(context.Context, int64) (bool, error)) (bool, error) {
	for _, check := range checks {
		ok, err := check(ctx, id)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// ExpenseNotifier receives committed expense changes.
type ExpenseNotifier interface {
	NotifyExpenseChange(ctx context.Context, change core.ExpenseChange) error
}
