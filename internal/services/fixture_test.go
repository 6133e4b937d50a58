package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
	"spendwise/internal/services"
	"spendwise/internal/storage/memory"
)

var now = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

type fixture struct {
	ctx        context.Context
	store      *memory.Store
	users      *services.UserService
	categories *services.CategoryService
	currencies *services.CurrencyService
	expenses   *services.ExpenseService
	budgets    *services.BudgetService
}

func newFixture(t *testing.T, opts ...services.ExpenseOption) *fixture {
	t.Helper()
	store := memory.New()
	clock := core.FixedClock(now)
	return &fixture{
		ctx:        context.Background(),
		store:      store,
		users:      services.NewUserService(store, clock),
		categories: services.NewCategoryService(store),
		currencies: services.NewCurrencyService(store),
		expenses:   services.NewExpenseService(store, clock, opts...),
		budgets:    services.NewBudgetService(store, clock),
	}
}

func (f *fixture) user(t *testing.T, email string) core.User {
	t.Helper()
	u, err := f.users.Create(f.ctx, core.User{Name: "User", Email: email, PasswordHash: "hash"})
	require.NoError(t, err)
	return u
}

func (f *fixture) category(t *testing.T, name string) core.Category {
	t.Helper()
	c, err := f.categories.Create(f.ctx, core.Category{Name: name})
	require.NoError(t, err)
	return c
}

func (f *fixture) currency(t *testing.T, code string) core.Currency {
	t.Helper()
	c, err := f.currencies.Create(f.ctx, core.Currency{Code: code, Name: code})
	require.NoError(t, err)
	return c
}

// refs creates one user, one category and one currency.
func (f *fixture) refs(t *testing.T) (core.User, core.Category, core.Currency) {
	t.Helper()
	return f.user(t, "ana@example.com"), f.category(t, "Food"), f.currency(t, "USD")
}

func (f *fixture) expense(t *testing.T, u core.User, c core.Category, cur core.Currency, cents int64, at time.Time) core.Expense {
	t.Helper()
	e, err := f.expenses.Create(f.ctx, core.Expense{
		UserID:     u.ID,
		CategoryID: c.ID,
		CurrencyID: cur.ID,
		Amount:     core.Cents(cents),
		OccurredAt: at,
	})
	require.NoError(t, err)
	return e
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, field, verr.Field)
}
