package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"spendwise/internal/core"
	"spendwise/internal/services"
	"spendwise/internal/storage"
)

// storeSuite runs the Rule Engine against a real SQL database.
type storeSuite struct {
	suite.Suite
	open  func(ctx context.Context) (*storage.Store, error)
	store *storage.Store
	ctx   context.Context

	users      *services.UserService
	categories *services.CategoryService
	currencies *services.CurrencyService
	expenses   *services.ExpenseService
	budgets    *services.BudgetService
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &storeSuite{open: func(ctx context.Context) (*storage.Store, error) {
		return storage.OpenSQLite(ctx, filepath.Join(t.TempDir(), "spendwise.db"))
	}})
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("SPENDWISE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SPENDWISE_TEST_DATABASE_URL not set")
	}
	suite.Run(t, &storeSuite{open: func(ctx context.Context) (*storage.Store, error) {
		return storage.OpenPostgres(ctx, url)
	}})
}

func (s *storeSuite) SetupTest() {
	s.ctx = context.Background()
	store, err := s.open(s.ctx)
	s.Require().NoError(err)
	s.store = store
	s.truncate()

	clock := core.FixedClock(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	s.users = services.NewUserService(store, clock)
	s.categories = services.NewCategoryService(store)
	s.currencies = services.NewCurrencyService(store)
	s.expenses = services.NewExpenseService(store, clock)
	s.budgets = services.NewBudgetService(store, clock)
}

func (s *storeSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

// truncate empties a shared PostgreSQL database between tests. SQLite
// tests always start from a fresh file.
func (s *storeSuite) truncate() {
	if s.store.Dialect() != storage.Postgres {
		return
	}
	err := s.store.InTx(s.ctx, func(tx services.Tx) error {
		for _, del := range []func(context.Context) error{
			func(ctx context.Context) error { return deleteAll(ctx, tx.Budgets().List, tx.Budgets().Delete, budgetID) },
			func(ctx context.Context) error { return deleteAll(ctx, tx.Expenses().List, tx.Expenses().Delete, expenseID) },
			func(ctx context.Context) error { return deleteAll(ctx, tx.Users().List, tx.Users().Delete, userID) },
			func(ctx context.Context) error { return deleteAll(ctx, tx.Categories().List, tx.Categories().Delete, categoryID) },
			func(ctx context.Context) error { return deleteAll(ctx, tx.Currencies().List, tx.Currencies().Delete, currencyID) },
		} {
			if err := del(s.ctx); err != nil {
				return err
			}
		}
		return nil
	})
	s.Require().NoError(err)
}

func deleteAll[T any](ctx context.Context, list func(context.Context) ([]T, error), del func(context.Context, int64) error, id func(T) int64) error {
	rows, err := list(ctx)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := del(ctx, id(r)); err != nil {
			return err
		}
	}
	return nil
}

func budgetID(b core.Budget) int64 { return b.ID }
func expenseID(e core.Expense) int64 { return e.ID }
func userID(u core.User) int64 { return u.ID }
func categoryID(c core.Category) int64 { return c.ID }
func currencyID(c core.Currency) int64 { return c.ID }

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func (s *storeSuite) refs() (core.User, core.Category, core.Currency) {
	u, err := s.users.Create(s.ctx, core.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "hash"})
	s.Require().NoError(err)
	c, err := s.categories.Create(s.ctx, core.Category{Name: "Food", Description: "groceries"})
	s.Require().NoError(err)
	cur, err := s.currencies.Create(s.ctx, core.Currency{Code: "usd", Name: "US Dollar", Symbol: "$"})
	s.Require().NoError(err)
	return u, c, cur
}

func (s *storeSuite) expense(u core.User, c core.Category, cur core.Currency, cents int64, at time.Time) core.Expense {
	e, err := s.expenses.Create(s.ctx, core.Expense{UserID: u.ID, CategoryID: c.ID, CurrencyID: cur.ID, Amount: core.Cents(cents), OccurredAt: at, Description: "x"})
	s.Require().NoError(err)
	return e
}

func (s *storeSuite) TestRoundTrip() {
	u, c, cur := s.refs()

	got, err := s.users.GetByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u, got)
	s.Equal("hash", got.PasswordHash)

	byCode, err := s.currencies.GetByCode(s.ctx, "USD")
	s.Require().NoError(err)
	s.Equal(cur, byCode)
	s.Equal("USD", byCode.Code)

	byName, err := s.categories.GetByName(s.ctx, "Food")
	s.Require().NoError(err)
	s.Equal(c, byName)

	e := s.expense(u, c, cur, 1234, day(5))
	gotE, err := s.expenses.GetByID(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(e, gotE)
	s.Equal("12.34", gotE.Amount.String())
}

func (s *storeSuite) TestSubMicrosecondBudgetWindowIsInvalid() {
	u, c, cur := s.refs()
	start := day(1).Add(250 * time.Nanosecond)

	_, err := s.budgets.Create(s.ctx, core.Budget{
		UserID: u.ID, CategoryID: c.ID, CurrencyID: cur.ID,
		Limit: core.Cents(1000), StartDate: start, EndDate: start.Add(500 * time.Nanosecond),
	})
	s.Require().ErrorIs(err, core.ErrValidation)
	var verr *core.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal("end_date", verr.Field)

	list, err := s.budgets.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *storeSuite) TestCreatedTimesMatchStoredTimes() {
	u, c, cur := s.refs()
	at := time.Date(2024, 1, 3, 10, 4, 5, 123456789, time.FixedZone("CET", 3600))

	e, err := s.expenses.Create(s.ctx, core.Expense{
		UserID: u.ID, CategoryID: c.ID, CurrencyID: cur.ID, Amount: core.Cents(100), OccurredAt: at,
	})
	s.Require().NoError(err)
	s.Equal(time.Date(2024, 1, 3, 9, 4, 5, 123456000, time.UTC), e.OccurredAt)

	got, err := s.expenses.GetByID(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(e.OccurredAt, got.OccurredAt)

	stored, err := s.users.GetByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u.RegisteredAt, stored.RegisteredAt)
}

func (s *storeSuite) TestUniqueness() {
	s.refs()

	_, err := s.users.Create(s.ctx, core.User{Name: "Other", Email: "ana@example.com", PasswordHash: "h"})
	s.ErrorIs(err, core.ErrConflict)
	_, err = s.categories.Create(s.ctx, core.Category{Name: "Food"})
	s.ErrorIs(err, core.ErrConflict)
	_, err = s.currencies.Create(s.ctx, core.Currency{Code: "USD"})
	s.ErrorIs(err, core.ErrConflict)
}

func (s *storeSuite) TestDeleteGuardLeavesStoreUnchanged() {
	u, c, cur := s.refs()
	s.expense(u, c, cur, 100, day(5))

	s.ErrorIs(s.categories.Delete(s.ctx, c.ID), core.ErrConflict)
	s.ErrorIs(s.currencies.Delete(s.ctx, cur.ID), core.ErrConflict)
	s.ErrorIs(s.users.Delete(s.ctx, u.ID), core.ErrConflict)

	_, err := s.categories.GetByID(s.ctx, c.ID)
	s.NoError(err)
	_, err = s.currencies.GetByID(s.ctx, cur.ID)
	s.NoError(err)
}

func (s *storeSuite) TestForeignKeysAreEnforced() {
	u, c, cur := s.refs()
	s.expense(u, c, cur, 100, day(5))

	// Bypass the Rule Engine: the schema itself refuses the delete.
	err := s.store.InTx(s.ctx, func(tx services.Tx) error {
		return tx.Categories().Delete(s.ctx, c.ID)
	})
	s.Error(err)
}

func (s *storeSuite) TestDateRangeIsInclusive() {
	u, c, cur := s.refs()
	start, end := day(10), day(20)

	s.expense(u, c, cur, 1, start.AddDate(0, 0, -1))
	atStart := s.expense(u, c, cur, 2, start)
	atEnd := s.expense(u, c, cur, 3, end)
	s.expense(u, c, cur, 4, end.AddDate(0, 0, 1))

	got, err := s.expenses.GetByDateRange(s.ctx, start, end)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(atEnd.ID, got[0].ID)
	s.Equal(atStart.ID, got[1].ID)
}

func (s *storeSuite) TestOverLimit() {
	u, food, usd := s.refs()
	b, err := s.budgets.Create(s.ctx, core.Budget{UserID: u.ID, CategoryID: food.ID, CurrencyID: usd.ID, Limit: core.Cents(10000), StartDate: day(1), EndDate: day(31)})
	s.Require().NoError(err)

	s.expense(u, food, usd, 4000, day(5))
	big := s.expense(u, food, usd, 6500, day(20))

	over, err := s.budgets.IsOverLimit(s.ctx, b.ID)
	s.Require().NoError(err)
	s.True(over)

	s.Require().NoError(s.expenses.Delete(s.ctx, big.ID))
	over, err = s.budgets.IsOverLimit(s.ctx, b.ID)
	s.Require().NoError(err)
	s.False(over)
}

func (s *storeSuite) TestBudgetActiveAt() {
	u, food, usd := s.refs()
	b, err := s.budgets.Create(s.ctx, core.Budget{UserID: u.ID, CategoryID: food.ID, CurrencyID: usd.ID, Limit: core.Cents(100), StartDate: day(1), EndDate: day(31)})
	s.Require().NoError(err)

	active, err := s.budgets.GetActive(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(b, active[0])

	later, err := s.budgets.GetActiveAt(s.ctx, day(31).Add(time.Microsecond))
	s.Require().NoError(err)
	s.Empty(later)
}

func (s *storeSuite) TestUpdates() {
	u, c, cur := s.refs()
	e := s.expense(u, c, cur, 100, day(5))

	fresh := "new-hash"
	s.Require().NoError(s.users.Update(s.ctx, u.ID, core.UserUpdate{Name: "Ana B", Email: "anab@example.com", PasswordHash: &fresh}))
	gotU, err := s.users.GetByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("new-hash", gotU.PasswordHash)
	s.Equal(u.RegisteredAt, gotU.RegisteredAt)

	s.Require().NoError(s.expenses.Update(s.ctx, e.ID, core.ExpenseUpdate{CategoryID: c.ID, CurrencyID: cur.ID, Amount: core.Cents(250), Description: "lunch"}))
	gotE, err := s.expenses.GetByID(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(core.Cents(250), gotE.Amount)
	s.Equal(day(5), gotE.OccurredAt)

	s.Require().NoError(s.currencies.Update(s.ctx, cur.ID, core.CurrencyUpdate{Code: "eur", Name: "Euro", Symbol: "€"}))
	gotC, err := s.currencies.GetByCode(s.ctx, "EUR")
	s.Require().NoError(err)
	s.Equal(cur.ID, gotC.ID)
}

func (s *storeSuite) TestFailedOperationRollsBack() {
	err := s.store.InTx(s.ctx, func(tx services.Tx) error {
		if err := tx.Categories().Add(s.ctx, &core.Category{Name: "Ghost"}); err != nil {
			return err
		}
		return core.Conflict(core.EntityCategory, "forced")
	})
	s.ErrorIs(err, core.ErrConflict)

	ok, err := s.categories.ExistsByName(s.ctx, "Ghost")
	s.Require().NoError(err)
	s.False(ok)
}
