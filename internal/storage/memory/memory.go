// Package memory is an in-process Entity Store. Each transaction runs on a
// private copy of the data that replaces the shared state only when the
// callback succeeds, so a failed operation leaves nothing behind.
package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/services"
)

// ErrConstraint mirrors a unique or foreign key violation of the SQL store.
var ErrConstraint = errors.New("memory: constraint violation")

type Store struct {
	mu    sync.Mutex
	state *state
}

func New() *Store {
	return &Store{state: newState()}
}

var _ services.Store = (*Store)(nil)

// InTx serializes transactions. fn sees a snapshot; its writes become
// visible only if it returns nil.
func (s *Store) InTx(ctx context.Context, fn func(tx services.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

type table[T any] struct {
	rows map[int64]T
	next int64
}

func newTable[T any]() table[T] {
	return table[T]{rows: map[int64]T{}}
}

func (t table[T]) clone() table[T] {
	return table[T]{rows: maps.Clone(t.rows), next: t.next}
}

func (t *table[T]) insert(v T) int64 {
	t.next++
	t.rows[t.next] = v
	return t.next
}

func (t table[T]) has(id int64) bool {
	_, ok := t.rows[id]
	return ok
}

func (t table[T]) where(keep func(T) bool) []T {
	out := make([]T, 0, len(t.rows))
	for _, v := range t.rows {
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func (t table[T]) any(match func(T) bool) bool {
	for _, v := range t.rows {
		if match(v) {
			return true
		}
	}
	return false
}

type state struct {
	users      table[core.User]
	categories table[core.Category]
	currencies table[core.Currency]
	expenses   table[core.Expense]
	budgets    table[core.Budget]
}

func newState() *state {
	return &state{
		users:      newTable[core.User](),
		categories: newTable[core.Category](),
		currencies: newTable[core.Currency](),
		expenses:   newTable[core.Expense](),
		budgets:    newTable[core.Budget](),
	}
}

func (s *state) clone() *state {
	return &state{
		users:      s.users.clone(),
		categories: s.categories.clone(),
		currencies: s.currencies.clone(),
		expenses:   s.expenses.clone(),
		budgets:    s.budgets.clone(),
	}
}

type tx struct{ st *state }

func (t *tx) Users() services.UserRepository { return users{t.st} }
func (t *tx) Categories() services.CategoryRepository { return categories{t.st} }
func (t *tx) Currencies() services.CurrencyRepository { return currencies{t.st} }
func (t *tx) Expenses() services.ExpenseRepository { return expenses{t.st} }
func (t *tx) Budgets() services.BudgetRepository { return budgets{t.st} }

func byID[T any](id func(T) int64) func(a, b T) int {
	return func(a, b T) int { return cmp.Compare(id(a), id(b)) }
}

func missing(entity string, id int64) error {
	return fmt.Errorf("memory: %s %d does not exist", entity, id)
}

func referenced(entity string, id int64) error {
	return fmt.Errorf("%w: %s %d is still referenced", ErrConstraint, entity, id)
}

func duplicate(field, value string) error {
	return fmt.Errorf("%w: duplicate %s %q", ErrConstraint, field, value)
}

// users

type users struct{ st *state }

func (r users) List(context.Context) ([]core.User, error) {
	out := r.st.users.where(nil)
	slices.SortFunc(out, byID(func(u core.User) int64 { return u.ID }))
	return out, nil
}

func (r users) Get(_ context.Context, id int64) (core.User, bool, error) {
	u, ok := r.st.users.rows[id]
	return u, ok, nil
}

func (r users) GetByEmail(_ context.Context, email string) (core.User, bool, error) {
	for _, u := range r.st.users.rows {
		if u.Email == email {
			return u, true, nil
		}
	}
	return core.User{}, false, nil
}

func (r users) Exists(_ context.Context, id int64) (bool, error) {
	return r.st.users.has(id), nil
}

func (r users) ExistsByEmail(_ context.Context, email string) (bool, error) {
	return r.st.users.any(func(u core.User) bool { return u.Email == email }), nil
}

func (r users) Add(_ context.Context, u *core.User) error {
	if r.st.users.any(func(o core.User) bool { return o.Email == u.Email }) {
		return duplicate("email", u.Email)
	}
	u.ID = r.st.users.next + 1
	r.st.users.insert(*u)
	return nil
}

func (r users) Update(_ context.Context, u core.User) error {
	if !r.st.users.has(u.ID) {
		return missing(core.EntityUser, u.ID)
	}
	if r.st.users.any(func(o core.User) bool { return o.ID != u.ID && o.Email == u.Email }) {
		return duplicate("email", u.Email)
	}
	r.st.users.rows[u.ID] = u
	return nil
}

func (r users) Delete(_ context.Context, id int64) error {
	if r.st.expenses.any(func(e core.Expense) bool { return e.UserID == id }) ||
		r.st.budgets.any(func(b core.Budget) bool { return b.UserID == id }) {
		return referenced(core.EntityUser, id)
	}
	delete(r.st.users.rows, id)
	return nil
}

// categories

type categories struct{ st *state }

func (r categories) List(context.Context) ([]core.Category, error) {
	out := r.st.categories.where(nil)
	slices.SortFunc(out, byID(func(c core.Category) int64 { return c.ID }))
	return out, nil
}

func (r categories) Get(_ context.Context, id int64) (core.Category, bool, error) {
	c, ok := r.st.categories.rows[id]
	return c, ok, nil
}

func (r categories) GetByName(_ context.Context, name string) (core.Category, bool, error) {
	for _, c := range r.st.categories.rows {
		if c.Name == name {
			return c, true, nil
		}
	}
	return core.Category{}, false, nil
}

func (r categories) Exists(_ context.Context, id int64) (bool, error) {
	return r.st.categories.has(id), nil
}

func (r categories) ExistsByName(_ context.Context, name string) (bool, error) {
	return r.st.categories.any(func(c core.Category) bool { return c.Name == name }), nil
}

func (r categories) Add(_ context.Context, c *core.Category) error {
	if r.st.categories.any(func(o core.Category) bool { return o.Name == c.Name }) {
		return duplicate("name", c.Name)
	}
	c.ID = r.st.categories.next + 1
	r.st.categories.insert(*c)
	return nil
}

func (r categories) Update(_ context.Context, c core.Category) error {
	if !r.st.categories.has(c.ID) {
		return missing(core.EntityCategory, c.ID)
	}
	if r.st.categories.any(func(o core.Category) bool { return o.ID != c.ID && o.Name == c.Name }) {
		return duplicate("name", c.Name)
	}
	r.st.categories.rows[c.ID] = c
	return nil
}

func (r categories) Delete(_ context.Context, id int64) error {
	if r.st.expenses.any(func(e core.Expense) bool { return e.CategoryID == id }) ||
		r.st.budgets.any(func(b core.Budget) bool { return b.CategoryID == id }) {
		return referenced(core.EntityCategory, id)
	}
	delete(r.st.categories.rows, id)
	return nil
}

// currencies

type currencies struct{ st *state }

func (r currencies) List(context.Context) ([]core.Currency, error) {
	out := r.st.currencies.where(nil)
	slices.SortFunc(out, byID(func(c core.Currency) int64 { return c.ID }))
	return out, nil
}

func (r currencies) Get(_ context.Context, id int64) (core.Currency, bool, error) {
	c, ok := r.st.currencies.rows[id]
	return c, ok, nil
}

func (r currencies) GetByCode(_ context.Context, code string) (core.Currency, bool, error) {
	for _, c := range r.st.currencies.rows {
		if c.Code == code {
			return c, true, nil
		}
	}
	return core.Currency{}, false, nil
}

func (r currencies) Exists(_ context.Context, id int64) (bool, error) {
	return r.st.currencies.has(id), nil
}

func (r currencies) ExistsByCode(_ context.Context, code string) (bool, error) {
	return r.st.currencies.any(func(c core.Currency) bool { return c.Code == code }), nil
}

func (r currencies) Add(_ context.Context, c *core.Currency) error {
	if r.st.currencies.any(func(o core.Currency) bool { return o.Code == c.Code }) {
		return duplicate("code", c.Code)
	}
	c.ID = r.st.currencies.next + 1
	r.st.currencies.insert(*c)
	return nil
}

func (r currencies) Update(_ context.Context, c core.Currency) error {
	if !r.st.currencies.has(c.ID) {
		return missing(core.EntityCurrency, c.ID)
	}
	if r.st.currencies.any(func(o core.Currency) bool { return o.ID != c.ID && o.Code == c.Code }) {
		return duplicate("code", c.Code)
	}
	r.st.currencies.rows[c.ID] = c
	return nil
}

func (r currencies) Delete(_ context.Context, id int64) error {
	if r.st.expenses.any(func(e core.Expense) bool { return e.CurrencyID == id }) ||
		r.st.budgets.any(func(b core.Budget) bool { return b.CurrencyID == id }) {
		return referenced(core.EntityCurrency, id)
	}
	delete(r.st.currencies.rows, id)
	return nil
}

// expenses

type expenses struct{ st *state }

// recentFirst orders by occurrence descending, newest id first on ties.
func recentFirst(a, b core.Expense) int {
	if c := b.OccurredAt.Compare(a.OccurredAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

func (r expenses) list(keep func(core.Expense) bool) []core.Expense {
	out := r.st.expenses.where(keep)
	slices.SortFunc(out, recentFirst)
	return out
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func (r expenses) List(context.Context) ([]core.Expense, error) {
	return r.list(nil), nil
}

func (r expenses) Get(_ context.Context, id int64) (core.Expense, bool, error) {
	e, ok := r.st.expenses.rows[id]
	return e, ok, nil
}

func (r expenses) ListByUser(_ context.Context, userID int64) ([]core.Expense, error) {
	return r.list(func(e core.Expense) bool { return e.UserID == userID }), nil
}

func (r expenses) ListByCategory(_ context.Context, categoryID int64) ([]core.Expense, error) {
	return r.list(func(e core.Expense) bool { return e.CategoryID == categoryID }), nil
}

func (r expenses) ListBetween(_ context.Context, start, end time.Time) ([]core.Expense, error) {
	return r.list(func(e core.Expense) bool { return within(e.OccurredAt, start, end) }), nil
}

func (r expenses) ListByUserBetween(_ context.Context, userID int64, start, end time.Time) ([]core.Expense, error) {
	return r.list(func(e core.Expense) bool {
		return e.UserID == userID && within(e.OccurredAt, start, end)
	}), nil
}

func (r expenses) ExistsForUser(_ context.Context, userID int64) (bool, error) {
	return r.st.expenses.any(func(e core.Expense) bool { return e.UserID == userID }), nil
}

func (r expenses) ExistsForCategory(_ context.Context, categoryID int64) (bool, error) {
	return r.st.expenses.any(func(e core.Expense) bool { return e.CategoryID == categoryID }), nil
}

func (r expenses) ExistsForCurrency(_ context.Context, currencyID int64) (bool, error) {
	return r.st.expenses.any(func(e core.Expense) bool { return e.CurrencyID == currencyID }), nil
}

func (r expenses) checkRefs(e core.Expense) error {
	switch {
	case !r.st.users.has(e.UserID):
		return fmt.Errorf("%w: user %d", ErrConstraint, e.UserID)
	case !r.st.categories.has(e.CategoryID):
		return fmt.Errorf("%w: category %d", ErrConstraint, e.CategoryID)
	case !r.st.currencies.has(e.CurrencyID):
		return fmt.Errorf("%w: currency %d", ErrConstraint, e.CurrencyID)
	}
	return nil
}

func (r expenses) Add(_ context.Context, e *core.Expense) error {
	if err := r.checkRefs(*e); err != nil {
		return err
	}
	e.ID = r.st.expenses.next + 1
	r.st.expenses.insert(*e)
	return nil
}

func (r expenses) Update(_ context.Context, e core.Expense) error {
	if !r.st.expenses.has(e.ID) {
		return missing(core.EntityExpense, e.ID)
	}
	if err := r.checkRefs(e); err != nil {
		return err
	}
	r.st.expenses.rows[e.ID] = e
	return nil
}

func (r expenses) Delete(_ context.Context, id int64) error {
	delete(r.st.expenses.rows, id)
	return nil
}

// budgets

type budgets struct{ st *state }

// latestStartFirst orders by window start descending, newest id first on ties.
func latestStartFirst(a, b core.Budget) int {
	if c := b.StartDate.Compare(a.StartDate); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

func (r budgets) list(keep func(core.Budget) bool) []core.Budget {
	out := r.st.budgets.where(keep)
	slices.SortFunc(out, latestStartFirst)
	return out
}

func (r budgets) List(context.Context) ([]core.Budget, error) {
	return r.list(nil), nil
}

func (r budgets) Get(_ context.Context, id int64) (core.Budget, bool, error) {
	b, ok := r.st.budgets.rows[id]
	return b, ok, nil
}

func (r budgets) ListByUser(_ context.Context, userID int64) ([]core.Budget, error) {
	return r.list(func(b core.Budget) bool { return b.UserID == userID }), nil
}

func (r budgets) ListByCategory(_ context.Context, categoryID int64) ([]core.Budget, error) {
	return r.list(func(b core.Budget) bool { return b.CategoryID == categoryID }), nil
}

func (r budgets) ListActiveAt(_ context.Context, at time.Time) ([]core.Budget, error) {
	return r.list(func(b core.Budget) bool { return b.Contains(at) }), nil
}

func (r budgets) ExistsForUser(_ context.Context, userID int64) (bool, error) {
	return r.st.budgets.any(func(b core.Budget) bool { return b.UserID == userID }), nil
}

func (r budgets) ExistsForCategory(_ context.Context, categoryID int64) (bool, error) {
	return r.st.budgets.any(func(b core.Budget) bool { return b.CategoryID == categoryID }), nil
}

func (r budgets) ExistsForCurrency(_ context.Context, currencyID int64) (bool, error) {
	return r.st.budgets.any(func(b core.Budget) bool { return b.CurrencyID == currencyID }), nil
}

func (r budgets) checkRefs(b core.Budget) error {
	switch {
	case !r.st.users.has(b.UserID):
		return fmt.Errorf("%w: user %d", ErrConstraint, b.UserID)
	case !r.st.categories.has(b.CategoryID):
		return fmt.Errorf("%w: category %d", ErrConstraint, b.CategoryID)
	case !r.st.currencies.has(b.CurrencyID):
		return fmt.Errorf("%w: currency %d", ErrConstraint, b.CurrencyID)
	}
	return nil
}

func (r budgets) Add(_ context.Context, b *core.Budget) error {
	if err := r.checkRefs(*b); err != nil {
		return err
	}
	b.ID = r.st.budgets.next + 1
	r.st.budgets.insert(*b)
	return nil
}

func (r budgets) Update(_ context.Context, b core.Budget) error {
	if !r.st.budgets.has(b.ID) {
		return missing(core.EntityBudget, b.ID)
	}
	if err := r.checkRefs(b); err != nil {
		return err
	}
	r.st.budgets.rows[b.ID] = b
	return nil
}

func (r budgets) Delete(_ context.Context, id int64) error {
	delete(r.st.budgets.rows, id)
	return nil
}
