package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendwise/internal/core"
)

// users

const userColumns = `id, name, email, password_hash, registered_at`

type userRepo struct{ t *tx }

func scanUser(s scanner) (core.User, error) {
	var u core.User
	var registered int64
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &registered); err != nil {
		return core.User{}, err
	}
	u.RegisteredAt = fromMicros(registered)
	return u, nil
}

func (r userRepo) List(ctx context.Context) ([]core.User, error) {
	out, err := list(ctx, r.t, scanUser, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (r userRepo) Get(ctx context.Context, id int64) (core.User, bool, error) {
	return get(ctx, r.t, scanUser, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (core.User, bool, error) {
	return get(ctx, r.t, scanUser, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r userRepo) Exists(ctx context.Context, id int64) (bool, error) {
	return r.t.exists(ctx, `SELECT 1 FROM users WHERE id = ?`, id)
}

func (r userRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.t.exists(ctx, `SELECT 1 FROM users WHERE email = ?`, email)
}

func (r userRepo) Add(ctx context.Context, u *core.User) error {
	id, err := r.t.insert(ctx,
		`INSERT INTO users (name, email, password_hash, registered_at) VALUES (?, ?, ?, ?) RETURNING id`,
		u.Name, u.Email, u.PasswordHash, toMicros(u.RegisteredAt))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	return nil
}

func (r userRepo) Update(ctx context.Context, u core.User) error {
	err := r.t.execOne(ctx,
		`UPDATE users SET name = ?, email = ?, password_hash = ? WHERE id = ?`,
		u.Name, u.Email, u.PasswordHash, u.ID)
	if err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return nil
}

func (r userRepo) Delete(ctx context.Context, id int64) error {
	if err := r.t.exec(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

// categories

const categoryColumns = `id, name, description`

type categoryRepo struct{ t *tx }

func scanCategory(s scanner) (core.Category, error) {
	var c core.Category
	err := s.Scan(&c.ID, &c.Name, &c.Description)
	return c, err
}

func (r categoryRepo) List(ctx context.Context) ([]core.Category, error) {
	out, err := list(ctx, r.t, scanCategory, `SELECT `+categoryColumns+` FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (r categoryRepo) Get(ctx context.Context, id int64) (core.Category, bool, error) {
	return get(ctx, r.t, scanCategory, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
}

func (r categoryRepo) GetByName(ctx context.Context, name string) (core.Category, bool, error) {
	return get(ctx, r.t, scanCategory, `SELECT `+categoryColumns+` FROM categories WHERE name = ?`, name)
}

func (r categoryRepo) Exists(ctx context.Context, id int64) (bool, error) {
	return r.t.exists(ctx, `SELECT 1 FROM categories WHERE id = ?`, id)
}

func (r categoryRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	return r.t.exists(ctx, `SELECT 1 FROM categories WHERE name = ?`, name)
}

func (r categoryRepo) Add(ctx context.Context, c *core.Category) error {
	id, err := r.t.insert(ctx,
		`INSERT INTO categories (name, description) VALUES (?, ?) RETURNING id`,
		c.Name, c.Description)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	c.ID = id
	return nil
}

func (r categoryRepo) Update(ctx context.Context, c core.Category) error {
	err := r.t.execOne(ctx, `UPDATE categories SET name = ?, description = ? WHERE id = ?`,
		c.Name, c.Description, c.ID)
	if err != nil {
		return fmt.Errorf("update category %d: %w", c.ID, err)
	}
	return nil
}

func (r categoryRepo) Delete(ctx context.Context, id int64) error {
	if err := r.t.exec(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return nil
}

// currencies

const currencyColumns = `id, code, name, symbol`

type currencyRepo struct{ t *tx }

func scanCurrency(s scanner) (core.Currency, error) {
	var c core.Currency
	err := s.Scan(&c.ID, &c.Code, &c.Name, &c.Symbol)
	return c, err
}

func (r currencyRepo) List(ctx context.Context) ([]core.Currency, error) {
	out, err := list(ctx, r.t, scanCurrency, `SELECT `+currencyColumns+` FROM currencies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	return out, nil
}

func (r currencyRepo) Get(ctx context.Context, id int64) (core.Currency, bool, error) {
	return get(ctx, r.t, scanCurrency, `SELECT `+currencyColumns+` FROM currencies WHERE id = ?`, id)
}

func (r currencyRepo) GetByCode(ctx context.Context, code string) (core.Currency, bool, error) {
	return get(ctx, r.t, scanCurrency, `SELECT `+currencyColumns+` FROM currencies WHERE code = ?`, code)
}

func (r currencyRepo) Exists(ctx context.Context, id int64) (bool, error) {
	return r.t.exists(ctx, `SELECT 1 FROM currencies WHERE id = ?`, id)
}

func (r currencyRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return r.t.exists(ctx, `SELECT 1 FROM currencies WHERE code = ?`, code)
}

func (r currencyRepo) Add(ctx context.Context, c *core.Currency) error {
	id, err := r.t.insert(ctx,
		`INSERT INTO currencies (code, name, symbol) VALUES (?, ?, ?) RETURNING id`,
		c.Code, c.Name, c.Symbol)
	if err != nil {
		return fmt.Errorf("insert currency: %w", err)
	}
	c.ID = id
	return nil
}

func (r currencyRepo) Update(ctx context.Context, c core.Currency) error {
	err := r.t.execOne(ctx, `UPDATE currencies SET code = ?, name = ?, symbol = ? WHERE id = ?`,
		c.Code, c.Name, c.Symbol, c.ID)
	if err != nil {
		return fmt.Errorf("update currency %d: %w", c.ID, err)
	}
	return nil
}

func (r currencyRepo) Delete(ctx context.Context, id int64) error {
	if err := r.t.exec(ctx, `DELETE FROM currencies WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete currency %d: %w", id, err)
	}
	return nil
}

// expenses

const (
	expenseColumns = `id, user_id, category_id, currency_id, amount_cents, occurred_at, description`
	expenseOrder   = ` ORDER BY occurred_at DESC, id DESC`
)

type expenseRepo struct{ t *tx }

func scanExpense(s scanner) (core.Expense, error) {
	var e core.Expense
	var occurred int64
	if err := s.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.CurrencyID, &e.Amount.Cents, &occurred, &e.Description); err != nil {
		return core.Expense{}, err
	}
	e.OccurredAt = fromMicros(occurred)
	return e, nil
}

func (r expenseRepo) listWhere(ctx context.Context, where string, args ...any) ([]core.Expense, error) {
	q := `SELECT ` + expenseColumns + ` FROM expenses`
	if where != "" {
		q += ` WHERE ` + where
	}
	out, err := list(ctx, r.t, scanExpense, q+expenseOrder, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

func (r expenseRepo) List(ctx context.Context) ([]core.Expense, error) {
	return r.listWhere(ctx, "")
}

func (r expenseRepo) Get(ctx context.Context, id int64) (core.Expense, bool, error) {
	return get(ctx, r.t, scanExpense, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
}

func (r expenseRepo) ListByUser(ctx context.Context, userID int64) ([]core.Expense, error) {
	return r.listWhere(ctx, `user_id = ?`, userID)
}

func (r expenseRepo) ListByCategory(ctx context.Context, categoryID int64) ([]core.Expense, error) {
	return r.listWhere(ctx, `category_id = ?`, categoryID)
}

func (r expenseRepo) ListBetween(ctx context.Context, start, end time.Time) ([]core.Expense, error) {
	return r.listWhere(ctx, `occurred_at >= ? AND occurred_at <= ?`, toMicros(start), toMicros(end))
}

func (r expenseRepo) ListByUserBetween(ctx context.Context, userID int64, start, end time.Time) ([]core.Expense, error) {
	return r.listWhere(ctx, `user_id = ? AND occurred_at >= ? AND occurred_at <= ?`,
		userID, toMicros(start), toMicros(end))
}

func (r expenseRepo) ExistsForUser(ctx context.Context, userID int64) (bool, error) {
	return r.t.exists(ctx, `SELECT 1 FROM expenses WHERE user_id = ?`, userID)
}

func (r expenseRepo) ExistsForCategory(ctx context.Context, categoryID int64) (bool, error) {
	return r.t.exists(ctx, `SELECT 1 FROM expenses WHERE category_id = ?`, categoryID)
}

func (r expenseRepo) ExistsForCurrency(ctx context.Context, currencyID int64) (bool, error) {
	return r.t.exists(ctx, `SELECT 1 FROM expenses WHERE currency_id = ?`, currencyID)
}

func (r expenseRepo) Add(ctx context.Context, e *core.Expense) error {
	id, err := r.t.insert(ctx,
		`INSERT INTO expenses (user_id, category_id, currency_id, amount_cents, occurred_at, description)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		e.UserID, e.CategoryID, e.CurrencyID, e.Amount.Cents, toMicros(e.OccurredAt), e.Description)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	e.ID = id

	slog.DebugContext(ctx, "Expense row inserted",
		"dialect", string(r.t.d),
		"expense_id", id,
		"amount_cents", e.Amount.Cents)
	return nil
}

func (r expenseRepo) Update(ctx context.Context, e core.Expense) error {
	err := r.t.execOne(ctx,
		`UPDATE expenses SET category_id = ?, currency_id = ?, amount_cents = ?, occurred_at = ?, description = ?
		 WHERE id = ?`,
		e.CategoryID, e.CurrencyID, e.Amount.Cents, toMicros(e.OccurredAt), e.Description, e.ID)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	return nil
}

func (r expenseRepo) Delete(ctx context.Context, id int64) error {
	if err := r.t.exec(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return nil
}

// budgets

const (
	budgetColumns = `id, user_id, category_id, currency_id, limit_cents, start_date, end_date`
	budgetOrder   = ` ORDER BY start_date DESC, id DESC`
)

type budgetRepo struct{ t *tx }

func scanBudget(s scanner) (core.Budget, error) {
	var b core.Budget
	var start, end int64
	if err := s.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.CurrencyID, &b.Limit.Cents, &start, &end); err != nil {
		return core.Budget{}, err
	}
	b.StartDate = fromMicros(start)
	b.EndDate = fromMicros(end)
	return b, nil
}

func (r budgetRepo) listWhere(ctx context.Context, where string, args ...any) ([]core.Budget, error) {
	q := `SELECT ` + budgetColumns + ` FROM budgets`
	if where != "" {
		q += ` WHERE ` + where
	}
	out, err := list(ctx, r.t, scanBudget, q+budgetOrder, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return out, nil
}

func (r budgetRepo) List(ctx context.Context) ([]core.Budget, error) {
	return r.listWhere(ctx, "")
}

func (r budgetRepo) Get(ctx context.Context, id int64) (core.Budget, bool, error) {
	return get(ctx, r.t, scanBudget, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
}

func (r budgetRepo) ListByUser(ctx context.Context, userID int64) ([]core.Budget, error) {
	return r.listWhere(ctx, `user_id = ?`, userID)
}

func (r budgetRepo) ListByCategory(ctx context.Context, categoryID int64) ([]core.Budget, error) {
	return r.listWhere(ctx, `category_id = ?`, categoryID)
}

func (r budgetRepo) ListActiveAt(ctx context.Context, at time.Time) ([]core.Budget, error) {
	v := toMicros(at)
	return r.listWhere(ctx, `start_date <= ? AND end_date >= ?`, v, v)
}

func (r budgetRepo) ExistsForUser(ctx context.Context, userID int64) (bool, error) {
	return r.t.exists(ctx, `SELECT 1 FROM budgets WHERE user_id = ?`, userID)
}

func (r budgetRepo) ExistsForCategory(ctx context.Context, categoryID int64) (bool, error) {
	return r.t.exists(ctx, `SELECT 1 FROM budgets WHERE category_id = ?`, categoryID)
}

func (r budgetRepo) ExistsForCurrency(ctx context.Context, currencyID int64) (bool, error) {
	return r.t.exists(ctx, `SELECT 1 FROM budgets WHERE currency_id = ?`, currencyID)
}

func (r budgetRepo) Add(ctx context.Context, b *core.Budget) error {
	id, err := r.t.insert(ctx,
		`INSERT INTO budgets (user_id, category_id, currency_id, limit_cents, start_date, end_date)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		b.UserID, b.CategoryID, b.CurrencyID, b.Limit.Cents, toMicros(b.StartDate), toMicros(b.EndDate))
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	b.ID = id
	return nil
}

func (r budgetRepo) Update(ctx context.Context, b core.Budget) error {
	err := r.t.execOne(ctx,
		`UPDATE budgets SET category_id = ?, currency_id = ?, limit_cents = ?, start_date = ?, end_date = ?
		 WHERE id = ?`,
		b.CategoryID, b.CurrencyID, b.Limit.Cents, toMicros(b.StartDate), toMicros(b.EndDate), b.ID)
	if err != nil {
		return fmt.Errorf("update budget %d: %w", b.ID, err)
	}
	return nil
}

func (r budgetRepo) Delete(ctx context.Context, id int64) error {
	if err := r.t.exec(ctx, `DELETE FROM budgets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	return nil
}
