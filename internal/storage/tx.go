package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"spendwise/internal/services"
)

type tx struct {
	q *sql.Tx
	d Dialect
}

func (t *tx) Users() services.UserRepository { return userRepo{t} }
func (t *tx) Categories() services.CategoryRepository { return categoryRepo{t} }
func (t *tx) Currencies() services.CurrencyRepository { return currencyRepo{t} }
func (t *tx) Expenses() services.ExpenseRepository { return expenseRepo{t} }
func (t *tx) Budgets() services.BudgetRepository { return budgetRepo{t} }

type scanner interface {
	Scan(dest ...any) error
}

func (t *tx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.q.QueryRowContext(ctx, t.d.rebind(query), args...)
}

// insert runs an INSERT ... RETURNING id statement.
func (t *tx) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := t.queryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// execOne runs a single-row UPDATE and fails if no row matched.
func (t *tx) execOne(ctx context.Context, query string, args ...any) error {
	res, err := t.q.ExecContext(ctx, t.d.rebind(query), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (t *tx) exec(ctx context.Context, query string, args ...any) error {
	_, err := t.q.ExecContext(ctx, t.d.rebind(query), args...)
	return err
}

func (t *tx) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := t.queryRow(ctx, "SELECT EXISTS ("+query+")", args...).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// get scans a single row; a missing row is found=false with no error.
func get[T any](ctx context.Context, t *tx, scan func(scanner) (T, error), query string, args ...any) (T, bool, error) {
	v, err := scan(t.queryRow(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v, true, nil
}

func list[T any](ctx context.Context, t *tx, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := t.q.QueryContext(ctx, t.d.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
