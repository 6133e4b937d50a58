package services

import (
	"context"
	"fmt"
	"log/slog"

	"spendwise/internal/core"
)

// CurrencyService mirrors CategoryService keyed on the ISO code. Every
// write and lookup normalizes the code to uppercase first.
type CurrencyService struct {
	store Store
}

func NewCurrencyService(store Store) *CurrencyService {
	return &CurrencyService{store: store}
}

func (s *CurrencyService) List(ctx context.Context) ([]core.Currency, error) {
	return inTx(ctx, s.store, func(tx Tx) ([]core.Currency, error) {
		curs, err := tx.Currencies().List(ctx)
		return emptyIfNil(curs), err
	})
}

func (s *CurrencyService) GetByID(ctx context.Context, id int64) (core.Currency, error) {
	return inTx(ctx, s.store, func(tx Tx) (core.Currency, error) {
		c, found, err := tx.Currencies().Get(ctx, id)
		if err != nil {
			return core.Currency{}, fmt.Errorf("get currency: %w", err)
		}
		if !found {
			return core.Currency{}, core.NotFound(core.EntityCurrency, id)
		}
		return c, nil
	})
}

func (s *CurrencyService) GetByCode(ctx context.Context, code string) (core.Currency, error) {
	code = core.NormalizeCurrencyCode(code)
	return inTx(ctx, s.store, func(tx Tx) (core.Currency, error) {
		c, found, err := tx.Currencies().GetByCode(ctx, code)
		if err != nil {
			return core.Currency{}, fmt.Errorf("get currency by code: %w", err)
		}
		if !found {
			return core.Currency{}, core.NotFoundBy(core.EntityCurrency, "code", code)
		}
		return c, nil
	})
}

func (s *CurrencyService) ExistsByCode(ctx context.Context, code string) (bool, error) {
	code = core.NormalizeCurrencyCode(code)
	return inTx(ctx, s.store, func(tx Tx) (bool, error) {
		return tx.Currencies().ExistsByCode(ctx, code)
	})
}

func (s *CurrencyService) Create(ctx context.Context, c core.Currency) (core.Currency, error) {
	c.Code = core.NormalizeCurrencyCode(c.Code)
	created, err := inTx(ctx, s.store, func(tx Tx) (core.Currency, error) {
		taken, err := tx.Currencies().ExistsByCode(ctx, c.Code)
		if err != nil {
			return core.Currency{}, fmt.Errorf("check currency code: %w", err)
		}
		if taken {
			return core.Currency{}, core.Conflict(core.EntityCurrency, "a currency with code %s already exists", c.Code)
		}

		c.ID = 0
		if err := tx.Currencies().Add(ctx, &c); err != nil {
			return core.Currency{}, fmt.Errorf("add currency: %w", err)
		}
		return c, nil
	})
	if err != nil {
		return core.Currency{}, err
	}

	slog.InfoContext(ctx, "Currency created", "currency_id", created.ID, "code", created.Code)
	return created, nil
}

func (s *CurrencyService) Update(ctx context.Context, id int64, p core.CurrencyUpdate) error {
	p.Code = core.NormalizeCurrencyCode(p.Code)
	err := s.store.InTx(ctx, func(tx Tx) error {
		current, found, err := tx.Currencies().Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get currency: %w", err)
		}
		if !found {
			return core.NotFound(core.EntityCurrency, id)
		}

		if p.Code != current.Code {
			taken, err := tx.Currencies().ExistsByCode(ctx, p.Code)
			if err != nil {
				return fmt.Errorf("check currency code: %w", err)
			}
			if taken {
				return core.Conflict(core.EntityCurrency, "a currency with code %s already exists", p.Code)
			}
		}

		current.Apply(p)
		if err := tx.Currencies().Update(ctx, current); err != nil {
			return fmt.Errorf("update currency: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Currency updated", "currency_id", id, "code", p.Code)
	return nil
}

func (s *CurrencyService) Delete(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(tx Tx) error {
		found, err := tx.Currencies().Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("check currency: %w", err)
		}
		if !found {
			return core.NotFound(core.EntityCurrency, id)
		}

		busy, err := DependentsOf(tx).CurrencyHasDependents(ctx, id)
		if err != nil {
			return fmt.Errorf("check currency dependents: %w", err)
		}
		if busy {
			return core.Conflict(core.EntityCurrency, "currency %d has dependent records", id)
		}

		if err := tx.Currencies().Delete(ctx, id); err != nil {
			return fmt.Errorf("delete currency: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Currency deleted", "currency_id", id)
	return nil
}
