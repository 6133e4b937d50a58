// Package seed loads the default currencies and categories on first start.
package seed

import (
	"context"
	"fmt"

	"spendwise/internal/core"
	"spendwise/internal/log"
)

var DefaultCurrencies = []core.Currency{
	{Code: "USD", Name: "US Dollar", Symbol: "$"},
	{Code: "EUR", Name: "Euro", Symbol: "€"},
	{Code: "GBP", Name: "Pound Sterling", Symbol: "£"},
	{Code: "ARS", Name: "Argentine Peso", Symbol: "$"},
	{Code: "MXN", Name: "Mexican Peso", Symbol: "$"},
	{Code: "CLP", Name: "Chilean Peso", Symbol: "$"},
	{Code: "COP", Name: "Colombian Peso", Symbol: "$"},
	{Code: "PEN", Name: "Peruvian Sol", Symbol: "S/"},
	{Code: "BRL", Name: "Brazilian Real", Symbol: "R$"},
	{Code: "PYG", Name: "Paraguayan Guaraní", Symbol: "₲"},
	{Code: "UYU", Name: "Uruguayan Peso", Symbol: "$U"},
}

var DefaultCategories = []core.Category{
	{Name: "Food", Description: "Groceries and meals"},
	{Name: "Transport", Description: "Fuel, fares and other travel costs"},
	{Name: "Housing", Description: "Rent, mortgage and home maintenance"},
	{Name: "Utilities", Description: "Electricity, water, internet and phone"},
	{Name: "Health", Description: "Medicine, doctor visits and health insurance"},
	{Name: "Education", Description: "Tuition, courses, books and supplies"},
	{Name: "Leisure", Description: "Entertainment, restaurants, cinema and trips"},
	{Name: "Clothing", Description: "Clothes, shoes and accessories"},
	{Name: "Technology", Description: "Devices and software"},
	{Name: "Debt", Description: "Loan and credit card payments"},
	{Name: "Savings", Description: "Investments and emergency funds"},
	{Name: "Other", Description: "Uncategorized expenses"},
}

type CurrencyRules interface {
	List(ctx context.Context) ([]core.Currency, error)
	Create(ctx context.Context, c core.Currency) (core.Currency, error)
}

type CategoryRules interface {
	List(ctx context.Context) ([]core.Category, error)
	Create(ctx context.Context, c core.Category) (core.Category, error)
}

// Seeder inserts reference data through the rule engine so that the same
// uniqueness rules apply as for API writes.
type Seeder struct {
	currencies CurrencyRules
	categories CategoryRules
	logger     *log.Logger
}

func New(currencies CurrencyRules, categories CategoryRules, logger *log.Logger) *Seeder {
	return &Seeder{
		currencies: currencies,
		categories: categories,
		logger:     logger.WithComponent(log.ComponentSeed),
	}
}

// Run seeds each table only when it is empty. A table that already holds
// rows is left untouched, even if some defaults are missing.
func (s *Seeder) Run(ctx context.Context) error {
	existing, err := s.currencies.List(ctx)
	if err != nil {
		return fmt.Errorf("list currencies: %w", err)
	}
	if len(existing) == 0 {
		for _, c := range DefaultCurrencies {
			if _, err := s.currencies.Create(ctx, c); err != nil {
				return fmt.Errorf("seed currency %s: %w", c.Code, err)
			}
		}
		s.logger.InfoContext(ctx, "Seeded currencies", "count", len(DefaultCurrencies))
	}

	cats, err := s.categories.List(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	if len(cats) == 0 {
		for _, c := range DefaultCategories {
			if _, err := s.categories.Create(ctx, c); err != nil {
				return fmt.Errorf("seed category %s: %w", c.Name, err)
			}
		}
		s.logger.InfoContext(ctx, "Seeded categories", "count", len(DefaultCategories))
	}

	return nil
}
