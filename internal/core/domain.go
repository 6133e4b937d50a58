package core

import (
	"strings"
	"time"
)

type (
	User struct {
		ID           int64     `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		RegisteredAt time.Time `json:"registered_at"`
	}

	// UserUpdate replaces the mutable fields of a user. A nil PasswordHash
	// keeps the stored hash.
	UserUpdate struct {
		Name         string
		Email        string
		PasswordHash *string
	}

	Category struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	CategoryUpdate struct {
		Name        string
		Description string
	}

	Currency struct {
		ID     int64  `json:"id"`
		Code   string `json:"code"` // always uppercase once stored
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	}

	CurrencyUpdate struct {
		Code   string
		Name   string
		Symbol string
	}

	Expense struct {
		ID          int64     `json:"id"`
		UserID      int64     `json:"user_id"`
		CategoryID  int64     `json:"category_id"`
		CurrencyID  int64     `json:"currency_id"`
		Amount      Money     `json:"amount"`
		OccurredAt  time.Time `json:"occurred_at"`
		Description string    `json:"description"`
	}

	// ExpenseUpdate replaces the mutable fields of an expense. The owner is
	// fixed at creation. A zero OccurredAt keeps the stored date.
	ExpenseUpdate struct {
		CategoryID  int64
		CurrencyID  int64
		Amount      Money
		OccurredAt  time.Time
		Description string
	}

	Budget struct {
		ID         int64     `json:"id"`
		UserID     int64     `json:"user_id"`
		CategoryID int64     `json:"category_id"`
		CurrencyID int64     `json:"currency_id"`
		Limit      Money     `json:"limit"`
		StartDate  time.Time `json:"start_date"`
		EndDate    time.Time `json:"end_date"`
	}

	BudgetUpdate struct {
		CategoryID int64
		CurrencyID int64
		Limit      Money
		StartDate  time.Time
		EndDate    time.Time
	}

	// BudgetUsage is the spending measured against a budget's limit.
	BudgetUsage struct {
		Budget    Budget `json:"budget"`
		Spent     Money  `json:"spent"`
		Remaining Money  `json:"remaining"` // negative once the limit is exceeded
		OverLimit bool   `json:"over_limit"`
	}

	// CurrencyTotal is the sum of expense amounts recorded in one currency.
	CurrencyTotal struct {
		CurrencyID int64 `json:"currency_id"`
		Total      Money `json:"total"`
		Count      int   `json:"count"`
	}
)

// NormalizeCurrencyCode returns the stored form of a currency code.
func NormalizeCurrencyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Contains reports whether t falls inside [StartDate, EndDate], both ends inclusive.
func (b Budget) Contains(t time.Time) bool {
	return !t.Before(b.StartDate) && !t.After(b.EndDate)
}

// Apply overwrites the mutable fields of u.
func (u *User) Apply(p UserUpdate) {
	u.Name = p.Name
	u.Email = p.Email
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
}

func (c *Category) Apply(p CategoryUpdate) {
	c.Name = p.Name
	c.Description = p.Description
}

func (c *Currency) Apply(p CurrencyUpdate) {
	c.Code = NormalizeCurrencyCode(p.Code)
	c.Name = p.Name
	c.Symbol = p.Symbol
}

func (e *Expense) Apply(p ExpenseUpdate) {
	e.CategoryID = p.CategoryID
	e.CurrencyID = p.CurrencyID
	e.Amount = p.Amount
	e.Description = p.Description
	if !p.OccurredAt.IsZero() {
		e.OccurredAt = p.OccurredAt
	}
}

func (b *Budget) Apply(p BudgetUpdate) {
	b.CategoryID = p.CategoryID
	b.CurrencyID = p.CurrencyID
	b.Limit = p.Limit
	b.StartDate = p.StartDate
	b.EndDate = p.EndDate
}

// ChangeKind names a committed mutation.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ExpenseChange describes an expense mutation after it has been committed.
// For deletions Expense holds the row as it was before removal. For updates
// Previous holds the row as it was before the change.
type ExpenseChange struct {
	Kind     ChangeKind
	Expense  Expense
	Previous *Expense
	At       time.Time
}
