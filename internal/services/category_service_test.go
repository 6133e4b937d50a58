package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
)

func TestCategoryNameIsUnique(t *testing.T) {
	f := newFixture(t)
	food := f.category(t, "Food")
	travel := f.category(t, "Travel")

	_, err := f.categories.Create(f.ctx, core.Category{Name: "Food"})
	require.ErrorIs(t, err, core.ErrConflict)

	err = f.categories.Update(f.ctx, travel.ID, core.CategoryUpdate{Name: "Food"})
	require.ErrorIs(t, err, core.ErrConflict)

	require.NoError(t, f.categories.Update(f.ctx, food.ID, core.CategoryUpdate{Name: "Food", Description: "groceries"}))
	got, err := f.categories.GetByName(f.ctx, "Food")
	require.NoError(t, err)
	assert.Equal(t, "groceries", got.Description)

	list, err := f.categories.List(f.ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCategoryNameMatchIsCaseSensitive(t *testing.T) {
	f := newFixture(t)
	f.category(t, "Food")

	ok, err := f.categories.ExistsByName(f.ctx, "food")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.categories.GetByName(f.ctx, "food")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestCategoryDeleteGuard(t *testing.T) {
	tests := []struct {
		name   string
		depend func(f *fixture, t *testing.T, u core.User, c core.Category, cur core.Currency)
	}{
		{
			name: "expense",
			depend: func(f *fixture, t *testing.T, u core.User, c core.Category, cur core.Currency) {
				f.expense(t, u, c, cur, 100, day(3))
			},
		},
		{
			name: "budget",
			depend: func(f *fixture, t *testing.T, u core.User, c core.Category, cur core.Currency) {
				_, err := f.budgets.Create(f.ctx, core.Budget{
					UserID: u.ID, CategoryID: c.ID, CurrencyID: cur.ID,
					Limit: core.Cents(100), StartDate: day(1), EndDate: day(31),
				})
				require.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			u, c, cur := f.refs(t)
			tt.depend(f, t, u, c, cur)

			err := f.categories.Delete(f.ctx, c.ID)
			require.ErrorIs(t, err, core.ErrConflict)

			_, err = f.categories.GetByID(f.ctx, c.ID)
			require.NoError(t, err, "category must survive a blocked delete")
		})
	}
}

func TestCategoryDelete(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Food")

	require.NoError(t, f.categories.Delete(f.ctx, c.ID))
	require.ErrorIs(t, f.categories.Delete(f.ctx, c.ID), core.ErrNotFound)
	require.ErrorIs(t, f.categories.Update(f.ctx, c.ID, core.CategoryUpdate{Name: "X"}), core.ErrNotFound)
}

func TestCategoryUniquenessAfterSequence(t *testing.T) {
	f := newFixture(t)
	names := []string{"A", "B", "C"}
	for _, n := range names {
		f.category(t, n)
	}
	// Every attempt to collide fails; renames to fresh names succeed.
	_ = f.categories.Update(f.ctx, 1, core.CategoryUpdate{Name: "B"})
	_ = f.categories.Update(f.ctx, 2, core.CategoryUpdate{Name: "D"})
	_ = f.categories.Update(f.ctx, 3, core.CategoryUpdate{Name: "B"})
	_, _ = f.categories.Create(f.ctx, core.Category{Name: "A"})

	list, err := f.categories.List(f.ctx)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, c := range list {
		assert.False(t, seen[c.Name], "duplicate name %q", c.Name)
		seen[c.Name] = true
	}
	assert.Equal(t, map[string]bool{"A": true, "D": true, "B": true}, seen)
}
