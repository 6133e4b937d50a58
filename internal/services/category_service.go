package services

import (
	"context"
	"fmt"
	"log/slog"

	"spendwise/internal/core"
)

// CategoryService keeps category names unique and refuses to delete a
// category that expenses or budgets still reference.
type CategoryService struct {
	store Store
}

func NewCategoryService(store Store) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	return inTx(ctx, s.store, func(tx Tx) ([]core.Category, error) {
		cats, err := tx.Categories().List(ctx)
		return emptyIfNil(cats), err
	})
}

func (s *CategoryService) GetByID(ctx context.Context, id int64) (core.Category, error) {
	return inTx(ctx, s.store, func(tx Tx) (core.Category, error) {
		c, found, err := tx.Categories().Get(ctx, id)
		if err != nil {
			return core.Category{}, fmt.Errorf("get category: %w", err)
		}
		if !found {
			return core.Category{}, core.NotFound(core.EntityCategory, id)
		}
		return c, nil
	})
}

func (s *CategoryService) GetByName(ctx context.Context, name string) (core.Category, error) {
	return inTx(ctx, s.store, func(tx Tx) (core.Category, error) {
		c, found, err := tx.Categories().GetByName(ctx, name)
		if err != nil {
			return core.Category{}, fmt.Errorf("get category by name: %w", err)
		}
		if !found {
			return core.Category{}, core.NotFoundBy(core.EntityCategory, "name", name)
		}
		return c, nil
	})
}

// ExistsByName is a case-sensitive exact match.
func (s *CategoryService) ExistsByName(ctx context.Context, name string) (bool, error) {
	return inTx(ctx, s.store, func(tx Tx) (bool, error) {
		return tx.Categories().ExistsByName(ctx, name)
	})
}

func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	created, err := inTx(ctx, s.store, func(tx Tx) (core.Category, error) {
		taken, err := tx.Categories().ExistsByName(ctx, c.Name)
		if err != nil {
			return core.Category{}, fmt.Errorf("check category name: %w", err)
		}
		if taken {
			return core.Category{}, core.Conflict(core.EntityCategory, "a category named %q already exists", c.Name)
		}

		c.ID = 0
		if err := tx.Categories().Add(ctx, &c); err != nil {
			return core.Category{}, fmt.Errorf("add category: %w", err)
		}
		return c, nil
	})
	if err != nil {
		return core.Category{}, err
	}

	slog.InfoContext(ctx, "Category created", "category_id", created.ID, "name", created.Name)
	return created, nil
}

func (s *CategoryService) Update(ctx context.Context, id int64, p core.CategoryUpdate) error {
	err := s.store.InTx(ctx, func(tx Tx) error {
		current, found, err := tx.Categories().Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}
		if !found {
			return core.NotFound(core.EntityCategory, id)
		}

		if p.Name != current.Name {
			taken, err := tx.Categories().ExistsByName(ctx, p.Name)
			if err != nil {
				return fmt.Errorf("check category name: %w", err)
			}
			if taken {
				return core.Conflict(core.EntityCategory, "a category named %q already exists", p.Name)
			}
		}

		current.Apply(p)
		if err := tx.Categories().Update(ctx, current); err != nil {
			return fmt.Errorf("update category: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Category updated", "category_id", id)
	return nil
}

func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(tx Tx) error {
		found, err := tx.Categories().Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("check category: %w", err)
		}
		if !found {
			return core.NotFound(core.EntityCategory, id)
		}

		busy, err := DependentsOf(tx).CategoryHasDependents(ctx, id)
		if err != nil {
			return fmt.Errorf("check category dependents: %w", err)
		}
		if busy {
			return core.Conflict(core.EntityCategory, "category %d has dependent records", id)
		}

		if err := tx.Categories().Delete(ctx, id); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Category deleted", "category_id", id)
	return nil
}
