package services

import (
	"context"
	"fmt"
	"log/slog"

	"spendwise/internal/core"
)

// UserService enforces the user rules: unique email, registration stamp,
// and no deletion while expenses or budgets still belong to the user.
type UserService struct {
	store Store
	clock core.Clock
}

func NewUserService(store Store, clock core.Clock) *UserService {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &UserService{store: store, clock: clock}
}

func (s *UserService) List(ctx context.Context) ([]core.User, error) {
	return inTx(ctx, s.store, func(tx Tx) ([]core.User, error) {
		users, err := tx.Users().List(ctx)
		return emptyIfNil(users), err
	})
}

func (s *UserService) GetByID(ctx context.Context, id int64) (core.User, error) {
	return inTx(ctx, s.store, func(tx Tx) (core.User, error) {
		u, found, err := tx.Users().Get(ctx, id)
		if err != nil {
			return core.User{}, fmt.Errorf("get user: %w", err)
		}
		if !found {
			return core.User{}, core.NotFound(core.EntityUser, id)
		}
		return u, nil
	})
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (core.User, error) {
	return inTx(ctx, s.store, func(tx Tx) (core.User, error) {
		u, found, err := tx.Users().GetByEmail(ctx, email)
		if err != nil {
			return core.User{}, fmt.Errorf("get user by email: %w", err)
		}
		if !found {
			return core.User{}, core.NotFoundBy(core.EntityUser, "email", email)
		}
		return u, nil
	})
}

// EmailExists reports whether any user is registered with email (exact match).
func (s *UserService) EmailExists(ctx context.Context, email string) (bool, error) {
	return inTx(ctx, s.store, func(tx Tx) (bool, error) {
		return tx.Users().ExistsByEmail(ctx, email)
	})
}

// Create stores a new user, stamping the registration time.
func (s *UserService) Create(ctx context.Context, u core.User) (core.User, error) {
	created, err := inTx(ctx, s.store, func(tx Tx) (core.User, error) {
		taken, err := tx.Users().ExistsByEmail(ctx, u.Email)
		if err != nil {
			return core.User{}, fmt.Errorf("check email: %w", err)
		}
		if taken {
			return core.User{}, core.Conflict(core.EntityUser, "email %s is already registered", u.Email)
		}

		u.ID = 0
		u.RegisteredAt = core.Timestamp(s.clock.Now())
		if err := tx.Users().Add(ctx, &u); err != nil {
			return core.User{}, fmt.Errorf("add user: %w", err)
		}
		return u, nil
	})
	if err != nil {
		return core.User{}, err
	}

	slog.InfoContext(ctx, "User created", "user_id", created.ID)
	return created, nil
}

// Update replaces name and email, and the password hash when one is given.
func (s *UserService) Update(ctx context.Context, id int64, p core.UserUpdate) error {
	err := s.store.InTx(ctx, func(tx Tx) error {
		current, found, err := tx.Users().Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if !found {
			return core.NotFound(core.EntityUser, id)
		}

		if p.PasswordHash != nil && *p.PasswordHash == "" {
			return core.Invalid("password_hash", "", "must not be empty when provided")
		}

		if p.Email != current.Email {
			taken, err := tx.Users().ExistsByEmail(ctx, p.Email)
			if err != nil {
				return fmt.Errorf("check email: %w", err)
			}
			if taken {
				return core.Conflict(core.EntityUser, "email %s is already registered by another user", p.Email)
			}
		}

		current.Apply(p)
		if err := tx.Users().Update(ctx, current); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "User updated", "user_id", id, "password_changed", p.PasswordHash != nil)
	return nil
}

// Delete removes a user that owns no expenses or budgets.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(tx Tx) error {
		found, err := tx.Users().Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if !found {
			return core.NotFound(core.EntityUser, id)
		}

		busy, err := DependentsOf(tx).UserHasDependents(ctx, id)
		if err != nil {
			return fmt.Errorf("check user dependents: %w", err)
		}
		if busy {
			return core.Conflict(core.EntityUser, "user %d has dependent records", id)
		}

		if err := tx.Users().Delete(ctx, id); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "User deleted", "user_id", id)
	return nil
}
