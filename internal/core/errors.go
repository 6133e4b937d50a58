package core

import (
	"errors"
	"fmt"
)

// Error kinds raised by the rule engine. Typed errors below match these
// with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)

// Entity names used in error messages and logs.
const (
	EntityUser     = "user"
	EntityCategory = "category"
	EntityCurrency = "currency"
	EntityExpense  = "expense"
	EntityBudget   = "budget"
)

// NotFoundError reports that a requested row does not exist.
type NotFoundError struct {
	Entity string
	Key    string // "id 7", "email a@b.c", "code USD"
}

func NotFound(entity string, id int64) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: fmt.Sprintf("id %d", id)}
}

func NotFoundBy(entity, field, value string) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: field + " " + value}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with %s not found", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError reports a failed structural precondition.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func Invalid(field string, value any, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError reports a uniqueness or dependent-row violation.
type ConflictError struct {
	Entity string
	Reason string
}

func Conflict(entity, format string, args ...any) *ConflictError {
	return &ConflictError{Entity: entity, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Entity, e.Reason)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
