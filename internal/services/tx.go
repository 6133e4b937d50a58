package services

import "context"

// inTx runs fn in one transaction and returns its result.
func inTx[T any](ctx context.Context, store Store, fn func(tx Tx) (T, error)) (T, error) {
	var out T
	err := store.InTx(ctx, func(tx Tx) error {
		var err error
		out, err = fn(tx)
		return err
	})
	return out, err
}

// emptyIfNil keeps list results non-nil so adapters encode [] instead of null.
func emptyIfNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
