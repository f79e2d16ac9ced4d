package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bear-kitchen/internal/shared"
)

// WithTx runs fn in a transaction and commits it when fn succeeds.
// Errors from fn are returned unchanged.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return StorageErr(err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return StorageErr(err)
	}
	return nil
}

// StorageErr tags a driver error with shared.ErrStorage. Cancellation is
// passed through untouched.
func StorageErr(err error) error {
	if err == nil || errors.Is(err, shared.ErrStorage) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", shared.ErrStorage, err)
}

// Nullable maps a nil pointer to SQL NULL.
func Nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
