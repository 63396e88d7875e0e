package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
)

// uniqueViolation is the SQLSTATE postgres reports for unique-index breaches.
const uniqueViolation = "23505"

// IsUniqueViolation matches the unique_violation SQLSTATE without binding
// callers to a specific driver error type.
func IsUniqueViolation(err error) bool {
	type coder interface{ SQLState() string }
	var c coder
	if errors.As(err, &c) {
		return c.SQLState() == uniqueViolation
	}
	return false
}

// RequireRow converts a zero-rows-affected UPDATE or DELETE into
// sentinel.ErrNotFound. Conditional status transitions use RequireState
// instead, because there a missing row and a lost race look the same.
func RequireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// RequireState converts a zero-rows-affected conditional transition
// (UPDATE ... WHERE status = X) into sentinel.ErrInvalidState: either the row
// is gone or another writer moved it first, and callers treat both as
// "already processed".
func RequireState(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}
