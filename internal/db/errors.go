package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a requested record is not found.
	ErrNotFound = errors.New("record not found")

	// ErrConstraintViolation is returned when a write breaks a table constraint,
	// such as a stats snapshot with only some of its columns set.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrUnavailable is returned when the database cannot be reached.
	ErrUnavailable = errors.New("database unavailable")
)

// WrapError wraps database errors with the failed operation and maps driver
// errors onto the sentinels above.
func WrapError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", operation, ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23514", "23502": // check_violation, not_null_violation
			return fmt.Errorf("%s: %w (constraint: %s)", operation, ErrConstraintViolation, pgErr.ConstraintName)
		case "57P01", "57P03": // admin_shutdown, cannot_connect_now
			return fmt.Errorf("%s: %w: %s", operation, ErrUnavailable, pgErr.Message)
		default:
			return fmt.Errorf("%s: database error [%s]: %w", operation, pgErr.Code, err)
		}
	}

	if pgconn.SafeToRetry(err) {
		return fmt.Errorf("%s: %w: %w", operation, ErrUnavailable, err)
	}

	return fmt.Errorf("%s: %w", operation, err)
}

// IsNotFound returns true if the error is an ErrNotFound error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConstraintViolation returns true if the error is an ErrConstraintViolation error.
func IsConstraintViolation(err error) bool {
	return errors.Is(err, ErrConstraintViolation)
}
