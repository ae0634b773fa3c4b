package sqlstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
)

// PostgreSQL error codes treated as write conflicts.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"
)

// classify maps driver errors onto the lifecycle taxonomy. Domain errors and
// unknown errors pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var le *lifecycle.Error
	if errors.As(err, &le) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return lifecycle.Timeout(err)
	}
	if IsConflict(err) {
		return lifecycle.ConcurrentModification("a concurrent writer modified the same rows", err)
	}
	return err
}

// IsConflict reports whether err is a lock conflict, serialization failure or
// uniqueness race that a caller may resolve by reloading and retrying.
func IsConflict(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return true
		case sqlite3.ErrConstraint:
			return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
				sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
		}
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable, pgUniqueViolation:
			return true
		}
	}
	return false
}
