package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned on unique or foreign key violations
	ErrConflict = errors.New("record conflicts with existing data")

	// ErrRetryable marks failures the caller may retry: lock wait timeouts,
	// deadlocks and serialization failures
	ErrRetryable = errors.New("database is busy, retry the request")
)

// PostgreSQL error codes the repositories react to
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeLockNotAvailable     = "55P03"
	codeDeadlockDetected     = "40P01"
	codeSerializationFailure = "40001"
	codeQueryCanceled        = "57014"
)

// RetryableError wraps a driver error classified as retryable
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return ErrRetryable.Error() + ": " + e.Err.Error()
}

func (e *RetryableError) Unwrap() []error {
	return []error{ErrRetryable, e.Err}
}

// IsRetryable reports whether err is a lock timeout, deadlock or serialization failure
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRetryable) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFailure, codeQueryCanceled:
			return true
		}
	}
	return false
}

// Translate maps driver errors onto the package sentinels. Unknown errors pass through.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation, codeForeignKeyViolation:
			return &conflictError{constraint: pqErr.Constraint, err: err}
		case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFailure, codeQueryCanceled:
			return &RetryableError{Err: err}
		}
	}
	return err
}

type conflictError struct {
	constraint string
	err        error
}

func (e *conflictError) Error() string {
	if e.constraint != "" {
		return ErrConflict.Error() + " (" + e.constraint + ")"
	}
	return ErrConflict.Error()
}

func (e *conflictError) Unwrap() []error {
	return []error{ErrConflict, e.err}
}

// ConstraintOf returns the violated constraint name of a conflict, if any
func ConstraintOf(err error) string {
	var ce *conflictError
	if errors.As(err, &ce) {
		return ce.constraint
	}
	return ""
}

// IsNotFound reports whether err means the row does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
