package driverconn

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Sentinel classes a driver error can be mapped to, grounded on the
// teacher's errors.go sentinel set, narrowed to what a Connection
// actually needs to surface (the Store itself defines the higher-level
// WrongStore/NotFlushed/... taxonomy from spec.md §7).
var (
	ErrNoRows               = sql.ErrNoRows
	ErrDuplicateKey         = errors.New("stormgo/driverconn: duplicate key violates unique constraint")
	ErrForeignKey           = errors.New("stormgo/driverconn: foreign key constraint violation")
	ErrNotNullViolation     = errors.New("stormgo/driverconn: not-null constraint violation")
	ErrCheckViolation       = errors.New("stormgo/driverconn: check constraint violation")
	ErrSerializationFailure = errors.New("stormgo/driverconn: serialization failure, retry the transaction")
	ErrDeadlock             = errors.New("stormgo/driverconn: transaction deadlock detected")
	ErrConnectionLost       = errors.New("stormgo/driverconn: connection to database lost")
)

// QueryError wraps a driver error with the statement that produced it,
// grounded on the teacher's errors.go QueryError.
type QueryError struct {
	Query     string
	Args      []any
	Operation string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("stormgo/driverconn: %s failed: %v (query=%q)", e.Operation, e.Err, e.Query)
}

func (e *QueryError) Unwrap() error { return e.Err }

// WrapQueryError classifies a raw driver error by pattern-matching its
// message across Postgres/MySQL/SQLite, since database/sql does not
// normalize driver errors itself. Grounded almost verbatim on the
// teacher's errors.go WrapQueryError.
func WrapQueryError(operation, query string, args []any, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &QueryError{Query: query, Args: args, Operation: operation, Err: sql.ErrNoRows}
	}

	msg := strings.ToLower(err.Error())
	classified := err
	switch {
	case strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate entry") || strings.Contains(msg, "unique_violation"):
		classified = fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	case strings.Contains(msg, "foreign key constraint"):
		classified = fmt.Errorf("%w: %v", ErrForeignKey, err)
	case strings.Contains(msg, "not null constraint") || strings.Contains(msg, "cannot be null"):
		classified = fmt.Errorf("%w: %v", ErrNotNullViolation, err)
	case strings.Contains(msg, "check constraint"):
		classified = fmt.Errorf("%w: %v", ErrCheckViolation, err)
	case strings.Contains(msg, "deadlock"):
		classified = fmt.Errorf("%w: %v", ErrDeadlock, err)
	case strings.Contains(msg, "could not serialize access") || strings.Contains(msg, "serialization failure"):
		classified = fmt.Errorf("%w: %v", ErrSerializationFailure, err)
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset"):
		classified = fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}

	return &QueryError{Query: query, Args: args, Operation: operation, Err: classified}
}

// IsDuplicateKey reports whether err (or a wrapped cause) is a unique
// constraint violation.
func IsDuplicateKey(err error) bool { return errors.Is(err, ErrDuplicateKey) }

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool { return errors.Is(err, ErrForeignKey) }

// IsNotFound reports whether err is sql.ErrNoRows (wrapped or bare).
func IsNotFound(err error) bool { return errors.Is(err, sql.ErrNoRows) }
