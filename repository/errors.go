package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// SQLSTATE codes the repositories classify
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateUniqueViolation      = "23505"
	sqlStateForeignKeyViolation  = "23503"
)

var (
	// ErrNotFound is returned by write operations that matched no row
	ErrNotFound = errors.New("record not found")
	// ErrCounterConflict means another transaction changed or created the same counter row first
	ErrCounterConflict = errors.New("sequence counter modified concurrently")
	// ErrTransactionRequired is returned when an operation must run inside an open transaction
	ErrTransactionRequired = errors.New("operation requires an open transaction")
)

// sqlState extracts the SQLSTATE of a pgx or lib/pq error
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// IsSerializationFailure reports whether err is a serialization failure or deadlock
// that can be resolved by re-running the whole transaction.
// SQLite reports lock contention as "database is locked".
func IsSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	switch sqlState(err) {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected:
		return true
	}
	return strings.Contains(err.Error(), "database is locked")
}

// IsUniqueViolation reports whether err is a unique constraint violation
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || sqlState(err) == sqlStateUniqueViolation {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsUniqueViolationOn reports whether err is a unique violation raised by an index over column.
// It needs the driver error: gorm.ErrDuplicatedKey carries no constraint and never matches.
func IsUniqueViolationOn(err error, column string) bool {
	if err == nil || column == "" {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateUniqueViolation && constraintCovers(pgErr.ConstraintName, column)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == sqlStateUniqueViolation && constraintCovers(pqErr.Constraint, column)
	}
	// SQLite: "UNIQUE constraint failed: landlords.email"
	msg := err.Error()
	i := strings.Index(msg, "UNIQUE constraint failed: ")
	if i < 0 {
		return false
	}
	for _, col := range strings.Split(msg[i+len("UNIQUE constraint failed: "):], ",") {
		col = strings.TrimSpace(col)
		if j := strings.LastIndex(col, "."); j >= 0 {
			col = col[j+1:]
		}
		if col == column {
			return true
		}
	}
	return false
}

// constraintCovers matches gorm's index naming (idx_<table>_<column>, uk_<table>_<column>)
func constraintCovers(constraint, column string) bool {
	return constraint == column || strings.HasSuffix(constraint, "_"+column)
}

// IsForeignKeyViolation reports whether err is a foreign key violation
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) || sqlState(err) == sqlStateForeignKeyViolation {
		return true
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
