package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation constraint. When constraintName is provided, the helper looks
// for the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if code, constraint, ok := pgError(err); ok {
		if code != pgUniqueViolation {
			return false
		}
		return constraintName == "" || constraint == constraintName
	}
	if constraintName != "" {
		return chainContains(err, constraintName)
	}
	return chainContains(err, "duplicate key value", "UNIQUE constraint failed")
}

// IsRetryable reports whether err is a transient contention failure: a
// serialization failure, a deadlock, a lock timeout, or a busy sqlite file.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if code, _, ok := pgError(err); ok {
		switch code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return true
		}
		return false
	}
	return chainContains(err, "database is locked", "database table is locked")
}

// chainContains matches driver messages at any depth of the wrap chain.
func chainContains(err error, needles ...string) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		msg := err.Error()
		for _, needle := range needles {
			if strings.Contains(msg, needle) {
				return true
			}
		}
	}
	return false
}

func pgError(err error) (code, constraint string, ok bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	return "", "", false
}
