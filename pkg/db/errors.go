package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// IsUniqueViolation reports whether err is a unique constraint violation.
// When constraintName is set, the violated constraint must match it. SQLite
// does not report constraint names, so its errors match on kind alone.
func IsUniqueViolation(err error, constraintName string) bool {
	return matchesViolation(err, pgUniqueViolation, constraintName, "duplicate key value", "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	return matchesViolation(err, pgForeignKeyViolation, "", "violates foreign key constraint", "FOREIGN KEY constraint failed")
}

// IsCheckViolation reports whether err is a CHECK constraint violation.
func IsCheckViolation(err error, constraintName string) bool {
	return matchesViolation(err, pgCheckViolation, constraintName, "violates check constraint", "CHECK constraint failed")
}

func matchesViolation(err error, pgCode, constraintName, pgText, sqliteText string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == pgCode && constraintMatches(pgxErr.ConstraintName, constraintName)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgCode && constraintMatches(pqErr.Constraint, constraintName)
	}

	msg := err.Error()
	if strings.Contains(msg, pgText) {
		return constraintName == "" || strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, sqliteText)
}

func constraintMatches(actual, want string) bool {
	return want == "" || actual == want
}
