package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the SQLSTATE of a unique constraint or unique index conflict.
const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err, or anything it wraps, is a unique conflict raised by
// PostgreSQL. Inserts use it to turn duplicates into errs.ErrConflict.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
