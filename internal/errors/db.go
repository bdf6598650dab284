package errors

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapDBError maps database errors to AppError instances:
//   - sql.ErrNoRows / pgx.ErrNoRows → NotFound
//   - unique constraint violations → Conflict
//   - foreign key / check / not-null violations → Validation
//   - context deadline / cancellation → Timeout / Canceled
//
// Unrecognized errors are wrapped as Internal so callers never leak raw
// driver errors to the HTTP boundary.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{Code: ErrCodeTimeout, Message: "database operation timed out", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{Code: ErrCodeCanceled, Message: "database operation canceled", Cause: err}
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return &AppError{Code: ErrCodeNotFound, Message: "record not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}

	return &AppError{Code: ErrCodeInternal, Message: "database error", Cause: err}
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		msg := "value already exists"
		if pgErr.ColumnName != "" {
			msg = "duplicate value for " + pgErr.ColumnName
		}
		return &AppError{Code: ErrCodeConflict, Message: msg, Cause: pgErr}
	case pgerrcode.ForeignKeyViolation:
		return &AppError{Code: ErrCodeValidation, Message: "referenced record does not exist", Cause: pgErr}
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		msg := "invalid value"
		if pgErr.ColumnName != "" {
			msg = "invalid value for " + pgErr.ColumnName
		}
		return &AppError{Code: ErrCodeValidation, Message: msg, Cause: pgErr}
	default:
		return &AppError{Code: ErrCodeInternal, Message: "database error", Cause: pgErr}
	}
}
