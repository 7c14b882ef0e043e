package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation      = "23505"
	pgStringDataTruncation = "22001"
)

// uniqueViolation returns the violated constraint (PostgreSQL) or column
// list (SQLite) when err is a unique violation
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgUniqueViolation {
			return pgErr.ConstraintName, true
		}
		return "", false
	}
	// sqlite: "UNIQUE constraint failed: orders.order_number"
	msg := err.Error()
	if i := strings.Index(msg, "UNIQUE constraint failed:"); i >= 0 {
		return strings.TrimSpace(msg[i+len("UNIQUE constraint failed:"):]), true
	}
	return "", false
}

// wrapError leaves domain errors and context errors as they are and wraps
// everything else as a persistence error
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	// value longer than its column
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgStringDataTruncation {
		verr := shared.NewValidationError(pgErr.ColumnName, "value is too long")
		verr.Err = err
		return verr
	}
	return shared.NewPersistenceError(op, err)
}
