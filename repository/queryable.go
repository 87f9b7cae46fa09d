package repository

import (
	"context"
	"errors"
	"fmt"

	"coinledger/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// queryable is satisfied by both *pgxpool.Pool and pgx.Tx
type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	pgCheckViolation  = "23514"
	pgUniqueViolation = "23505"
)

// wrapError annotates err with op. A CHECK constraint failure means a write
// would have broken a stored invariant and is reported as such.
func wrapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCheckViolation:
			return fmt.Errorf("%s: %w: constraint %s", op, service.ErrInvariantViolation, pgErr.ConstraintName)
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w: duplicate key %s", op, service.ErrInvariantViolation, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
