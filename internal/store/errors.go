package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"legal-clinic/internal/clinic"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the store distinguishes.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func alreadyExists(entity, key string) error {
	return fmt.Errorf("%w: %s %q: %w", clinic.ErrTransaction, entity, key, clinic.ErrAlreadyExists)
}

func missingReference(entity, key string) error {
	return fmt.Errorf("%w: referenced %s %q does not exist", clinic.ErrTransaction, entity, key)
}

// storageErr maps a database error onto the clinic taxonomy. Every result
// matches clinic.ErrTransaction; unique violations also match
// clinic.ErrAlreadyExists.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if isClassified(err) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s: %w", clinic.ErrTransaction, pgErr.ConstraintName, clinic.ErrAlreadyExists)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: foreign key %s: %w", clinic.ErrTransaction, pgErr.ConstraintName, err)
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: concurrent update, retry the request: %w", clinic.ErrTransaction, err)
		}
	}
	return fmt.Errorf("%w: %w", clinic.ErrTransaction, err)
}

// isClassified reports errors that already carry workflow meaning and must
// reach the caller unchanged.
func isClassified(err error) bool {
	return errors.Is(err, clinic.ErrTransaction) ||
		errors.Is(err, clinic.ErrNotFound) ||
		errors.Is(err, clinic.ErrValidation) ||
		errors.Is(err, clinic.ErrAllocation) ||
		errors.Is(err, clinic.ErrAlreadyExists) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func noRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }
