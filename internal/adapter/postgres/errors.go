package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pscheid92/forumpulse/internal/domain"
)

const (
	sqlstateSerializationFailure = "40001"
	sqlstateDeadlockDetected     = "40P01"
	sqlstateUniqueViolation      = "23505"
	sqlstateForeignKeyViolation  = "23503"
	sqlstateCheckViolation       = "23514"
)

// mapError attaches the matching domain error to a driver error so callers can
// classify it with errors.Is. The original error stays in the chain.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateSerializationFailure, sqlstateDeadlockDetected:
			return fmt.Errorf("%w: %s: %w", domain.ErrConflict, op, err)
		case sqlstateUniqueViolation, sqlstateCheckViolation:
			return fmt.Errorf("%w: %s: %w", domain.ErrConstraintViolation, op, err)
		case sqlstateForeignKeyViolation:
			return fmt.Errorf("%w: %s: %w", domain.ErrPostNotFound, op, err)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// mapCommitError classifies a failed COMMIT. Apart from a serialization failure the
// server may or may not have applied the transaction.
func mapCommitError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == sqlstateSerializationFailure || pgErr.Code == sqlstateDeadlockDetected) {
		return fmt.Errorf("%w: commit: %w", domain.ErrConflict, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrCommitUnknown, err)
}
