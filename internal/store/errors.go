package store

import (
	"errors"
	"fmt"

	ordererrors "order-inventory-service/internal/errors"

	"github.com/lib/pq"
)

// classify maps PostgreSQL errors onto the error taxonomy. The driver error
// stays in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "40001", // serialization_failure
		"40P01": // deadlock_detected
		return fmt.Errorf("%w: %w", ordererrors.ErrSerializationFailure, err)
	case "55P03", // lock_not_available
		"57014": // query_canceled (statement_timeout)
		return fmt.Errorf("%w: %w", ordererrors.ErrConcurrencyConflict, err)
	case "23502", "23514":
		return fmt.Errorf("%w: %w", ordererrors.ErrConstraintViolation, err)
	case "23503":
		return fmt.Errorf("%w: %w", ordererrors.ErrDependentReference, err)
	}
	return err
}
