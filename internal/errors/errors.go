// Package errors defines the error taxonomy shared by the store, the services and the HTTP layer.
package errors

import "errors"

// Kinds. Callers classify with errors.Is against these.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrConcurrencyConflict = errors.New("concurrency conflict, retry the request")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrDependentReference  = errors.New("entity is still referenced")
)

var ErrOrderNotFound = &kindError{msg: "order not found", kind: ErrNotFound}
var ErrProductNotFound = &kindError{msg: "product not found", kind: ErrNotFound}

// ErrSerializationFailure is a conflict the database resolved by aborting the
// transaction (serialization failure, deadlock). Running the transaction again
// can succeed. Lock timeouts are not in this class.
var ErrSerializationFailure = &kindError{msg: "transaction aborted by a concurrent update", kind: ErrConcurrencyConflict}

var ErrTransactionBegin = errors.New("failed to begin transaction")
var ErrTransactionCommit = errors.New("failed to commit transaction")

// kindError is a named sentinel that also matches its kind.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }
