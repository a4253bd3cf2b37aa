package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates an attempt to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates a request that conflicts with existing state, e.g. an
// idempotency key reused with a different payload.
var ErrConflict = errors.New("conflicting request")

// ErrInsufficientFunds indicates a debit or hold was denied because the
// account's available balance is too low.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrAccountInactive indicates the account is frozen or closed.
var ErrAccountInactive = errors.New("account is not active")

// ErrDuplicateApplication indicates a ledger entry for the same transaction
// and direction was already applied to the account. Settlement retries rely on
// this to stay exactly-once at the storage layer.
var ErrDuplicateApplication = errors.New("ledger effect already applied")

// ErrRateUnavailable indicates no exchange rate could be resolved for a
// currency pair.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// ErrTransientProvider indicates a provider failure that may succeed on retry
// (timeout, 5xx-class response).
var ErrTransientProvider = errors.New("transient provider error")

// ErrDefinitiveProvider indicates a provider-reported permanent failure; the
// transaction reverses immediately.
var ErrDefinitiveProvider = errors.New("definitive provider error")

// ErrReconciliationRequired marks a FAILED transaction that needs manual
// intervention and must never be auto-resolved.
var ErrReconciliationRequired = errors.New("manual reconciliation required")

// ErrInternal indicates an unexpected internal failure.
var ErrInternal = errors.New("internal error")

// AppError wraps a lower-level error with an HTTP-ish status code and a
// message suitable for logging. Repositories use it to annotate storage
// failures without losing the underlying cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates an AppError wrapping err.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}
