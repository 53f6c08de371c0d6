// Package error defines domain-specific errors for the reconciliation engine.
package error

import "errors"

// ErrInvalidState is the parent of every state error: the operation is not allowed
// in the entity's current state or references an entity that does not exist.
var ErrInvalidState = errors.New("invalid state")

// Reconciliation domain errors.
var (
	// ErrInvalidPeriod is returned when a reconciliation period is empty or reversed.
	ErrInvalidPeriod = errors.New("invalid reconciliation period")

	// ErrTransactionNotFound is returned when a processor transaction does not exist.
	ErrTransactionNotFound = errors.New("processor transaction not found")

	// ErrEntryNotFound is returned when a ledger entry does not exist.
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrExceptionNotFound is returned when an exception does not exist.
	ErrExceptionNotFound = errors.New("exception not found")

	// ErrExceptionAlreadyResolved is returned when resolving an exception twice.
	ErrExceptionAlreadyResolved = errors.New("exception already resolved")

	// ErrInvalidResolutionAction is returned when the resolution action is unknown.
	ErrInvalidResolutionAction = errors.New("invalid resolution action")

	// ErrMissingResolver is returned when a resolution has no resolver identity.
	ErrMissingResolver = errors.New("resolver identity is required")

	// ErrInvalidReturn is returned when a returned payment lacks identifiers.
	ErrInvalidReturn = errors.New("invalid returned payment")

	// ErrUnknownCustomer is returned when no receivable account exists for a customer.
	ErrUnknownCustomer = errors.New("unknown customer")

	// ErrLockNotAcquired is returned when a per-entity lock could not be taken in time.
	ErrLockNotAcquired = errors.New("lock not acquired")
)

// ReconciliationErrorCode defines error codes for reconciliation errors.
// Format: RCN-XXYYYY where XX is category and YYYY is specific error.
type ReconciliationErrorCode string

const (
	// Validation errors (01XXXX)
	ErrCodeInvalidPeriod            ReconciliationErrorCode = "RCN-010001"
	ErrCodeInvalidResolutionAction  ReconciliationErrorCode = "RCN-010002"
	ErrCodeMissingResolver          ReconciliationErrorCode = "RCN-010003"
	ErrCodeInvalidReturn            ReconciliationErrorCode = "RCN-010004"
	ErrCodeMissingReconciliationArg ReconciliationErrorCode = "RCN-010005"
	ErrCodeInvalidSeverity          ReconciliationErrorCode = "RCN-010006"

	// Not found errors (02XXXX)
	ErrCodeTransactionNotFound ReconciliationErrorCode = "RCN-020001"
	ErrCodeEntryNotFound       ReconciliationErrorCode = "RCN-020002"
	ErrCodeExceptionNotFound   ReconciliationErrorCode = "RCN-020003"
	ErrCodeReportNotFound      ReconciliationErrorCode = "RCN-020004"
	ErrCodeUnknownCustomer     ReconciliationErrorCode = "RCN-020005"

	// State errors (03XXXX)
	ErrCodeExceptionAlreadyResolved ReconciliationErrorCode = "RCN-030001"
	ErrCodeLockNotAcquired          ReconciliationErrorCode = "RCN-030002"
)

// ReconciliationError represents a reconciliation error with code and message.
type ReconciliationError struct {
	Code    ReconciliationErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ReconciliationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// Is makes every not-found and state error match ErrInvalidState.
func (e *ReconciliationError) Is(target error) bool {
	if target != ErrInvalidState {
		return false
	}
	return e.IsStateError()
}

// IsStateError reports whether the error is a state error rather than a validation error.
func (e *ReconciliationError) IsStateError() bool {
	return len(e.Code) >= 6 && (e.Code[4:6] == "02" || e.Code[4:6] == "03")
}

// NewReconciliationError creates a new ReconciliationError with the given code and message.
func NewReconciliationError(code ReconciliationErrorCode, message string, err error) *ReconciliationError {
	return &ReconciliationError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
