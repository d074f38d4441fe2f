package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError carrying the same code, so a
// detailed error still matches the sentinel of its category.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes of the workflow and reconciliation rules
const (
	CodeInvalidTransition        = "INVALID_TRANSITION"
	CodeOverAllocation           = "OVER_ALLOCATION"
	CodeArithmeticMismatch       = "ARITHMETIC_MISMATCH"
	CodeNumberAllocationConflict = "NUMBER_ALLOCATION_CONFLICT"
	CodeDispatchFailure          = "DISPATCH_FAILURE"
	CodeHasDependents            = "HAS_DEPENDENTS"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")

	ErrInvalidTransition        = NewDomainError(CodeInvalidTransition, "State transition not allowed")
	ErrOverAllocation           = NewDomainError(CodeOverAllocation, "Allocation exceeds invoice total")
	ErrArithmeticMismatch       = NewDomainError(CodeArithmeticMismatch, "Supplied total disagrees with computed total")
	ErrNumberAllocationConflict = NewDomainError(CodeNumberAllocationConflict, "Document number could not be allocated")
	ErrDispatchFailure          = NewDomainError(CodeDispatchFailure, "Document dispatch failed")
	ErrHasDependents            = NewDomainError(CodeHasDependents, "Resource still has dependent records")
)

// NewInvalidTransitionError reports a state machine violation
func NewInvalidTransitionError(message string) *DomainError {
	return NewDomainError(CodeInvalidTransition, message)
}

// NewOverAllocationError reports an allocation beyond an invoice total
func NewOverAllocationError(message string) *DomainError {
	return NewDomainError(CodeOverAllocation, message)
}

// NewArithmeticMismatchError reports a caller-supplied total outside tolerance
func NewArithmeticMismatchError(message string) *DomainError {
	return NewDomainError(CodeArithmeticMismatch, message)
}

// NewNumberAllocationConflictError reports lock contention on a number counter
func NewNumberAllocationConflictError(message string) *DomainError {
	return NewDomainError(CodeNumberAllocationConflict, message)
}

// NewDispatchFailureError reports a failed notification send
func NewDispatchFailureError(message string) *DomainError {
	return NewDomainError(CodeDispatchFailure, message)
}

// IsRetryable reports whether the caller may safely retry the operation that
// produced err. Only transient failures qualify.
func IsRetryable(err error) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	switch domainErr.Code {
	case CodeNumberAllocationConflict, CodeDispatchFailure, ErrConcurrencyConflict.Code:
		return true
	default:
		return false
	}
}
