package dto

import (
	"net/http"
	"strings"
)

// Error codes returned to API clients.
// Format: ERR_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown   = "ERR_UNKNOWN"
	ErrCodeInternal  = "ERR_INTERNAL"
	ErrCodeForbidden = "ERR_FORBIDDEN"
)

// Input error codes
const (
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeHasDependents       = "ERR_HAS_DEPENDENTS"
)

// Workflow and reconciliation error codes
const (
	ErrCodeInvalidState             = "ERR_INVALID_STATE"
	ErrCodeInvalidTransition        = "ERR_INVALID_TRANSITION"
	ErrCodeOverAllocation           = "ERR_OVER_ALLOCATION"
	ErrCodeArithmeticMismatch       = "ERR_ARITHMETIC_MISMATCH"
	ErrCodeNumberAllocationConflict = "ERR_NUMBER_ALLOCATION_CONFLICT"
)

// Collaborator failures
const (
	ErrCodeGenerationFailed = "ERR_GENERATION_FAILED"
	ErrCodeDispatchFailure  = "ERR_DISPATCH_FAILURE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:   http.StatusInternalServerError,
	ErrCodeInternal:  http.StatusInternalServerError,
	ErrCodeForbidden: http.StatusForbidden,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeHasDependents:       http.StatusConflict,

	// Business rule violations -> 422 Unprocessable Entity
	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodeInvalidTransition:  http.StatusUnprocessableEntity,
	ErrCodeOverAllocation:     http.StatusUnprocessableEntity,
	ErrCodeArithmeticMismatch: http.StatusUnprocessableEntity,

	// Retryable contention
	ErrCodeNumberAllocationConflict: http.StatusConflict,

	// A downstream renderer or mail server failed
	ErrCodeGenerationFailed: http.StatusBadGateway,
	ErrCodeDispatchFailure:  http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code. Unmapped
// ERR_INVALID_* codes are input errors; anything else unknown is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "ERR_INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// domainCodeAliases covers domain codes whose API code is not simply the
// ERR_ prefixed form
var domainCodeAliases = map[string]string{
	"STAGE_NOT_FOUND":  ErrCodeNotFound,
	"VALIDATION_ERROR": ErrCodeValidation,
	"INTERNAL_ERROR":   ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code (NOT_FOUND,
// OVER_ALLOCATION, ...) into its API form. Codes already in API form are
// returned as-is.
func NormalizeErrorCode(code string) string {
	if code == "" {
		return ErrCodeUnknown
	}
	if alias, ok := domainCodeAliases[code]; ok {
		return alias
	}
	if strings.HasPrefix(code, "ERR_") {
		return code
	}
	return "ERR_" + code
}
