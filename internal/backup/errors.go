package backup

import (
	"errors"
	"fmt"
)

// EngineError represents errors raised by backup and restore operations
type EngineError struct {
	Type    EngineErrorType        `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// EngineErrorType represents different classes of engine errors
type EngineErrorType string

const (
	EngineErrorTypeConfiguration EngineErrorType = "CONFIGURATION_ERROR"
	EngineErrorTypeDriver        EngineErrorType = "DRIVER_ERROR"
	EngineErrorTypeValidation    EngineErrorType = "VALIDATION_ERROR"
	EngineErrorTypePrecondition  EngineErrorType = "PRECONDITION_ERROR"
	EngineErrorTypeStorage       EngineErrorType = "STORAGE_ERROR"
	EngineErrorTypeLedger        EngineErrorType = "LEDGER_ERROR"
	EngineErrorTypeNotFound      EngineErrorType = "NOT_FOUND_ERROR"
)

// NewEngineError creates a new EngineError
func NewEngineError(errorType EngineErrorType, message string, cause error) *EngineError {
	return &EngineError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors
func NewConfigurationError(message string, cause error) *EngineError {
	return NewEngineError(EngineErrorTypeConfiguration, message, cause)
}

func NewDriverError(message string, cause error) *EngineError {
	return NewEngineError(EngineErrorTypeDriver, message, cause)
}

func NewValidationError(message string, cause error) *EngineError {
	return NewEngineError(EngineErrorTypeValidation, message, cause)
}

func NewPreconditionError(message string, cause error) *EngineError {
	return NewEngineError(EngineErrorTypePrecondition, message, cause)
}

func NewStorageError(message string, cause error) *EngineError {
	return NewEngineError(EngineErrorTypeStorage, message, cause)
}

func NewLedgerError(message string, cause error) *EngineError {
	return NewEngineError(EngineErrorTypeLedger, message, cause)
}

func NewNotFoundError(message string, cause error) *EngineError {
	return NewEngineError(EngineErrorTypeNotFound, message, cause)
}

// IsPrecondition reports whether err is a precondition failure
func IsPrecondition(err error) bool {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Type == EngineErrorTypePrecondition
	}
	return false
}

// IsNotFound reports whether err indicates a missing record or artifact
func IsNotFound(err error) bool {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Type == EngineErrorTypeNotFound
	}
	return false
}

// IsRetryable determines if an error is worth retrying
func IsRetryable(err error) bool {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		switch engineErr.Type {
		case EngineErrorTypeStorage, EngineErrorTypeDriver:
			return true
		default:
			return false
		}
	}
	return false
}
