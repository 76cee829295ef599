package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeStoreUnavailable      ErrorType = "store_unavailable"
	ErrorTypeStoreCorrupt          ErrorType = "store_corrupt"
	ErrorTypeDimensionMismatch     ErrorType = "dimension_mismatch"
	ErrorTypeInvalidEmbedding      ErrorType = "invalid_embedding"
	ErrorTypeEmbeddingFailed       ErrorType = "embedding_failed"
	ErrorTypeDuplicateRegistration ErrorType = "duplicate_registration"
	ErrorTypeNotFound              ErrorType = "not_found"
	ErrorTypeValidation            ErrorType = "validation"
	ErrorTypeUnauthorized          ErrorType = "unauthorized"
	ErrorTypeInternal              ErrorType = "internal"
	ErrorTypeExternal              ErrorType = "external"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError of the same Type.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Sentinels for errors.Is. Never call WithDetail on these; use the
// constructors below to get a fresh value.
var (
	ErrStoreUnavailable      = NewDomainError(ErrorTypeStoreUnavailable, "document store unavailable", nil)
	ErrStoreCorrupt          = NewDomainError(ErrorTypeStoreCorrupt, "document store corrupt", nil)
	ErrDimensionMismatch     = NewDomainError(ErrorTypeDimensionMismatch, "embedding dimensions do not match", nil)
	ErrInvalidEmbedding      = NewDomainError(ErrorTypeInvalidEmbedding, "embedding is not finite", nil)
	ErrEmbeddingFailed       = NewDomainError(ErrorTypeEmbeddingFailed, "embedding failed", nil)
	ErrDuplicateRegistration = NewDomainError(ErrorTypeDuplicateRegistration, "action already registered", nil)
	ErrNotFound              = NewDomainError(ErrorTypeNotFound, "not found", nil)
	ErrInvalidInput          = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrUnauthorized          = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)
	ErrInternal              = NewDomainError(ErrorTypeInternal, "internal server error", nil)
)

// NewStoreUnavailableError reports that the backing source could not be read.
func NewStoreUnavailableError(message string, err error) *DomainError {
	return NewDomainError(ErrorTypeStoreUnavailable, message, err)
}

// NewStoreCorruptError reports a record that does not decode into a stored entry.
func NewStoreCorruptError(message string, err error) *DomainError {
	return NewDomainError(ErrorTypeStoreCorrupt, message, err)
}

// NewDimensionMismatchError reports two vectors of different lengths.
func NewDimensionMismatchError(left, right int) *DomainError {
	return NewDomainError(ErrorTypeDimensionMismatch,
		fmt.Sprintf("cannot compare vectors of length %d and %d", left, right), nil).
		WithDetail("left", left).
		WithDetail("right", right)
}

// NewInvalidEmbeddingError reports a vector with NaN or infinite components.
func NewInvalidEmbeddingError(message string) *DomainError {
	return NewDomainError(ErrorTypeInvalidEmbedding, message, nil)
}

func NewEmbeddingFailedError(message string, err error) *DomainError {
	return NewDomainError(ErrorTypeEmbeddingFailed, message, err)
}

func NewDuplicateRegistrationError(name string) *DomainError {
	return NewDomainError(ErrorTypeDuplicateRegistration,
		fmt.Sprintf("action %q already registered", name), nil).
		WithDetail("name", name)
}

func NewNotFoundError(what, name string) *DomainError {
	return NewDomainError(ErrorTypeNotFound,
		fmt.Sprintf("%s %q not found", what, name), nil).
		WithDetail("name", name)
}

func NewValidationError(message string, err error) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, err)
}

// Error type checking helper functions

func isType(err error, errType ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == errType
	}
	return false
}

// IsStoreUnavailableError checks if an error is a store unavailable error
func IsStoreUnavailableError(err error) bool {
	return isType(err, ErrorTypeStoreUnavailable)
}

// IsStoreCorruptError checks if an error is a store corrupt error
func IsStoreCorruptError(err error) bool {
	return isType(err, ErrorTypeStoreCorrupt)
}

// IsDimensionMismatchError checks if an error is a dimension mismatch error
func IsDimensionMismatchError(err error) bool {
	return isType(err, ErrorTypeDimensionMismatch)
}

// IsInvalidEmbeddingError checks if an error is a non-finite embedding error
func IsInvalidEmbeddingError(err error) bool {
	return isType(err, ErrorTypeInvalidEmbedding)
}

// IsEmbeddingFailedError checks if an error is an embedding failure
func IsEmbeddingFailedError(err error) bool {
	return isType(err, ErrorTypeEmbeddingFailed)
}

// IsDuplicateRegistrationError checks if an error is a duplicate registration error
func IsDuplicateRegistrationError(err error) bool {
	return isType(err, ErrorTypeDuplicateRegistration)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return isType(err, ErrorTypeUnauthorized)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return isType(err, ErrorTypeInternal)
}

// IsExternalError checks if an error is an external provider error
func IsExternalError(err error) bool {
	return isType(err, ErrorTypeExternal)
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapExternal wraps an error as an external provider error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}
