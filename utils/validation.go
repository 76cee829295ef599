package utils

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is the singleton validator instance
	validate *validator.Validate

	// actionNameRegex matches provider-qualified names such as ollama/llama3.
	actionNameRegex = regexp.MustCompile(`^[^/\s]+/[^\s]+$`)

	// indexNameRegex matches names that are safe inside a file name.
	indexNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]*$`)
)

func init() {
	validate = validator.New()
}

// ValidateStruct validates a struct using go-playground/validator
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

// ValidationError wraps validation errors with structured details
type ValidationError struct {
	Message string
	Fields  map[string]string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Fields)
}

// NewValidationError creates a ValidationError from validator.ValidationErrors
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	fields := make(map[string]string)
	for _, err := range errs {
		field := err.Namespace()
		tag := err.Tag()

		switch tag {
		case "required":
			fields[field] = fmt.Sprintf("%s is required", err.Field())
		case "url":
			fields[field] = fmt.Sprintf("%s must be a valid URL", err.Field())
		case "min":
			fields[field] = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			fields[field] = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "gt":
			fields[field] = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "oneof":
			fields[field] = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		default:
			fields[field] = fmt.Sprintf("%s validation failed on '%s' tag", err.Field(), tag)
		}
	}

	return &ValidationError{
		Message: "Validation failed",
		Fields:  fields,
	}
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// GetValidationFields extracts field errors from a ValidationError
func GetValidationFields(err error) map[string]string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Fields
	}
	return nil
}

// ValidateActionName checks that name has the form <provider>/<local-name>.
func ValidateActionName(name string) error {
	if !actionNameRegex.MatchString(name) {
		return fmt.Errorf("invalid action name %q: want <provider>/<name>", name)
	}
	return nil
}

// ValidateIndexName checks that an index name can be used in a file name.
func ValidateIndexName(name string) error {
	if !indexNameRegex.MatchString(name) {
		return fmt.Errorf("invalid index name %q", name)
	}
	return nil
}

// ValidateRequired validates that a string is not empty
func ValidateRequired(value string, fieldName string) error {
	if value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}
