package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrUnsupportedInput        = errors.New("unsupported input")
	ErrEmptyText               = errors.New("empty text")
	ErrExtractorFailure        = errors.New("extractor failure")
	ErrValidationFailure       = errors.New("validation failure")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)

// Error codes carried on AppError; these are the stable identifiers
// surfaced in the output contract's error field.
const (
	CodeUnsupportedInput        = "UNSUPPORTED_INPUT"
	CodeEmptyText               = "EMPTY_TEXT"
	CodeExtractorFailure        = "EXTRACTOR_FAILURE"
	CodeValidationFailure       = "VALIDATION_FAILURE"
	CodeCollaboratorUnavailable = "COLLABORATOR_UNAVAILABLE"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func NewUnsupportedInputError(message string) *AppError {
	return NewAppError(CodeUnsupportedInput, message, ErrUnsupportedInput)
}

func NewEmptyTextError(message string) *AppError {
	return NewAppError(CodeEmptyText, message, ErrEmptyText)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
