package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies pipeline failures
type ErrorType string

const (
	ErrorTypeValidation           ErrorType = "validation_error"
	ErrorTypeNotFound             ErrorType = "not_found"
	ErrorTypeMalformedModelOutput ErrorType = "malformed_model_output"
	ErrorTypeExternal             ErrorType = "external_service"
	ErrorTypeSubprocess           ErrorType = "subprocess"
	ErrorTypeIO                   ErrorType = "io_error"
	ErrorTypeConflict             ErrorType = "conflict"
	ErrorTypeTimeout              ErrorType = "timeout"
	ErrorTypeUnavailable          ErrorType = "unavailable"
)

// AppError carries a failure kind next to the wrapped cause
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string

	// Permanent marks errors that must not be retried
	Permanent bool
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

// NewAppError creates a new AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewMalformedModelOutputError is returned when a language model answer fails shape validation
func NewMalformedModelOutputError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeMalformedModelOutput, message, originalError)
}

func NewExternalError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeExternal, message, originalError)
}

// NewPermanentExternalError is an external failure that retrying cannot fix (bad credentials etc.)
func NewPermanentExternalError(message string, originalError error) *AppError {
	e := NewAppError(ErrorTypeExternal, message, originalError)
	e.Permanent = true
	return e
}

func NewSubprocessError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeSubprocess, message, originalError)
}

func NewIOError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeIO, message, originalError)
}

func NewConflictError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeConflict, message, originalError)
}

func NewTimeoutError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeTimeout, message, originalError)
}

// NewUnavailableError means the service cannot take more work right now
func NewUnavailableError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeUnavailable, message, originalError)
}

// TypeOf returns the type of the outermost AppError in the chain, or "" if there is none
func TypeOf(err error) ErrorType {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type
	}
	return ""
}

func IsValidationError(err error) bool {
	return TypeOf(err) == ErrorTypeValidation
}

func IsNotFoundError(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

func IsMalformedModelOutput(err error) bool {
	return TypeOf(err) == ErrorTypeMalformedModelOutput
}

func IsSubprocessError(err error) bool {
	return TypeOf(err) == ErrorTypeSubprocess
}

func IsIOError(err error) bool {
	return TypeOf(err) == ErrorTypeIO
}

func IsConflictError(err error) bool {
	return TypeOf(err) == ErrorTypeConflict
}

func IsUnavailableError(err error) bool {
	return TypeOf(err) == ErrorTypeUnavailable
}

// IsPermanent reports whether any AppError in the chain is marked permanent
func IsPermanent(err error) bool {
	for err != nil {
		var appError *AppError
		if !errors.As(err, &appError) {
			return false
		}
		if appError.Permanent {
			return true
		}
		err = appError.Err
	}
	return false
}

func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeMalformedModelOutput:
		return "MALFORMED_MODEL_OUTPUT"
	case ErrorTypeExternal:
		return "EXTERNAL_SERVICE_ERROR"
	case ErrorTypeSubprocess:
		return "SUBPROCESS_ERROR"
	case ErrorTypeIO:
		return "IO_ERROR"
	case ErrorTypeConflict:
		return "CONFLICT"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	case ErrorTypeUnavailable:
		return "UNAVAILABLE"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError prefixes message onto err, keeping the type of an existing AppError
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		return &AppError{
			Type:      appError.Type,
			Message:   message,
			Err:       err,
			Code:      appError.Code,
			Permanent: appError.Permanent,
		}
	}

	return NewAppError(errType, message, err)
}
