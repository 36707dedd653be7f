package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is an application-specific error type
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// wraps an error with a code and message
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Newf creates a new AppError with a formatted message
func Newf(code, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// CodeOf returns the code of the outermost AppError in the chain, or CodeInternal
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code
func Is(err error, code string) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// MessageOf returns the message of the outermost AppError, or err.Error()
func MessageOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		if appErr.Cause != nil {
			return fmt.Sprintf("%s: %v", appErr.Message, appErr.Cause)
		}
		return appErr.Message
	}
	return err.Error()
}

// Error code constants
const (
	CodeInternal   = "INTERNAL_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeInvalidArg = "INVALID_ARGUMENT"
	CodeExternal   = "EXTERNAL_ERROR"
	CodeConflict   = "CONFLICT"         // Resource already exists or is locked by another run
	CodeDependency = "DEPENDENCY_ERROR" // Foreign key constraint violation

	CodeProvider        = "PROVIDER_ERROR"          // Transcript provider failure
	CodeEmbedding       = "EMBEDDING_SERVICE_ERROR" // Embedding endpoint failure
	CodeIndexIO         = "INDEX_IO_ERROR"          // Missing or corrupt index/metadata
	CodeDimension       = "DIMENSION_MISMATCH"
	CodeModelMismatch   = "EMBEDDING_MODEL_MISMATCH"
	CodeCompletionBlock = "COMPLETION_BLOCKED"
	CodeCompletion      = "COMPLETION_SERVICE_ERROR"
	CodeNotProcessed    = "NOT_PROCESSED"
	CodeConfig          = "CONFIG_ERROR"
	CodeParse           = "PARSE_ERROR"
)
