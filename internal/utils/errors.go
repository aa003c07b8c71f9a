package utils

import (
	"net/http"
)

// Error codes returned to clients alongside the message.
const (
	CodeBadRequest      = "bad_request"
	CodeNotFound        = "not_found"
	CodeInternal        = "internal_error"
	CodeNoTables        = "no_tables_detected"
	CodeEncodingFailure = "encoding_failure"
)

type AppError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *AppError) Error() string {
	return e.Message
}

func NewBadRequestError(message string) *AppError {
	return &AppError{StatusCode: http.StatusBadRequest, Code: CodeBadRequest, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{StatusCode: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

func NewInternalError(message string) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Code: CodeInternal, Message: message}
}

// NewNoTablesError reports a document in which no ruled table was found.
func NewNoTablesError() *AppError {
	return &AppError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       CodeNoTables,
		Message:    "No tables found in PDF. Make sure it has grid lines.",
	}
}

// NewEncodingError reports a table that could not be written in the
// requested download format.
func NewEncodingError(message string) *AppError {
	return &AppError{StatusCode: http.StatusUnprocessableEntity, Code: CodeEncodingFailure, Message: message}
}
