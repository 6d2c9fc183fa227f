package main

import (
	"fmt"
)

// Raised before any side effect: unknown table names, unsupported formats, invalid policies
type ValidationError struct {
	Message string
}

func (err *ValidationError) Error() string {
	return err.Message
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func NewUnsupportedFormatError(kind string, format string) *ValidationError {
	return NewValidationError("Unsupported %s format: %s", kind, format)
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type WriteConflictError struct {
	Target    string
	WriteMode WriteMode
}

func (err *WriteConflictError) Error() string {
	return fmt.Sprintf("%s already exists (write mode: %s)", err.Target, err.WriteMode)
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type EngineError struct {
	Operation string
	Err       error
}

func (err *EngineError) Error() string {
	return err.Operation + ": " + err.Err.Error()
}

func (err *EngineError) Unwrap() error {
	return err.Err
}

func NewEngineError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Operation: operation, Err: err}
}
