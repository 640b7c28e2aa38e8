package session

import (
	"errors"
	"fmt"
)

// Error codes for session failures. These never reach the user directly;
// the store absorbs them into a safe state and logs them.
const (
	ErrInvalidIdentity = "SESSION_INVALID_IDENTITY"
	ErrStorageRead     = "SESSION_STORAGE_READ"
	ErrStorageWrite    = "SESSION_STORAGE_WRITE"
	ErrStorageCorrupt  = "SESSION_STORAGE_CORRUPT"
)

// SessionError represents a session error with a code and an optional cause.
type SessionError struct {
	// Code is the error code (e.g., SESSION_STORAGE_CORRUPT)
	Code string

	// Message is a human-readable error message
	Message string

	// Cause is the underlying error, if any
	Cause error
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *SessionError) Unwrap() error {
	return e.Cause
}

// NewError creates a new SessionError.
func NewError(code, message string) *SessionError {
	return &SessionError{Code: code, Message: message}
}

// WrapError wraps an existing error with a SessionError.
func WrapError(code, message string, cause error) *SessionError {
	return &SessionError{Code: code, Message: message, Cause: cause}
}

// IsSessionError checks if an error is a SessionError with the given code.
func IsSessionError(err error, code string) bool {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
