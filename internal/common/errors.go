// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// ErrNotFound means a ledger lookup matched nothing.
	ErrNotFound = errors.New("not found")

	// Backend errors.
	ErrAPI         = errors.New("backend request failed")
	ErrServerError = errors.New("backend server error")

	// Export errors.
	ErrNoRows          = errors.New("no rows to export")
	ErrInvalidFilename = errors.New("invalid export filename")
	ErrEmptyStyleKey   = errors.New("empty style key")

	// Configuration and flag errors.
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidInput  = errors.New("invalid input")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
