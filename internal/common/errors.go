// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Provider errors.
	ErrAuthFailed         = errors.New("authentication failed")
	ErrTokenExpired       = errors.New("credentials expired and cannot be refreshed")
	ErrProviderRateLimit  = errors.New("provider rate limit exceeded")
	ErrUnknownProvider    = errors.New("unknown mail provider")
	ErrOAuthUnsupported   = errors.New("provider does not support OAuth linking")
	ErrProviderConnection = errors.New("provider connection failed")

	// Sync errors.
	ErrSyncActive = errors.New("a sync job is already active for this account")

	// Extraction errors.
	ErrNotExtractable = errors.New("message does not contain an extractable receipt")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
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

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrProviderRateLimit) ||
		errors.Is(err, ErrProviderConnection) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
