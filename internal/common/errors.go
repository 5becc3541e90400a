// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Classifier errors.
	ErrClassifierUnavailable = errors.New("no external classifier configured")
	ErrClassifierCallFailed  = errors.New("classifier call failed")
	ErrMalformedResponse     = errors.New("malformed classifier response")
	ErrRateLimit             = errors.New("rate limit exceeded")

	// Orchestrator errors.
	ErrCostCeilingExceeded = errors.New("daily cost ceiling exceeded")
	ErrWorkflowDeadlock    = errors.New("workflow deadlock detected")
	ErrWorkflowNotFound    = errors.New("workflow not found")
	ErrAgentNotFound       = errors.New("agent not found")
	ErrTaskNotCancellable  = errors.New("task is no longer pending")

	// Storage errors.
	ErrNotFound = errors.New("not found")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// WrapRetryable marks an error as retryable or not for WithRetry.
func WrapRetryable(err error, retryable bool) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err, Retryable: retryable}
}

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
	return &UserError{UserMessage: userMessage, Err: err}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrClassifierCallFailed) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
