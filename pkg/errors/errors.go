// Package errors provides custom error types for the gamedex system.
// These errors let the reconciliation engine distinguish transient API
// failures from account problems and from genuine bugs, and enable
// programmatic error checking throughout the application.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the gamedex system
var (
	// ErrNotFound indicates that a requested record was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a record already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrRateLimited indicates that an API rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrForbidden indicates that an API rejected the request outright
	ErrForbidden = errors.New("forbidden")

	// ErrNotConfigured indicates that no credential is present for a storefront.
	// This is the expected steady state for storefronts the user never enabled.
	ErrNotConfigured = errors.New("account not configured")

	// ErrAuthExpired indicates that a credential can no longer be refreshed
	// and the user must log in again
	ErrAuthExpired = errors.New("authentication expired")
)

// ProtocolError represents an unexpected response shape from an external API.
// It is retryable at the adapter level but never swallowed.
type ProtocolError struct {
	Source  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("protocol error from %s: %s", e.Source, e.Message)
	}
	return fmt.Sprintf("protocol error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NewProtocolError creates a new ProtocolError
func NewProtocolError(source, message string, err error) *ProtocolError {
	return &ProtocolError{Source: source, Message: message, Err: err}
}

// APIError represents an error from an external API that carries an
// HTTP-like status code (e.g. 429 Too Many Requests, 403 Forbidden).
type APIError struct {
	Source     string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Source, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Source, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case 429:
		return target == ErrRateLimited
	case 403:
		return target == ErrForbidden
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(source string, statusCode int, message string) *APIError {
	return &APIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NotConfiguredError indicates that no credential is configured for a
// storefront. The engine treats it as "never enabled", not a failure.
type NotConfiguredError struct {
	Storefront string
}

// Error implements the error interface
func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("no credential configured for %s", e.Storefront)
}

// Is implements errors.Is support
func (e *NotConfiguredError) Is(target error) bool {
	return target == ErrNotConfigured
}

// NewNotConfiguredError creates a new NotConfiguredError
func NewNotConfiguredError(storefront string) *NotConfiguredError {
	return &NotConfiguredError{Storefront: storefront}
}

// AuthExpiredError indicates that a storefront credential expired and the
// refresh token itself is no longer usable, so re-authentication is required.
type AuthExpiredError struct {
	Storefront string
	Message    string
}

// Error implements the error interface
func (e *AuthExpiredError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("authentication for %s expired: %s", e.Storefront, e.Message)
	}
	return fmt.Sprintf("authentication for %s expired", e.Storefront)
}

// Is implements errors.Is support
func (e *AuthExpiredError) Is(target error) bool {
	return target == ErrAuthExpired
}

// NewAuthExpiredError creates a new AuthExpiredError
func NewAuthExpiredError(storefront, message string) *AuthExpiredError {
	return &AuthExpiredError{Storefront: storefront, Message: message}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsNotConfigured checks if an error means a storefront was never enabled
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

// IsAuthExpired checks if an error requires the user to log in again
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}

// IsTransient reports whether an error is worth retrying at the adapter
// level: protocol errors and status-carrying API errors qualify, account
// errors and unclassified errors do not.
func IsTransient(err error) bool {
	var pe *ProtocolError
	var ae *APIError
	return errors.As(err, &pe) || errors.As(err, &ae)
}

// As is an alias for the standard library errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is an alias for the standard library errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
