package auth

import (
	"errors"
	"fmt"
)

// AuthenticationError represents authentication-related errors
type AuthenticationError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is/errors.As chains.
func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// Is matches authentication errors by type, so wrapped copies produced by
// NewAuthenticationError still compare equal to the package sentinels.
func (e *AuthenticationError) Is(target error) bool {
	t, ok := target.(*AuthenticationError)
	return ok && t.Type == e.Type
}

// Common authentication error types
var (
	ErrTokenNotFound = &AuthenticationError{
		Type:    "token_not_found",
		Message: "No cached token in the token store",
	}

	ErrInvalidState = &AuthenticationError{
		Type:    "invalid_state",
		Message: "OAuth state parameter is invalid",
	}

	ErrInvalidGrant = &AuthenticationError{
		Type:    "invalid_grant",
		Message: "Failed to exchange authorization code for tokens",
	}

	ErrPortInUse = &AuthenticationError{
		Type:    "port_in_use",
		Message: "OAuth callback port is already in use",
	}

	ErrCallbackTimeout = &AuthenticationError{
		Type:    "callback_timeout",
		Message: "Timeout waiting for OAuth callback",
	}

	ErrConsentDenied = &AuthenticationError{
		Type:    "consent_denied",
		Message: "Authorization was cancelled or denied by the user",
	}
)

// NewAuthenticationError creates a new authentication error with a cause
func NewAuthenticationError(baseErr *AuthenticationError, cause error) *AuthenticationError {
	return &AuthenticationError{
		Type:    baseErr.Type,
		Message: baseErr.Message,
		Cause:   cause,
	}
}

// IsAuthenticationError checks if an error is an authentication error
func IsAuthenticationError(err error) bool {
	var authenticationError *AuthenticationError
	return errors.As(err, &authenticationError)
}
