package utils

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a user-friendly suggestion.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface.
func (e *ErrorWithSuggestion) Error() string {
	return fmt.Sprintf("%s\n\nSuggestion: %s", e.Err.Error(), e.Suggestion)
}

// GetSuggestion returns the suggestion text.
func (e *ErrorWithSuggestion) GetSuggestion() string {
	return e.Suggestion
}

// Unwrap returns the underlying error for error chain support.
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// WrapWithSuggestion wraps an existing error with a suggestion.
func WrapWithSuggestion(err error, suggestion string) error {
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// ErrNotLoggedIn returns an error for commands that need a session.
func ErrNotLoggedIn() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("not logged in"),
		Suggestion: "Run 'taskboard login' first",
	}
}

// ErrSessionExpired returns an error for an expired auth token.
func ErrSessionExpired() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("session expired"),
		Suggestion: "Run 'taskboard login' to sign in again",
	}
}

// ErrCategoryNotFound returns an error for an unknown category reference.
func ErrCategoryNotFound(id int64) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("category not found: %d", id),
		Suggestion: "Run 'taskboard status' to list loaded categories",
	}
}

// ErrStreamExhausted returns an error when automatic reconnection gave up.
func ErrStreamExhausted() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("push stream reconnection attempts exhausted"),
		Suggestion: "Run 'taskboard watch' again to reconnect",
	}
}

// ErrAdminRequired returns an error for admin-only operations.
func ErrAdminRequired() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("administrator privileges required"),
		Suggestion: "Sign in with an admin account to use this command",
	}
}

// ErrServerUnreachable returns an error when the server cannot be reached,
// with a context-aware suggestion.
func ErrServerUnreachable(reason string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("server unreachable: %s", reason),
		Suggestion: getSmartSuggestion(reason),
	}
}

// getSmartSuggestion returns a context-aware suggestion based on the error reason.
func getSmartSuggestion(reason string) string {
	lowerReason := strings.ToLower(reason)

	if strings.Contains(lowerReason, "no such host") || strings.Contains(lowerReason, "dns") {
		return "Check your DNS settings and internet connection"
	}

	if strings.Contains(lowerReason, "connection refused") {
		return "Check if the server is running and accessible"
	}

	if strings.Contains(lowerReason, "timeout") || strings.Contains(lowerReason, "i/o timeout") {
		return "The server may be slow or unreachable. Try again later"
	}

	return "Check your internet connection and try again"
}
