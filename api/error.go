package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a non-2xx server response. Detail carries the server-provided
// message verbatim when the body had one.
type Error struct {
	StatusCode int
	Detail     string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

// IsAuth reports whether the error is a 401 response.
func (e *Error) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// TokenExpired reports whether a 401 was caused by an expired token,
// as opposed to an invalid one.
func (e *Error) TokenExpired() bool {
	return e.IsAuth() && strings.Contains(e.Detail, "Token has expired")
}

// TokenInvalid reports whether a 401 was caused by a rejected token.
func (e *Error) TokenInvalid() bool {
	return e.IsAuth() && strings.Contains(e.Detail, "Invalid token")
}

// AsError extracts an *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
