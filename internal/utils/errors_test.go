package utils

import (
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// ErrorWithSuggestion Tests
// =============================================================================

// TestErrorWithSuggestionImplementsError verifies interface compliance
func TestErrorWithSuggestionImplementsError(t *testing.T) {
	var _ error = &ErrorWithSuggestion{}
}

// TestErrorWithSuggestionError verifies Error() method output
func TestErrorWithSuggestionError(t *testing.T) {
	err := &ErrorWithSuggestion{
		Err:        errors.New("something went wrong"),
		Suggestion: "Try doing X",
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "something went wrong") {
		t.Errorf("Error() should contain error message, got: %s", errStr)
	}
	if !strings.Contains(errStr, "Suggestion:") {
		t.Errorf("Error() should contain 'Suggestion:', got: %s", errStr)
	}
	if !strings.Contains(errStr, "Try doing X") {
		t.Errorf("Error() should contain suggestion text, got: %s", errStr)
	}
}

// TestErrorWithSuggestionGetSuggestion verifies GetSuggestion() method
func TestErrorWithSuggestionGetSuggestion(t *testing.T) {
	err := &ErrorWithSuggestion{
		Err:        errors.New("error"),
		Suggestion: "helpful suggestion",
	}

	if err.GetSuggestion() != "helpful suggestion" {
		t.Errorf("GetSuggestion() = %s, want 'helpful suggestion'", err.GetSuggestion())
	}
}

// TestErrorWithSuggestionUnwrap verifies Unwrap() for error chain
func TestErrorWithSuggestionUnwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &ErrorWithSuggestion{
		Err:        underlying,
		Suggestion: "suggestion",
	}

	if errors.Unwrap(err) != underlying {
		t.Error("Unwrap() should return underlying error")
	}
}

// TestWrapWithSuggestion verifies WrapWithSuggestion function
func TestWrapWithSuggestion(t *testing.T) {
	underlying := errors.New("original error")
	wrapped := WrapWithSuggestion(underlying, "custom suggestion")

	var errWithSuggestion *ErrorWithSuggestion
	if !errors.As(wrapped, &errWithSuggestion) {
		t.Fatal("WrapWithSuggestion should return *ErrorWithSuggestion")
	}

	if errWithSuggestion.GetSuggestion() != "custom suggestion" {
		t.Errorf("Suggestion = %s, want 'custom suggestion'", errWithSuggestion.GetSuggestion())
	}
	if !errors.Is(wrapped, underlying) {
		t.Error("wrapped error should match underlying via errors.Is")
	}
}

// =============================================================================
// Pre-built Error Constructor Tests
// =============================================================================

// TestErrNotLoggedIn verifies the not-logged-in error
func TestErrNotLoggedIn(t *testing.T) {
	err := ErrNotLoggedIn()
	if !strings.Contains(err.Error(), "not logged in") {
		t.Errorf("ErrNotLoggedIn() = %s, want mention of 'not logged in'", err)
	}
	if !strings.Contains(err.Error(), "login") {
		t.Errorf("ErrNotLoggedIn() suggestion should mention login, got: %s", err)
	}
}

// TestErrSessionExpired verifies the expired-session error
func TestErrSessionExpired(t *testing.T) {
	err := ErrSessionExpired()
	if !strings.Contains(err.Error(), "session expired") {
		t.Errorf("ErrSessionExpired() = %s, want mention of 'session expired'", err)
	}
	if !strings.Contains(err.Error(), "login") {
		t.Errorf("ErrSessionExpired() suggestion should mention login, got: %s", err)
	}
}

// TestErrCategoryNotFound verifies the unknown-category error includes the id
func TestErrCategoryNotFound(t *testing.T) {
	err := ErrCategoryNotFound(42)
	if !strings.Contains(err.Error(), "category not found: 42") {
		t.Errorf("ErrCategoryNotFound(42) = %s, want the id in the message", err)
	}
}

// TestErrStreamExhausted verifies the reconnect-budget error
func TestErrStreamExhausted(t *testing.T) {
	err := ErrStreamExhausted()
	if !strings.Contains(err.Error(), "exhausted") {
		t.Errorf("ErrStreamExhausted() = %s, want mention of 'exhausted'", err)
	}

	var errWithSuggestion *ErrorWithSuggestion
	if !errors.As(err, &errWithSuggestion) {
		t.Fatal("ErrStreamExhausted should return *ErrorWithSuggestion")
	}
	if errWithSuggestion.GetSuggestion() == "" {
		t.Error("ErrStreamExhausted should carry a suggestion")
	}
}

// TestErrAdminRequired verifies the admin-only error
func TestErrAdminRequired(t *testing.T) {
	err := ErrAdminRequired()
	if !strings.Contains(err.Error(), "administrator") {
		t.Errorf("ErrAdminRequired() = %s, want mention of 'administrator'", err)
	}
}

// =============================================================================
// Smart Suggestion Tests
// =============================================================================

// TestErrServerUnreachableSuggestions verifies the suggestion matches the reason
func TestErrServerUnreachableSuggestions(t *testing.T) {
	cases := []struct {
		reason string
		want   string
	}{
		{"dial tcp: lookup api.example.com: no such host", "DNS"},
		{"dial tcp 127.0.0.1:8080: connection refused", "server is running"},
		{"context deadline exceeded (i/o timeout)", "slow or unreachable"},
		{"something else entirely", "internet connection"},
	}

	for _, tc := range cases {
		err := ErrServerUnreachable(tc.reason)

		var errWithSuggestion *ErrorWithSuggestion
		if !errors.As(err, &errWithSuggestion) {
			t.Fatalf("ErrServerUnreachable(%q) should return *ErrorWithSuggestion", tc.reason)
		}
		if !strings.Contains(errWithSuggestion.GetSuggestion(), tc.want) {
			t.Errorf("suggestion for %q = %q, want mention of %q",
				tc.reason, errWithSuggestion.GetSuggestion(), tc.want)
		}
	}
}
