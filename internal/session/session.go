// Package session provides persisted client state: the long-lived auth
// token (kept in the OS keyring), the stable per-device identifier, and
// the signed-in user's identity. State survives across runs until Clear.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	keyringService = "taskboard"
	keyringAccount = "auth-token"
)

// State is the non-secret client state persisted to the state file.
type State struct {
	DeviceID        string `yaml:"device_id"`
	UserID          int64  `yaml:"user_id"`
	DisplayName     string `yaml:"display_name"`
	IsAdmin         bool   `yaml:"is_admin"`
	MessagingLinked bool   `yaml:"messaging_linked"`
	TokenExpiresIn  int64  `yaml:"token_expires_in"` // seconds
	TokenIssuedAt   int64  `yaml:"token_issued_at"`  // unix seconds
}

// Session is the persisted client session. The auth token lives in the
// keyring; everything else in a YAML state file.
type Session struct {
	mu      sync.Mutex
	path    string
	keyring Keyring
	state   State
	now     func() time.Time

	// cached token, so Token() does not hit the keyring on every request
	token       string
	tokenLoaded bool
}

// Option configures a Session.
type Option func(*Session)

// WithKeyring sets a custom keyring implementation (used in tests).
func WithKeyring(k Keyring) Option {
	return func(s *Session) { s.keyring = k }
}

// WithClock sets a custom time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New loads the session state from path, creating an empty one if the
// file does not exist yet.
func New(path string, opts ...Option) (*Session, error) {
	s := &Session{
		path:    path,
		keyring: &systemKeyring{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("failed to parse session state: %w", err)
	}
	return s, nil
}

// DeviceID returns the stable per-device identifier, generating and
// persisting one on first use. Idempotent until the state file is removed.
func (s *Session) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.DeviceID != "" {
		return s.state.DeviceID
	}
	s.state.DeviceID = "device_" + uuid.New().String()
	_ = s.saveLocked()
	return s.state.DeviceID
}

// Token returns the auth token, or "" when none is stored.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tokenLoaded {
		token, err := s.keyring.Get(keyringService, keyringAccount)
		if err == nil {
			s.token = token
		}
		s.tokenLoaded = true
	}
	return s.token
}

// SetToken stores a new auth token along with its validity window.
func (s *Session) SetToken(token string, expiresIn int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.keyring.Set(keyringService, keyringAccount, token); err != nil {
		return fmt.Errorf("failed to store auth token: %w", err)
	}
	s.token = token
	s.tokenLoaded = true
	s.state.TokenExpiresIn = expiresIn
	s.state.TokenIssuedAt = s.now().Unix()
	return s.saveLocked()
}

// SetIdentity records the signed-in user's identity in the state file.
func (s *Session) SetIdentity(userID int64, displayName string, isAdmin, messagingLinked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.UserID = userID
	s.state.DisplayName = displayName
	s.state.IsAdmin = isAdmin
	s.state.MessagingLinked = messagingLinked
	return s.saveLocked()
}

// Clear removes the auth token and the user identity. The device id is
// preserved so the server keeps targeting this client across sign-ins.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.keyring.Delete(keyringService, keyringAccount)
	s.token = ""
	s.tokenLoaded = true
	s.state.UserID = 0
	s.state.DisplayName = ""
	s.state.IsAdmin = false
	s.state.MessagingLinked = false
	s.state.TokenExpiresIn = 0
	s.state.TokenIssuedAt = 0
	return s.saveLocked()
}

// RemainingValidity returns how long the current token is still valid,
// or 0 when no token is stored or it has already expired.
func (s *Session) RemainingValidity() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked()
}

// remainingLocked computes the token's remaining validity. Callers hold s.mu.
func (s *Session) remainingLocked() time.Duration {
	if s.state.TokenExpiresIn == 0 || s.state.TokenIssuedAt == 0 {
		return 0
	}
	expiry := time.Unix(s.state.TokenIssuedAt+s.state.TokenExpiresIn, 0)
	remaining := expiry.Sub(s.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether a stored token has passed its validity window.
// A session with no validity window recorded is never considered expired.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.TokenIssuedAt == 0 || s.state.TokenExpiresIn == 0 {
		return false
	}
	return s.remainingLocked() == 0
}

// LoggedIn reports whether a usable token is present.
func (s *Session) LoggedIn() bool {
	if s.Token() == "" {
		return false
	}
	return !s.Expired()
}

// UserID returns the signed-in user's id, or 0 when signed out.
func (s *Session) UserID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UserID
}

// DisplayName returns the signed-in user's display name.
func (s *Session) DisplayName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DisplayName
}

// IsAdmin reports whether the signed-in user has the admin flag.
func (s *Session) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsAdmin
}

// MessagingLinked reports whether the account is linked to the external
// messaging platform.
func (s *Session) MessagingLinked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.MessagingLinked
}

// saveLocked writes the state file. Caller holds s.mu.
func (s *Session) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := yaml.Marshal(&s.state)
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session state: %w", err)
	}
	return nil
}
