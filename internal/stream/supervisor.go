// Package stream owns the client side of the push channel: a single
// reconnecting server-sent-event connection, its retry and credential
// rotation policy, and the router that applies push messages to the
// board store.
package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"taskboard/internal/notice"
	"taskboard/internal/utils"
)

// Default tuning. BaseRetryDelay doubles per attempt and is floored at
// ErrorCooldown; after MaxRetries consecutive failures the supervisor
// stops until an explicit Connect.
const (
	DefaultMaxRetries             = 3
	DefaultBaseRetryDelay         = 10 * time.Second
	DefaultErrorCooldown          = 5 * time.Second
	DefaultTokenRefreshInterval   = 4 * time.Minute
	DefaultTokenRefreshMinSpacing = 2 * time.Minute
	DefaultHealthCheckInterval    = 5 * time.Minute
)

// State is the connection lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateErrorCooldown
	StateFailed
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateErrorCooldown:
		return "error-cooldown"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// API is the slice of the REST client the supervisor needs: a fresh
// stream credential and a liveness probe.
type API interface {
	StreamToken(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
}

// Session is the auth state the supervisor reads before connecting.
type Session interface {
	LoggedIn() bool
	DeviceID() string
}

// MessageRouter consumes raw push payloads.
type MessageRouter interface {
	Route(data string) error
}

// Config holds supervisor settings. Zero values fall back to defaults.
type Config struct {
	BaseURL                string
	MaxRetries             int
	BaseRetryDelay         time.Duration
	ErrorCooldown          time.Duration
	TokenRefreshInterval   time.Duration
	TokenRefreshMinSpacing time.Duration
	HealthCheckInterval    time.Duration

	// Track, when set, records connection lifecycle events.
	Track func(kind, detail string)
}

// Supervisor maintains at most one live push connection process-wide.
// It is the explicit singleton service object the composition layer
// injects wherever connection control is needed.
type Supervisor struct {
	cfg     Config
	api     API
	session Session
	router  MessageRouter
	notices *notice.Queue
	log     *utils.Logger

	// no Timeout here: the stream stays open indefinitely
	httpClient *http.Client

	mu               sync.Mutex
	state            State
	tr               *transport
	connecting       bool
	retryCount       int
	lastErrorAt      time.Time
	lastTokenRefresh time.Time
	retryTimer       *time.Timer
	stopCh           chan struct{} // closes the refresh and health loops
	gen              int           // incremented on Disconnect; stale callbacks no-op
}

// NewSupervisor creates a supervisor. Connect must be called explicitly.
func NewSupervisor(cfg Config, apiClient API, session Session, router MessageRouter, notices *notice.Queue) *Supervisor {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BaseRetryDelay <= 0 {
		cfg.BaseRetryDelay = DefaultBaseRetryDelay
	}
	if cfg.ErrorCooldown <= 0 {
		cfg.ErrorCooldown = DefaultErrorCooldown
	}
	if cfg.TokenRefreshInterval <= 0 {
		cfg.TokenRefreshInterval = DefaultTokenRefreshInterval
	}
	if cfg.TokenRefreshMinSpacing <= 0 {
		cfg.TokenRefreshMinSpacing = DefaultTokenRefreshMinSpacing
	}
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = DefaultHealthCheckInterval
	}
	return &Supervisor{
		cfg:        cfg,
		api:        apiClient,
		session:    session,
		router:     router,
		notices:    notices,
		log:        utils.GetLogger(),
		httpClient: &http.Client{},
		state:      StateIdle,
	}
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err reports why the supervisor stopped. It is non-nil only after the
// retry budget has been exhausted.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFailed {
		return utils.ErrStreamExhausted()
	}
	return nil
}

// RetryCount returns the consecutive failure count.
func (s *Supervisor) RetryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryCount
}

// RetryDelay returns the delay before the given reconnect attempt:
// BaseRetryDelay doubling per attempt, floored at ErrorCooldown.
func (s *Supervisor) RetryDelay(attempt int) time.Duration {
	d := s.cfg.BaseRetryDelay
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	if d < s.cfg.ErrorCooldown {
		d = s.cfg.ErrorCooldown
	}
	return d
}

// Connect establishes the push connection. Without a valid session it is
// equivalent to Disconnect. A connect already in progress, or an already
// open connection, makes the call a no-op, so rapid repeated calls never
// cause churn.
func (s *Supervisor) Connect() {
	if !s.session.LoggedIn() {
		s.log.Debug("not logged in, skipping stream connect")
		s.Disconnect()
		return
	}

	s.mu.Lock()
	if s.connecting {
		s.mu.Unlock()
		s.log.Debug("stream connect already in progress")
		return
	}
	if s.tr != nil && s.state == StateOpen {
		s.mu.Unlock()
		s.log.Debug("stream already connected, reusing")
		return
	}
	s.connecting = true
	s.state = StateConnecting
	gen := s.gen
	s.mu.Unlock()

	s.notices.Push(notice.Info, "Connecting to push service...")
	s.track("connect", "")

	token, err := s.api.StreamToken(context.Background())
	if err != nil {
		s.log.Debug("stream token fetch failed: %v", err)
		s.mu.Lock()
		stale := gen != s.gen
		s.connecting = false
		s.mu.Unlock()
		if stale {
			return
		}
		s.notices.Push(notice.Error, "Failed to establish push connection")
		s.Disconnect()
		return
	}

	streamURL := s.streamURL(token)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	if s.tr != nil {
		// existing transport is known unhealthy at this point
		s.tr.close()
	}
	t := newTransport()
	s.tr = t
	s.mu.Unlock()

	t.start(s.httpClient, streamURL, callbacks{
		onOpen:    func() { s.handleOpen(gen, t) },
		onMessage: func(data string) { s.handleMessage(gen, data) },
		onError:   func(err error) { s.handleError(gen, t, err) },
	})
}

// Disconnect tears everything down: transport, retry timer, background
// loops, counters. Idempotent and always safe to call.
func (s *Supervisor) Disconnect() {
	s.mu.Lock()
	s.gen++
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	s.stopLoopsLocked()
	if s.tr != nil {
		s.tr.close()
		s.tr = nil
	}
	s.connecting = false
	s.retryCount = 0
	s.lastErrorAt = time.Time{}
	changed := s.state != StateIdle
	s.state = StateIdle
	s.mu.Unlock()

	if changed {
		s.log.Debug("stream disconnected")
		s.track("disconnect", "")
	}
}

// streamURL builds the notify endpoint URL with the short-lived token
// and the device id in the query.
func (s *Supervisor) streamURL(token string) string {
	return fmt.Sprintf("%s/sse/notify?sse_token=%s&device_id=%s",
		strings.TrimRight(s.cfg.BaseURL, "/"),
		url.QueryEscape(token),
		url.QueryEscape(s.session.DeviceID()))
}

// handleOpen marks the connection healthy and starts the token-refresh
// and health-check loops (once per connection generation).
func (s *Supervisor) handleOpen(gen int, t *transport) {
	s.mu.Lock()
	if gen != s.gen || t != s.tr {
		s.mu.Unlock()
		return
	}
	s.state = StateOpen
	s.connecting = false
	s.retryCount = 0
	s.lastTokenRefresh = time.Now()
	if s.stopCh == nil {
		stopCh := make(chan struct{})
		s.stopCh = stopCh
		go s.refreshLoop(gen, stopCh)
		go s.healthLoop(gen, stopCh)
	}
	s.mu.Unlock()

	s.notices.Push(notice.Success, "Connected, receiving push updates")
	s.track("open", "")
}

// handleMessage delegates one payload to the router. Routing failures
// are contained here: a malformed message never closes the connection.
func (s *Supervisor) handleMessage(gen int, data string) {
	s.mu.Lock()
	stale := gen != s.gen
	s.mu.Unlock()
	if stale {
		return
	}
	if err := s.router.Route(data); err != nil {
		s.log.Debug("dropping push message: %v", err)
	}
}

// handleError runs the retry policy. Errors inside the cooldown window
// are duplicates of the same failure and are ignored; outside it the
// transport is torn down and a reconnect is scheduled with exponential
// backoff until the retry budget is exhausted.
func (s *Supervisor) handleError(gen int, t *transport, err error) {
	s.mu.Lock()
	if gen != s.gen || t != s.tr {
		s.mu.Unlock()
		return
	}
	s.log.Debug("stream error: %v", err)
	s.connecting = false

	now := time.Now()
	if !s.lastErrorAt.IsZero() && now.Sub(s.lastErrorAt) <= s.cfg.ErrorCooldown {
		// duplicate of the failure we are already handling
		s.tr.close()
		s.tr = nil
		s.mu.Unlock()
		return
	}
	s.lastErrorAt = now

	s.tr.close()
	s.tr = nil
	s.stopLoopsLocked()

	if s.retryCount < s.cfg.MaxRetries {
		s.retryCount++
		attempt := s.retryCount
		delay := s.RetryDelay(attempt)
		s.state = StateErrorCooldown
		s.retryTimer = time.AfterFunc(delay, s.Connect)
		s.mu.Unlock()

		s.notices.Push(notice.Warning,
			fmt.Sprintf("Connection error, reconnect attempt %d of %d in %s", attempt, s.cfg.MaxRetries, delay))
		s.track("retry", fmt.Sprintf("attempt=%d delay=%s", attempt, delay))
		return
	}

	s.state = StateFailed
	s.mu.Unlock()

	s.notices.Push(notice.Error, "Reconnection attempts exhausted, reconnect manually")
	s.track("exhausted", "")
}

// refreshLoop rotates the short-lived stream credential while the
// connection is believed open. Rotation is not a failure, so it never
// touches the retry counter. A min-spacing guard absorbs overlapping
// timers after reconnects.
func (s *Supervisor) refreshLoop(gen int, stopCh chan struct{}) {
	ticker := time.NewTicker(s.cfg.TokenRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			if gen != s.gen {
				s.mu.Unlock()
				return
			}
			if time.Since(s.lastTokenRefresh) < s.cfg.TokenRefreshMinSpacing {
				s.mu.Unlock()
				continue
			}
			healthy := s.tr != nil && s.state == StateOpen
			s.mu.Unlock()

			if healthy {
				s.rotateToken(gen)
			} else {
				s.Connect()
			}

			s.mu.Lock()
			if gen == s.gen {
				s.lastTokenRefresh = time.Now()
			}
			s.mu.Unlock()
		}
	}
}

// rotateToken swaps the transport for one carrying a fresh credential:
// close old, open new against the same endpoint. Failure to fetch the
// token keeps the current connection; the next cycle retries.
func (s *Supervisor) rotateToken(gen int) {
	token, err := s.api.StreamToken(context.Background())
	if err != nil {
		s.log.Debug("token rotation failed, keeping current connection: %v", err)
		return
	}
	streamURL := s.streamURL(token)

	s.mu.Lock()
	if gen != s.gen || s.tr == nil {
		s.mu.Unlock()
		return
	}
	s.tr.close()
	t := newTransport()
	s.tr = t
	s.state = StateConnecting
	s.connecting = true
	s.mu.Unlock()

	s.track("rotate", "")
	t.start(s.httpClient, streamURL, callbacks{
		onOpen:    func() { s.handleOpen(gen, t) },
		onMessage: func(data string) { s.handleMessage(gen, data) },
		onError:   func(err error) { s.handleError(gen, t, err) },
	})
}

// healthLoop probes the liveness endpoint while the connection is open.
// On probe failure the loop cancels itself, marks the connection down,
// and hands recovery to Connect.
func (s *Supervisor) healthLoop(gen int, stopCh chan struct{}) {
	ticker := time.NewTicker(s.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := s.api.Ping(ctx)
			cancel()
			if err == nil {
				continue
			}
			s.log.Debug("health probe failed: %v", err)

			s.mu.Lock()
			if gen != s.gen {
				s.mu.Unlock()
				return
			}
			if s.tr != nil {
				s.tr.close()
				s.tr = nil
			}
			s.stopLoopsLocked()
			s.state = StateIdle
			s.mu.Unlock()

			s.Connect()
			return
		}
	}
}

// stopLoopsLocked closes the background loops. Caller holds s.mu.
func (s *Supervisor) stopLoopsLocked() {
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
}

func (s *Supervisor) track(kind, detail string) {
	if s.cfg.Track != nil {
		s.cfg.Track(kind, detail)
	}
}
