// Package notice provides the transient user-notice queue. Every failure
// and status change in the application surfaces through this single queue:
// notices are shown one at a time, in FIFO order, and auto-dismiss after
// their per-notice duration.
package notice

import (
	"sync"
	"time"
)

// DefaultDuration is how long a notice stays visible when the caller does
// not specify one.
const DefaultDuration = 3 * time.Second

// Severity is the tone of a notice.
type Severity int

const (
	Info Severity = iota
	Success
	Warning
	Error
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Notice is one transient user-visible message.
type Notice struct {
	Severity Severity
	Message  string
	Duration time.Duration
	At       time.Time
}

// Queue holds pending notices and advances through them one at a time.
// Safe for concurrent use; push entry points include user actions, the
// stream supervisor, and the REST client's error mapping.
type Queue struct {
	mu        sync.Mutex
	pending   []Notice
	current   *Notice
	timer     *time.Timer
	listeners []func(Notice)
	closed    bool
	now       func() time.Time
}

// New creates an empty notice queue.
func New() *Queue {
	return &Queue{now: time.Now}
}

// Subscribe registers a callback invoked whenever a notice becomes the
// visible one. Used by the TUI status bar and the CLI stderr printer.
func (q *Queue) Subscribe(fn func(Notice)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners = append(q.listeners, fn)
}

// Push enqueues a notice with the default duration.
func (q *Queue) Push(sev Severity, message string) {
	q.PushFor(sev, message, DefaultDuration)
}

// PushFor enqueues a notice with an explicit visible duration.
func (q *Queue) PushFor(sev Severity, message string, d time.Duration) {
	if d <= 0 {
		d = DefaultDuration
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, Notice{
		Severity: sev,
		Message:  message,
		Duration: d,
		At:       q.now(),
	})
	if q.current == nil {
		q.advanceLocked()
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()
}

// Current returns the visible notice, if any.
func (q *Queue) Current() (Notice, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return Notice{}, false
	}
	return *q.current, true
}

// Pending returns the number of queued notices that are not yet visible.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Dismiss drops the visible notice immediately and shows the next one.
func (q *Queue) Dismiss() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.current = nil
	q.advanceLocked()
}

// Close stops the dismiss timer and drops all pending notices. Pushes
// after Close are ignored.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.current = nil
	q.pending = nil
}

// advanceLocked promotes the next pending notice to visible and arms its
// dismiss timer. Caller holds q.mu.
func (q *Queue) advanceLocked() {
	if q.closed || len(q.pending) == 0 {
		q.current = nil
		return
	}
	n := q.pending[0]
	q.pending = q.pending[1:]
	q.current = &n

	for _, fn := range q.listeners {
		go fn(n)
	}

	q.timer = time.AfterFunc(n.Duration, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.current = nil
		q.timer = nil
		q.advanceLocked()
	})
}
