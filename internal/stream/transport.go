package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// callbacks are the transport lifecycle hooks. They are invoked from the
// transport's reader goroutine: onOpen once when the stream responds,
// onMessage per complete event payload, onError at most once when the
// stream fails. A locally closed transport invokes nothing further.
type callbacks struct {
	onOpen    func()
	onMessage func(data string)
	onError   func(err error)
}

// transport is one live server-sent-event connection.
type transport struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// newTransport creates an unstarted transport so the caller can publish
// the pointer before any callback can fire.
func newTransport() *transport {
	ctx, cancel := context.WithCancel(context.Background())
	return &transport{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// start opens the stream and begins the reader goroutine.
func (t *transport) start(client *http.Client, url string, cb callbacks) {
	go t.run(client, url, cb)
}

// close terminates the stream. Safe to call multiple times; a closed
// transport emits no further callbacks.
func (t *transport) close() {
	t.cancel()
}

// run reads the stream until error or local close. SSE framing: "data:"
// lines accumulate until a blank line completes the event; comment lines
// (":") are keepalives and are skipped.
func (t *transport) run(client *http.Client, url string, cb callbacks) {
	defer close(t.done)

	req, err := http.NewRequestWithContext(t.ctx, http.MethodGet, url, nil)
	if err != nil {
		cb.onError(err)
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		if t.ctx.Err() != nil {
			return // closed locally
		}
		cb.onError(err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		cb.onError(fmt.Errorf("stream endpoint returned %d", resp.StatusCode))
		return
	}

	cb.onOpen()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				cb.onMessage(strings.Join(data, "\n"))
				data = data[:0]
			}
		case strings.HasPrefix(line, ":"):
			// keepalive comment
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// event:/id:/retry: fields are not used by this server
		}
	}

	if t.ctx.Err() != nil {
		return
	}
	if err := scanner.Err(); err != nil {
		cb.onError(err)
		return
	}
	// server closed the stream without a read error
	cb.onError(io.EOF)
}
